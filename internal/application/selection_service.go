package application

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bnema/token-pool-router/internal/domain"
	"github.com/bnema/token-pool-router/internal/ports"
	log "github.com/sirupsen/logrus"
)

// SelectionService picks accounts from the current pool snapshot. The model
// classifier can be swapped while selections are in flight.
type SelectionService struct {
	accounts   ports.AccountSnapshotter
	clock      ports.Clock
	logger     log.FieldLogger
	classifier atomic.Pointer[domain.ModelClassifier]
}

func NewSelectionService(accounts ports.AccountSnapshotter, clock ports.Clock, logger log.FieldLogger) *SelectionService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = log.StandardLogger()
	}

	s := &SelectionService{accounts: accounts, clock: clock, logger: logger}
	s.classifier.Store(domain.DefaultModelClassifier())
	return s
}

func (s *SelectionService) Classifier() *domain.ModelClassifier {
	return s.classifier.Load()
}

func (s *SelectionService) SetClassifier(classifier *domain.ModelClassifier) {
	if classifier == nil {
		classifier = domain.DefaultModelClassifier()
	}
	s.classifier.Store(classifier)
}

// ReloadRules rebuilds the classifier from source. On error the previous
// classifier stays in place.
func (s *SelectionService) ReloadRules(source ports.TierRuleSource) error {
	rules, err := source.TierRules()
	if err != nil {
		return fmt.Errorf("load tier rules: %w", err)
	}

	classifier, err := domain.NewModelClassifier(rules)
	if err != nil {
		return fmt.Errorf("build model classifier: %w", err)
	}

	s.classifier.Store(classifier)
	s.logger.WithField("rules", len(classifier.Rules())).Info("tier rules loaded")
	return nil
}

// WatchRules loads the rules once and reloads them whenever source changes.
func (s *SelectionService) WatchRules(source ports.TierRuleSource) error {
	if err := s.ReloadRules(source); err != nil {
		return err
	}

	source.OnChange(func() {
		if err := s.ReloadRules(source); err != nil {
			s.logger.WithError(err).Warn("keeping previous tier rules")
		}
	})
	return nil
}

func (s *SelectionService) RequiresTopTier(model string) bool {
	return s.classifier.Load().RequiresTopTier(model)
}

// Rank orders the eligible accounts of the whole snapshot for model.
func (s *SelectionService) Rank(ctx context.Context, model string) (Ranking, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return Ranking{}, fmt.Errorf("list accounts: %w", err)
	}

	return s.RankAccounts(accounts, model), nil
}

// Select returns the best account of the snapshot for model.
func (s *SelectionService) Select(ctx context.Context, model string) (domain.Account, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return domain.Account{}, fmt.Errorf("list accounts: %w", err)
	}

	return s.SelectFrom(accounts, model)
}

// RankAccounts ranks an explicit account list, sampling the clock once.
func (s *SelectionService) RankAccounts(accounts []domain.Account, model string) Ranking {
	now := s.clock.Now()
	classifier := s.classifier.Load()

	_, blocked := domain.PartitionEligible(accounts, now)
	ranking := Ranking{
		Model:    model,
		TopTier:  classifier.RequiresTopTier(model),
		At:       now,
		Accounts: domain.Rank(accounts, model, classifier, now),
		Blocked:  blocked,
	}

	s.logger.WithFields(log.Fields{
		"model":    model,
		"top_tier": ranking.TopTier,
		"eligible": len(ranking.Accounts),
		"blocked":  len(ranking.Blocked),
	}).Debug("ranked accounts")

	return ranking
}

// SelectFrom picks from an explicit account list, sampling the clock once.
func (s *SelectionService) SelectFrom(accounts []domain.Account, model string) (domain.Account, error) {
	now := s.clock.Now()
	classifier := s.classifier.Load()
	topTier := classifier.RequiresTopTier(model)

	account, err := domain.Select(accounts, model, classifier, now)
	if err != nil {
		var exhausted *domain.ExhaustionError
		if errors.As(err, &exhausted) {
			s.logger.WithFields(log.Fields{
				"model":    model,
				"top_tier": topTier,
				"eligible": 0,
				"blocked":  exhausted.Blocked,
			}).Warn("no eligible account")
		}
		return domain.Account{}, err
	}

	s.logger.WithFields(log.Fields{
		"model":    model,
		"top_tier": topTier,
		"account":  string(account.ID),
	}).Debug("selected account")

	return account, nil
}

// Ranking is the full ordering of one selection call.
type Ranking struct {
	Model    string
	TopTier  bool
	At       time.Time
	Accounts []domain.Account
	Blocked  []domain.Account
}

// Best returns the first ranked account, or a *domain.ExhaustionError.
func (r Ranking) Best() (domain.Account, error) {
	if len(r.Accounts) == 0 {
		return domain.Account{}, &domain.ExhaustionError{
			Model:    r.Model,
			PoolSize: len(r.Blocked),
			Blocked:  len(r.Blocked),
		}
	}
	return r.Accounts[0], nil
}

func (r Ranking) IDs() []domain.AccountID {
	ids := make([]domain.AccountID, 0, len(r.Accounts))
	for _, account := range r.Accounts {
		ids = append(ids, account.ID)
	}
	return ids
}
