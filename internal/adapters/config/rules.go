package config

import (
	"fmt"
	"sync"

	"github.com/bnema/token-pool-router/internal/domain"
	"github.com/bnema/token-pool-router/internal/ports"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type ruleEntry struct {
	Pattern string `mapstructure:"pattern"`
	Match   string `mapstructure:"match"`
}

// RuleSource reads the top-tier model rules from the [routing] table.
type RuleSource struct {
	cfg *viper.Viper

	mu        sync.Mutex
	listeners []func()
	watching  bool
}

var _ ports.TierRuleSource = (*RuleSource)(nil)

func NewRuleSource(cfg *viper.Viper) *RuleSource {
	if cfg == nil {
		cfg = New()
	}
	return &RuleSource{cfg: cfg}
}

// TierRules merges routing.top_tier_models (contains-mode patterns) with the
// routing.top_tier_rules tables. With neither set it returns the defaults.
func (s *RuleSource) TierRules() ([]domain.TierRule, error) {
	rules := domain.RulesFromPatterns(s.cfg.GetStringSlice(KeyTopTierModels))

	if s.cfg.IsSet(KeyTopTierRules) {
		var entries []ruleEntry
		if err := s.cfg.UnmarshalKey(KeyTopTierRules, &entries); err != nil {
			return nil, fmt.Errorf("decode %s: %w", KeyTopTierRules, err)
		}
		for _, entry := range entries {
			rules = append(rules, domain.TierRule{Pattern: entry.Pattern, Match: domain.MatchMode(entry.Match)})
		}
	}

	if len(rules) == 0 {
		return append([]domain.TierRule(nil), domain.DefaultTierRules...), nil
	}

	return rules, nil
}

// OnChange registers fn and starts watching the config file on first use.
// Without a config file on disk nothing is watched.
func (s *RuleSource) OnChange(fn func()) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	start := !s.watching && s.cfg.ConfigFileUsed() != ""
	if start {
		s.watching = true
	}
	s.mu.Unlock()

	if !start {
		return
	}

	s.cfg.OnConfigChange(func(fsnotify.Event) {
		s.notify()
	})
	s.cfg.WatchConfig()
}

func (s *RuleSource) notify() {
	s.mu.Lock()
	listeners := append([]func(){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}
