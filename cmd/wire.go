package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	appconfig "github.com/bnema/token-pool-router/internal/adapters/config"
	rankingadapter "github.com/bnema/token-pool-router/internal/adapters/render/ranking"
	"github.com/bnema/token-pool-router/internal/adapters/repo/memory"
	tomlrepo "github.com/bnema/token-pool-router/internal/adapters/repo/toml"
	filestore "github.com/bnema/token-pool-router/internal/adapters/secrets/file"
	"github.com/bnema/token-pool-router/internal/application"
	"github.com/bnema/token-pool-router/internal/logging"
	"github.com/bnema/token-pool-router/internal/ports"
	log "github.com/sirupsen/logrus"
)

type app struct {
	logger         *log.Logger
	accounts       *tomlrepo.Repository
	registry       *memory.Registry
	service        *application.Service
	selector       *application.SelectionService
	poolService    *application.PoolService
	rankRenderer   func(application.Ranking, rankingadapter.RenderOptions) (string, error)
	statusRenderer func([]application.Status, rankingadapter.RenderOptions) (string, error)
	now            func() time.Time
}

func wireApp() (*app, error) {
	cfg, err := appconfig.Load("")
	if err != nil {
		return nil, fmt.Errorf("wire config: %w", err)
	}

	logger, err := logging.New(cfg.GetString(appconfig.KeyLogLevel), cfg.GetString(appconfig.KeyLogFormat), os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("wire logger: %w", err)
	}

	repo, err := tomlrepo.NewRepository(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire account repository: %w", err)
	}

	credentialsDir := cfg.GetString(appconfig.KeyCredentialsPath)
	if credentialsDir == "" {
		configDir, err := appconfig.ConfigDir()
		if err != nil {
			return nil, err
		}
		credentialsDir = filepath.Join(configDir, "credentials")
	}

	clock := ports.SystemClock{}
	registry := memory.NewRegistry()
	selector := application.NewSelectionService(registry, clock, logger)
	if err := selector.WatchRules(appconfig.NewRuleSource(cfg)); err != nil {
		return nil, fmt.Errorf("wire tier rules: %w", err)
	}

	return &app{
		logger:         logger,
		accounts:       repo,
		registry:       registry,
		service:        application.NewService(repo, filestore.NewStore(credentialsDir), clock),
		selector:       selector,
		poolService:    application.NewPoolService(registry, repo.Pools(), selector, clock),
		rankRenderer:   rankingadapter.Render,
		statusRenderer: rankingadapter.RenderAccounts,
		now:            clock.Now,
	}, nil
}

// refreshRegistry replaces the in-memory pool with the persisted accounts so
// selection reads one consistent snapshot.
func (a *app) refreshRegistry(ctx context.Context) error {
	accounts, err := a.accounts.List(ctx)
	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}

	if err := a.registry.Load(ctx, accounts); err != nil {
		return fmt.Errorf("load registry: %w", err)
	}

	a.logger.WithField("accounts", a.registry.Len()).Debug("registry refreshed")
	return nil
}
