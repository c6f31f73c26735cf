package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	rankingadapter "github.com/bnema/token-pool-router/internal/adapters/render/ranking"
	"github.com/bnema/token-pool-router/internal/application"
	"github.com/bnema/token-pool-router/internal/domain"
	"github.com/spf13/cobra"
)

func newPoolCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Manage the tier-aware account pool",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.refreshRegistry(cmd.Context())
		},
	}

	cmd.AddCommand(
		newPoolActivateCmd(app),
		newPoolDeactivateCmd(app),
		newPoolStatusCmd(app),
	)

	return cmd
}

func newPoolActivateCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "activate",
		Short: "Activate the default pool with every configured account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pool, err := app.poolService.ActivateDefaultPool(cmd.Context())
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Activated pool %s (members: %d)\n", pool.ID, len(pool.Members))
			return err
		},
	}
}

func newPoolDeactivateCmd(app *app) *cobra.Command {
	var poolID string

	cmd := &cobra.Command{
		Use:   "deactivate",
		Short: "Stop routing through a pool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pool, err := app.poolService.DeactivatePool(cmd.Context(), domain.PoolID(poolID))
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deactivated pool %s\n", pool.ID)
			return err
		},
	}

	addPoolFlag(cmd, &poolID)

	return cmd
}

func newPoolStatusCmd(app *app) *cobra.Command {
	var (
		poolID string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a pool and the runtime state of its members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := app.poolService.Status(cmd.Context(), domain.PoolID(poolID))
			if errors.Is(err, domain.ErrPoolNotFound) {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "pool %s is not configured\n", rankingadapter.SanitizeForTerminal(poolID))
				return err
			}
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, poolStatusJSON(status))
			}

			return writePoolStatus(cmd.OutOrStdout(), app, status)
		},
	}

	addPoolFlag(cmd, &poolID)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the pool status as JSON")

	return cmd
}

func writePoolStatus(w io.Writer, app *app, status application.PoolStatus) error {
	state := "inactive"
	if status.Pool.Active {
		state = "active"
	}
	if _, err := fmt.Fprintf(w, "pool %s (%s, %s)\n", status.Pool.ID, status.Pool.Strategy, state); err != nil {
		return err
	}

	rendered, err := app.statusRenderer(status.Members, rankingadapter.RenderOptions{Now: app.now()})
	if err != nil {
		return fmt.Errorf("render pool members: %w", err)
	}
	if _, err := fmt.Fprintln(w, rendered); err != nil {
		return err
	}

	if len(status.Missing) == 0 {
		return nil
	}
	missing := make([]string, 0, len(status.Missing))
	for _, id := range status.Missing {
		missing = append(missing, rankingadapter.SanitizeForTerminal(string(id)))
	}
	_, err = fmt.Fprintf(w, "missing: %s\n", strings.Join(missing, ", "))
	return err
}

func addPoolFlag(cmd *cobra.Command, poolID *string) {
	cmd.Flags().StringVar(poolID, "pool", string(application.DefaultPoolID), "Pool ID")
}
