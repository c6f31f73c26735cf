package cmd

import (
	"fmt"
	"strings"

	rankingadapter "github.com/bnema/token-pool-router/internal/adapters/render/ranking"
	"github.com/bnema/token-pool-router/internal/application"
	"github.com/bnema/token-pool-router/internal/domain"
	"github.com/spf13/cobra"
)

func newClassifyCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <model>",
		Short: "Report whether a model needs a top-tier account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tier := "ordinary"
			if app.selector.RequiresTopTier(args[0]) {
				tier = "top-tier"
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", rankingadapter.SanitizeForTerminal(args[0]), tier)
			return nil
		},
	}
}

func newRankCmd(app *app) *cobra.Command {
	var (
		model  string
		poolID string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Show the full account ranking for a model",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ranking, err := rankFor(cmd, app, model, poolID)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, rankingJSON(ranking))
			}

			rendered, err := app.rankRenderer(ranking, rankingadapter.RenderOptions{Now: ranking.At})
			if err != nil {
				return fmt.Errorf("render ranking: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "Target model name")
	cmd.Flags().StringVar(&poolID, "pool", "", "Rank only the members of this pool")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the ranking as JSON")
	_ = cmd.MarkFlagRequired("model")

	return cmd
}

func newSelectCmd(app *app) *cobra.Command {
	var (
		model    string
		poolID   string
		failover bool
	)

	cmd := &cobra.Command{
		Use:   "select",
		Short: "Print the account that should serve a model request",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.refreshRegistry(cmd.Context()); err != nil {
				return err
			}

			if strings.TrimSpace(poolID) != "" {
				picked, chain, err := app.poolService.PickAccount(cmd.Context(), domain.PoolID(poolID), model)
				if err != nil {
					return err
				}
				return writeSelection(cmd, picked, chain, failover)
			}

			if failover {
				ranking, err := app.selector.Rank(cmd.Context(), model)
				if err != nil {
					return err
				}
				best, err := ranking.Best()
				if err != nil {
					return err
				}
				return writeSelection(cmd, best.ID, ranking.IDs()[1:], true)
			}

			account, err := app.selector.Select(cmd.Context(), model)
			if err != nil {
				return err
			}
			return writeSelection(cmd, account.ID, nil, false)
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "Target model name")
	cmd.Flags().StringVar(&poolID, "pool", "", "Select only among the members of this pool")
	cmd.Flags().BoolVar(&failover, "failover", false, "Also print the ordered failover chain")
	_ = cmd.MarkFlagRequired("model")

	return cmd
}

func rankFor(cmd *cobra.Command, app *app, model, poolID string) (application.Ranking, error) {
	if err := app.refreshRegistry(cmd.Context()); err != nil {
		return application.Ranking{}, err
	}

	if strings.TrimSpace(poolID) != "" {
		return app.poolService.RankPool(cmd.Context(), domain.PoolID(poolID), model)
	}

	return app.selector.Rank(cmd.Context(), model)
}

func writeSelection(cmd *cobra.Command, picked domain.AccountID, chain []domain.AccountID, withFailover bool) error {
	_, err := fmt.Fprintln(cmd.OutOrStdout(), picked)
	if err != nil || !withFailover {
		return err
	}

	ids := make([]string, 0, len(chain))
	for _, id := range chain {
		ids = append(ids, string(id))
	}
	if len(ids) == 0 {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), "failover: none")
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "failover: %s\n", strings.Join(ids, ", "))
	return err
}
