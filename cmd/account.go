package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	rankingadapter "github.com/bnema/token-pool-router/internal/adapters/render/ranking"
	"github.com/bnema/token-pool-router/internal/application"
	"github.com/bnema/token-pool-router/internal/domain"
	"github.com/spf13/cobra"
)

func newAccountCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts and their runtime state",
	}

	cmd.AddCommand(
		newAccountListCmd(app),
		newAccountAddCmd(app),
		newAccountRemoveCmd(app),
		newAccountTierCmd(app),
		newAccountQuotaCmd(app),
		newAccountModelQuotaCmd(app),
		newAccountHealthCmd(app),
		newAccountBlockCmd(app),
		newAccountUnblockCmd(app),
		newAccountCredentialCmd(app),
	)

	return cmd
}

func newAccountListCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			statuses, err := app.service.GetStatusAll(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, statusesJSON(statuses))
			}

			rendered, err := app.statusRenderer(statuses, rankingadapter.RenderOptions{Now: app.now()})
			if err != nil {
				return fmt.Errorf("render accounts: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print accounts as JSON")

	return cmd
}

func newAccountAddCmd(app *app) *cobra.Command {
	var (
		email       string
		tier        string
		quota       int
		health      float64
		protected   []string
		modelQuotas map[string]int
	)

	cmd := &cobra.Command{
		Use:   "add [id]",
		Short: "Add an account to the pool",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := ""
			if len(args) == 1 {
				raw = args[0]
			}
			id, err := resolveAccountID(cmd.Context(), app, raw)
			if err != nil {
				return err
			}

			command := application.AddAccountCommand{
				ID:               id,
				Email:            email,
				SubscriptionTier: tier,
				HealthScore:      health,
				ModelQuotas:      modelQuotas,
				ProtectedModels:  protected,
			}
			if cmd.Flags().Changed("quota") {
				command.RemainingQuota = domain.QuotaPtr(quota)
			}
			if len(command.ModelQuotas) == 0 {
				command.ModelQuotas = nil
			}

			account, err := app.service.AddAccount(cmd.Context(), command)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added account %s (%s)\n", account.ID, account.Tier())
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email, used as display label")
	cmd.Flags().StringVar(&tier, "tier", "", "Subscription tier label, for example ULTRA, g1-pro-tier or free")
	cmd.Flags().IntVar(&quota, "quota", 0, "Remaining quota; omit when unknown")
	cmd.Flags().Float64Var(&health, "health", 1, "Health score in [0, 1]")
	cmd.Flags().StringSliceVar(&protected, "protected", nil, "Protected model names")
	cmd.Flags().StringToIntVar(&modelQuotas, "model-quota", nil, "Per-model quota overrides, model=quota")

	return cmd
}

func newAccountRemoveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove an account and its stored credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAccountArg(args[0])
			if err != nil {
				return err
			}

			if err := app.service.RemoveAccount(cmd.Context(), id); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed account %s\n", id)
			return nil
		},
	}
}

func newAccountTierCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tier <id> <label>",
		Short: "Set the subscription tier label",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAccountArg(args[0])
			if err != nil {
				return err
			}

			if err := app.service.SetTier(cmd.Context(), id, args[1]); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Account %s tier: %s\n", id, domain.ParseTier(args[1]))
			return nil
		},
	}
}

func newAccountQuotaCmd(app *app) *cobra.Command {
	var (
		consume int
		unknown bool
		resetAt string
	)

	cmd := &cobra.Command{
		Use:   "quota <id> [remaining]",
		Short: "Set, consume or clear the remaining quota",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAccountArg(args[0])
			if err != nil {
				return err
			}

			var reset time.Time
			if resetAt != "" {
				reset, err = time.Parse(time.RFC3339, resetAt)
				if err != nil {
					return fmt.Errorf("parse --reset-at: %w", err)
				}
			}

			var quota *int
			switch {
			case unknown:
				if len(args) == 2 || consume != 0 {
					return errors.New("--unknown cannot be combined with a quota value")
				}
			case consume != 0:
				if len(args) == 2 {
					return errors.New("--consume cannot be combined with a quota value")
				}
				quota, err = consumeQuota(cmd, app, id, consume)
				if err != nil {
					return err
				}
			case len(args) == 2:
				n, err := strconv.Atoi(strings.TrimSpace(args[1]))
				if err != nil {
					return fmt.Errorf("invalid quota %q", args[1])
				}
				quota = domain.QuotaPtr(n)
			default:
				return errors.New("quota value, --consume or --unknown is required")
			}

			if err := app.service.SetQuota(cmd.Context(), id, quota, reset); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Account %s quota: %s\n", id, formatQuota(quota))
			return nil
		},
	}

	cmd.Flags().IntVar(&consume, "consume", 0, "Subtract from the remaining quota, clamped at zero")
	cmd.Flags().BoolVar(&unknown, "unknown", false, "Mark the remaining quota as unknown")
	cmd.Flags().StringVar(&resetAt, "reset-at", "", "Quota reset time (RFC3339)")

	return cmd
}

// consumeQuota applies the decrement through the registry so the clamp rules
// match what request-time quota accounting does.
func consumeQuota(cmd *cobra.Command, app *app, id domain.AccountID, by int) (*int, error) {
	if by < 0 {
		return nil, fmt.Errorf("--consume must be positive, got %d", by)
	}
	if err := app.refreshRegistry(cmd.Context()); err != nil {
		return nil, err
	}

	account, err := app.registry.DecrementQuota(cmd.Context(), id, by)
	if err != nil {
		return nil, err
	}

	return account.Runtime.RemainingQuota, nil
}

func newAccountModelQuotaCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "model-quota <id> <model> <quota>",
		Short: "Set a per-model quota override",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAccountArg(args[0])
			if err != nil {
				return err
			}

			quota, err := strconv.Atoi(strings.TrimSpace(args[2]))
			if err != nil {
				return fmt.Errorf("invalid quota %q", args[2])
			}

			if err := app.service.SetModelQuota(cmd.Context(), id, args[1], quota); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Account %s quota for %s: %d\n", id, strings.TrimSpace(args[1]), quota)
			return nil
		},
	}
}

func newAccountHealthCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health <id> <score>",
		Short: "Set the health score in [0, 1]",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAccountArg(args[0])
			if err != nil {
				return err
			}

			score, err := strconv.ParseFloat(strings.TrimSpace(args[1]), 64)
			if err != nil {
				return fmt.Errorf("invalid health score %q", args[1])
			}

			if err := app.service.SetHealth(cmd.Context(), id, score); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Account %s health: %.2f\n", id, score)
			return nil
		},
	}
}

func newAccountBlockCmd(app *app) *cobra.Command {
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "block <id>",
		Short: "Exclude an account from selection for a while",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAccountArg(args[0])
			if err != nil {
				return err
			}

			until, err := app.service.Block(cmd.Context(), id, duration)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Blocked account %s until %s\n", id, until.UTC().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().DurationVar(&duration, "for", time.Hour, "Block duration")

	return cmd
}

func newAccountUnblockCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unblock <id>",
		Short: "Make a blocked account selectable again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAccountArg(args[0])
			if err != nil {
				return err
			}

			if err := app.service.Unblock(cmd.Context(), id); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Unblocked account %s\n", id)
			return nil
		},
	}
}

func newAccountCredentialCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Manage stored account credentials",
	}

	cmd.AddCommand(newAccountCredentialSetCmd(app))

	return cmd
}

func newAccountCredentialSetCmd(app *app) *cobra.Command {
	var (
		ref          string
		accessToken  string
		refreshToken string
		expiresAt    string
	)

	cmd := &cobra.Command{
		Use:   "set <id>",
		Short: "Store the token pair of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAccountArg(args[0])
			if err != nil {
				return err
			}

			credential := domain.Credential{AccessToken: accessToken, RefreshToken: refreshToken}
			if expiresAt != "" {
				credential.ExpiresAt, err = time.Parse(time.RFC3339, expiresAt)
				if err != nil {
					return fmt.Errorf("parse --expires-at: %w", err)
				}
			}

			if err := app.service.SetCredential(cmd.Context(), application.SetCredentialCommand{
				ID:         id,
				Ref:        ref,
				Credential: credential,
			}); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Stored credential for account %s\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&ref, "ref", "", "Credential reference (default accounts/<id>)")
	cmd.Flags().StringVar(&accessToken, "access-token", "", "Access token")
	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "Refresh token")
	cmd.Flags().StringVar(&expiresAt, "expires-at", "", "Access token expiry (RFC3339)")
	_ = cmd.MarkFlagRequired("access-token")

	return cmd
}

func formatQuota(quota *int) string {
	if quota == nil {
		return "unknown"
	}
	return strconv.Itoa(*quota)
}
