package commands

import (
	"github.com/spf13/cobra"

	"github.com/alfanzaky/acpagent/internal/domain"
	"github.com/alfanzaky/acpagent/pkg/auth"
	"github.com/alfanzaky/acpagent/pkg/utils"
)

func newTokenCommand(state *app) *cobra.Command {
	var (
		subject string
		scope   string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the agent's webhook or operator endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			service := auth.NewJWTAuthService(state.cfg.Auth)
			token, err := service.GenerateToken(subject, scope)
			if err != nil {
				return err
			}

			claims, err := service.ValidateToken(token)
			if err != nil {
				return err
			}

			if state.printer.json {
				return state.printer.printJSON(map[string]any{
					"token":      token,
					"subject":    claims.Subject,
					"scope":      claims.Scope,
					"expires_at": claims.ExpiresAt,
				})
			}

			if err := state.printer.printSummary("Token for %s (%s), expires %s", claims.Subject, claims.Scope, utils.FormatTime(claims.ExpiresAt)); err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write([]byte(token + "\n"))
			return err
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "acp-backend", "Token subject recorded as the caller")
	cmd.Flags().StringVar(&scope, "scope", domain.ScopeWebhook, "Token scope: WEBHOOK or ADMIN")

	return cmd
}
