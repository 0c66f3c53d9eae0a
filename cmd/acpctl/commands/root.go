// Package commands implements acpctl, the operator CLI for an ACP agent.
package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfanzaky/acpagent/config"
	"github.com/alfanzaky/acpagent/internal/adapter/acp"
	"github.com/alfanzaky/acpagent/internal/domain"
	"github.com/alfanzaky/acpagent/internal/usecase"
)

const cliExecutable = "acpctl"

// app carries what every subcommand needs once flags are parsed
type app struct {
	cfg       *config.Config
	client    domain.ACPClient
	initiator domain.JobInitiationUsecase
	printer   *printer
}

// NewCommand constructs the top-level acpctl command
func NewCommand() *cobra.Command {
	return newCommand(&app{})
}

func newCommand(state *app) *cobra.Command {
	var (
		output  string
		noColor bool
		wallet  string
	)

	cmd := &cobra.Command{
		Use:   cliExecutable,
		Short: "acpctl inspects and operates an ACP agent",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			output = strings.ToLower(strings.TrimSpace(output))
			if output != "table" && output != "json" {
				return fmt.Errorf("invalid output mode: %s (must be 'json' or 'table')", output)
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			if wallet != "" {
				cfg.Agent.WalletAddress = wallet
			}

			state.cfg = cfg
			state.client = acp.NewClient(cfg.ACP, cfg.Agent.WalletAddress, nil)
			state.initiator = usecase.NewJobInitiationUsecase(
				usecase.NewAgentUsecase(state.client, nil, 0),
				acp.NewRelay(cfg.ACP, cfg.Agent, nil),
				cfg.Agent.WalletAddress,
			)
			state.printer = &printer{
				stdout: cmd.OutOrStdout(),
				stderr: cmd.ErrOrStderr(),
				json:   output == "json",
				color:  !noColor && output == "table",
			}
			return nil
		},
	}

	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	cmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format: table or json")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.PersistentFlags().StringVar(&wallet, "wallet", "", "Act as this wallet address instead of AGENT_WALLET_ADDRESS")

	cmd.AddCommand(newTokenCommand(state))
	cmd.AddCommand(newAgentsCommand(state))
	cmd.AddCommand(newJobsCommand(state))

	return cmd
}

// Execute runs acpctl and returns the process exit code
func Execute() int {
	state := &app{}
	if err := newCommand(state).Execute(); err != nil {
		if state.printer != nil {
			state.printer.printError(err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}
