package commands

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfanzaky/acpagent/internal/domain"
	"github.com/alfanzaky/acpagent/pkg/utils"
)

func newAgentsCommand(state *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Search the ACP agent registry",
	}
	cmd.AddCommand(newAgentsBrowseCommand(state))
	return cmd
}

func newAgentsBrowseCommand(state *app) *cobra.Command {
	var (
		query  domain.BrowseAgentsQuery
		sortBy []string
		grad   string
		online string
	)

	cmd := &cobra.Command{
		Use:   "browse <keyword>",
		Short: "Browse agents matching a keyword",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query.Keyword = args[0]
			query.GraduationStatus = domain.GraduationStatus(grad)
			query.OnlineStatus = domain.OnlineStatus(online)
			query.SortBy = nil
			for _, s := range sortBy {
				query.SortBy = append(query.SortBy, domain.AgentSort(strings.TrimSpace(s)))
			}

			agents, err := state.client.BrowseAgents(cmd.Context(), query)
			if err != nil {
				return err
			}

			if state.printer.json {
				return state.printer.printJSON(agents)
			}

			rows := make([][]string, 0, len(agents))
			for _, agent := range agents {
				rows = append(rows, []string{
					strconv.FormatInt(agent.ID, 10),
					utils.TruncateString(agent.Name, 32),
					utils.ShortenAddress(agent.WalletAddress),
					strconv.Itoa(len(agent.Offerings)),
					agent.Cluster,
				})
			}
			if err := state.printer.printTable([]string{"id", "name", "wallet", "offerings", "cluster"}, rows); err != nil {
				return err
			}
			return state.printer.printSummary("%d agent(s) found", len(agents))
		},
	}

	cmd.Flags().StringVar(&query.Cluster, "cluster", "", "Restrict to a cluster")
	cmd.Flags().IntVar(&query.TopK, "top-k", 0, "Maximum number of agents")
	cmd.Flags().StringSliceVar(&sortBy, "sort-by", nil, "Ranking keys, e.g. successfulJobCount,successRate")
	cmd.Flags().StringVar(&grad, "graduation", "", "graduated, not_graduated or all")
	cmd.Flags().StringVar(&online, "online", "", "online, offline or all")

	return cmd
}
