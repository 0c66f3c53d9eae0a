package commands

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfanzaky/acpagent/internal/domain"
	"github.com/alfanzaky/acpagent/pkg/utils"
)

func newJobsCommand(state *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect the agent's ACP jobs",
	}
	cmd.AddCommand(newJobsListCommand(state))
	cmd.AddCommand(newJobsGetCommand(state))
	cmd.AddCommand(newJobsInitiateCommand(state))
	return cmd
}

func newJobsListCommand(state *app) *cobra.Command {
	var (
		status   string
		phase    string
		page     int
		pageSize int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active, completed or cancelled jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			listing := domain.JobListStatus(status)
			switch listing {
			case domain.JobListActive, domain.JobListCompleted, domain.JobListCancelled:
			default:
				return fmt.Errorf("invalid status %q (must be active, completed or cancelled)", status)
			}

			jobs, err := state.client.ListJobs(cmd.Context(), listing, page, pageSize)
			if err != nil {
				return err
			}
			if phase != "" {
				want, err := domain.ParseJobPhase(phase)
				if err != nil {
					return err
				}
				filtered := jobs[:0]
				for _, job := range jobs {
					if job.Phase == want {
						filtered = append(filtered, job)
					}
				}
				jobs = filtered
			}

			if state.printer.json {
				return state.printer.printJSON(jobs)
			}

			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				rows = append(rows, []string{
					strconv.FormatInt(job.ID, 10),
					state.printer.phaseColor(job.Phase.String()),
					utils.FormatAmount(job.Price),
					utils.ShortenAddress(job.ClientAddress),
					utils.ShortenAddress(job.ProviderAddress),
					strconv.Itoa(len(job.Memos)),
				})
			}
			if err := state.printer.printTable([]string{"id", "phase", "price", "client", "provider", "memos"}, rows); err != nil {
				return err
			}
			return state.printer.printSummary("%d %s job(s) on page %d", len(jobs), status, page)
		},
	}

	cmd.Flags().StringVar(&status, "status", string(domain.JobListActive), "active, completed or cancelled")
	cmd.Flags().StringVar(&phase, "phase", "", "Only show jobs in this phase, e.g. NEGOTIATION")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 10, "Jobs per page")

	return cmd
}

func newJobsGetCommand(state *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a job and its memos",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || jobID <= 0 {
				return fmt.Errorf("invalid job id %q", args[0])
			}

			job, err := state.client.GetJob(cmd.Context(), jobID)
			if err != nil {
				return err
			}

			if state.printer.json {
				return state.printer.printJSON(job)
			}

			if err := state.printer.printSummary("Job %d is in %s, price %s", job.ID, job.Phase, utils.FormatAmount(job.Price)); err != nil {
				return err
			}

			rows := make([][]string, 0, len(job.Memos))
			for _, memo := range job.Memos {
				if memo == nil {
					continue
				}
				rows = append(rows, []string{
					strconv.FormatInt(memo.ID, 10),
					state.printer.phaseColor(memo.NextPhase.String()),
					string(memo.Status),
					utils.TruncateString(memo.Content, 48),
				})
			}
			return state.printer.printTable([]string{"memo", "next phase", "status", "content"}, rows)
		},
	}
}

func newJobsInitiateCommand(state *app) *cobra.Command {
	var (
		provider    string
		offering    string
		requirement string
		evaluator   string
		expiresIn   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "initiate",
		Short: "Open a job with another agent's offering",
		Example: `  acpctl jobs initiate --provider 0x... --offering "Find Yields" \
    --requirement '{"asset":"USDC","amount":1000}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := domain.InitiateJobRequest{
				ProviderAddress:  provider,
				OfferingName:     offering,
				Requirement:      parseRequirement(requirement),
				EvaluatorAddress: evaluator,
			}
			if expiresIn > 0 {
				req.ExpiredAt = time.Now().Add(expiresIn)
			}

			job, err := state.initiator.Initiate(cmd.Context(), req)
			if err != nil {
				return err
			}

			if state.printer.json {
				return state.printer.printJSON(job)
			}
			return state.printer.printSummary("Job %d opened with %s for %q at %s, expires %s",
				job.JobID,
				utils.ShortenAddress(job.ProviderAddress),
				job.Offering,
				utils.FormatAmount(job.Price),
				utils.FormatTime(job.ExpiredAt),
			)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Wallet address of the providing agent")
	cmd.Flags().StringVar(&offering, "offering", "", "Offering name; may be omitted when the provider has only one")
	cmd.Flags().StringVar(&requirement, "requirement", "", "Service requirement as JSON or plain text")
	cmd.Flags().StringVar(&evaluator, "evaluator", "", "Evaluator wallet address (default: this agent)")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "How long the provider has to finish (default 24h)")
	_ = cmd.MarkFlagRequired("provider")
	_ = cmd.MarkFlagRequired("requirement")

	return cmd
}

// parseRequirement keeps JSON objects structured and anything else as text.
func parseRequirement(raw string) interface{} {
	var object map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &object); err == nil && object != nil {
		return object
	}
	return raw
}
