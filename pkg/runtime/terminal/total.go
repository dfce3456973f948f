package terminal

import (
	"fmt"

	"github.com/de-tools/emr-cost/pkg/adapters"
	"github.com/de-tools/emr-cost/pkg/models/domain"
	"github.com/spf13/cobra"
)

type totalCmd struct {
	cli           *CLI
	createdAfter  string
	createdBefore string
}

func (cli *CLI) newTotalCmd() *cobra.Command {
	tc := &totalCmd{cli: cli}
	cmd := &cobra.Command{
		Use:   "total",
		Short: "Sum the cost of every cluster created in a date range",
		Args:  cobra.NoArgs,
		RunE:  tc.run,
	}

	cmd.Flags().StringVar(&tc.createdAfter, "created-after", "", "YYYY-MM-DD HH:MM (UTC)")
	cmd.Flags().StringVar(&tc.createdBefore, "created-before", "", "YYYY-MM-DD HH:MM (UTC)")

	_ = cmd.MarkFlagRequired("created-after")
	_ = cmd.MarkFlagRequired("created-before")

	return cmd
}

func (tc *totalCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	after, err := parseDate("created-after", tc.createdAfter)
	if err != nil {
		return err
	}
	before, err := parseDate("created-before", tc.createdBefore)
	if err != nil {
		return err
	}

	services, err := tc.cli.loadServices(ctx)
	if err != nil {
		return err
	}
	defer closeServices(ctx, services)

	total, costs, err := services.Calculator.ComputeTotalCostByDates(ctx, *after, *before)
	if err != nil {
		return fmt.Errorf("failed to compute total cost: %w", err)
	}

	report := adapters.MapTotalCostDomainToReport(total, costs, domain.TimePeriod{Start: after, End: before})
	return tc.cli.reporter.Handle(&report)
}
