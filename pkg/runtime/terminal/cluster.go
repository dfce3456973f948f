package terminal

import (
	"errors"
	"fmt"

	"github.com/de-tools/emr-cost/pkg/adapters"
	"github.com/spf13/cobra"
)

type clusterCmd struct {
	cli       *CLI
	clusterID string
	start     string
	end       string
	save      bool
	export    bool
}

func (cli *CLI) newClusterCmd() *cobra.Command {
	cc := &clusterCmd{cli: cli}
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Compute the cost breakdown of one cluster",
		Args:  cobra.NoArgs,
		RunE:  cc.run,
	}

	cmd.Flags().StringVar(&cc.clusterID, "cluster-id", "", "EMR cluster id (j-...)")
	cmd.Flags().StringVar(&cc.start, "start", "", "Start of the reporting window, YYYY-MM-DD HH:MM (UTC)")
	cmd.Flags().StringVar(&cc.end, "end", "", "End of the reporting window, YYYY-MM-DD HH:MM (UTC)")
	cmd.Flags().BoolVar(&cc.save, "save", false, "Persist the breakdown to storage.dsn")
	cmd.Flags().BoolVar(&cc.export, "export", false, "Upload the breakdown as JSON to export.bucket")

	_ = cmd.MarkFlagRequired("cluster-id")

	return cmd
}

func (cc *clusterCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	start, err := parseDate("start", cc.start)
	if err != nil {
		return err
	}
	end, err := parseDate("end", cc.end)
	if err != nil {
		return err
	}

	services, err := cc.cli.loadServices(ctx)
	if err != nil {
		return err
	}
	defer closeServices(ctx, services)

	if cc.save && services.Store == nil {
		return errors.New("--save requires storage.dsn to be configured")
	}
	if cc.export && services.Exporter == nil {
		return errors.New("--export requires export.bucket to be configured")
	}

	result, err := services.Calculator.ComputeClusterCost(ctx, cc.clusterID, start, end)
	if err != nil {
		return fmt.Errorf("failed to compute cost of %s: %w", cc.clusterID, err)
	}

	report := adapters.MapClusterCostDomainToReport(*result)
	if err := cc.cli.reporter.Handle(&report); err != nil {
		return err
	}

	if cc.save {
		runID, err := services.Store.Save(ctx, result)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved as run %s\n", runID)
	}
	if cc.export {
		location, err := services.Exporter.Export(ctx, result)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", location)
	}

	return nil
}
