package terminal

import (
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func (cli *CLI) newProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the AWS profiles found in the shared config files",
		Args:  cobra.NoArgs,
		RunE:  cli.runProfiles,
	}
}

func (cli *CLI) runProfiles(cmd *cobra.Command, _ []string) error {
	if cli.profiles == nil {
		return errors.New("no profile registry configured")
	}

	profiles, err := cli.profiles.GetProfiles()
	if err != nil {
		return fmt.Errorf("failed to read AWS profiles: %w", err)
	}
	if len(profiles) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No AWS profiles found")
		return nil
	}

	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"Profile", "Source", "Region"})
	for _, p := range profiles {
		tw.AppendRow(table.Row{p.Name, p.Source, p.Region})
	}
	tw.SetStyle(table.StyleRounded)

	_, err = fmt.Fprintln(cmd.OutOrStdout(), tw.Render())
	return err
}
