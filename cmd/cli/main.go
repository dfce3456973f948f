package main

import (
	"context"
	"fmt"
	"os"

	"github.com/de-tools/emr-cost/pkg/runtime/bootstrap"
	"github.com/de-tools/emr-cost/pkg/runtime/terminal"
	"github.com/de-tools/emr-cost/pkg/services/config"
	"github.com/de-tools/emr-cost/pkg/services/registry"
)

func main() {
	cli := terminal.NewCLI(terminal.Options{
		Services: func(ctx context.Context, cfg *config.Config) (*bootstrap.Services, error) {
			return bootstrap.NewServices(ctx, cfg, nil)
		},
		Profiles: registry.NewProfileRegistry(registry.DefaultPaths()),
		Output:   os.Stdout,
	})

	if err := cli.Execute(context.Background(), nil); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(terminal.ExitCode(err))
	}
}
