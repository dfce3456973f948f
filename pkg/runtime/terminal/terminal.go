package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/de-tools/emr-cost/pkg/models/domain"
	"github.com/de-tools/emr-cost/pkg/runtime/bootstrap"
	"github.com/de-tools/emr-cost/pkg/services/config"
	"github.com/de-tools/emr-cost/pkg/services/registry"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// DateLayout is the format of every date flag, interpreted in UTC.
const DateLayout = "2006-01-02 15:04"

const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitIntegrity = 2
)

// ServiceFactory builds the cost services once the configuration is known.
type ServiceFactory func(ctx context.Context, cfg *config.Config) (*bootstrap.Services, error)

// CLI represents the command-line interface
type CLI struct {
	services ServiceFactory
	profiles registry.ProfileRegistry
	reporter *Reporter
	output   io.Writer
	logs     io.Writer
	rootCmd  *cobra.Command

	configPath string
	profile    string
	region     string
	verbose    bool
}

// Options contain configuration for the CLI
type Options struct {
	Services ServiceFactory
	Profiles registry.ProfileRegistry
	Output   io.Writer
	// LogOutput receives the console logs, stderr by default.
	LogOutput io.Writer
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stderr
	}

	cli := &CLI{
		services: opts.Services,
		profiles: opts.Profiles,
		reporter: NewReporter(opts.Output),
		output:   opts.Output,
		logs:     opts.LogOutput,
	}

	cli.rootCmd = cli.newRootCmd()
	return cli
}

// Execute runs the command line in args, or os.Args when args is nil.
func (cli *CLI) Execute(ctx context.Context, args []string) error {
	if args != nil {
		cli.rootCmd.SetArgs(args)
	}
	return cli.rootCmd.ExecuteContext(ctx)
}

// ExitCode maps a command error onto the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, domain.ErrDataIntegrity):
		return ExitIntegrity
	default:
		return ExitFailure
	}
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "emr-cost",
		Short:             "Historical cost of Amazon EMR clusters",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: cli.setupLogger,
	}
	cmd.SetOut(cli.output)

	flags := cmd.PersistentFlags()
	flags.StringVarP(&cli.configPath, "config", "c", "", "Path to a YAML config file")
	flags.StringVar(&cli.profile, "profile", "", "AWS shared config profile, overrides the config file")
	flags.StringVar(&cli.region, "region", "", "AWS region, overrides the config file")
	flags.BoolVarP(&cli.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(cli.newClusterCmd())
	cmd.AddCommand(cli.newTotalCmd())
	cmd.AddCommand(cli.newProfilesCmd())

	return cmd
}

func (cli *CLI) setupLogger(cmd *cobra.Command, _ []string) error {
	level := zerolog.InfoLevel
	if cli.verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: cli.logs, TimeFormat: time.TimeOnly}).
		Level(level).
		With().
		Timestamp().
		Logger()

	cmd.SetContext(logger.WithContext(cmd.Context()))
	return nil
}

func (cli *CLI) loadServices(ctx context.Context) (*bootstrap.Services, error) {
	if cli.services == nil {
		return nil, errors.New("no service factory configured")
	}

	cfg, err := config.Load(cli.configPath)
	if err != nil {
		return nil, err
	}
	if cli.profile != "" {
		cfg.Profile = cli.profile
	}
	if cli.region != "" {
		cfg.Region = cli.region
	}

	return cli.services(ctx, cfg)
}

func parseDate(flag, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(DateLayout, value, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s %q, expected format YYYY-MM-DD HH:MM", flag, value)
	}
	return &t, nil
}

func closeServices(ctx context.Context, services *bootstrap.Services) {
	if err := services.Close(); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to release resources")
	}
}
