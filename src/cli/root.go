package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"griffon/src/directors"
	"griffon/src/helpers"
	"griffon/src/settings"
)

// app is the state shared by the subcommands of one root command.
type app struct {
	args     *settings.Arguments
	out      io.Writer
	logger   *zap.SugaredLogger
	registry *prometheus.Registry
	manager  *directors.ServiceManager
}

// Execute runs the griffon command line with the process settings.
func Execute() error {
	return NewRootCommand(settings.GetSettings(), os.Stdout).Execute()
}

// NewRootCommand builds the griffon command tree writing results to out.
func NewRootCommand(args *settings.Arguments, out io.Writer) *cobra.Command {
	a := &app{args: args, out: out}

	root := &cobra.Command{
		Use:           "griffon",
		Short:         "Validate and query domain rows against declared constraints",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}

	root.PersistentFlags().BoolVar(&args.Debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&args.Verbose, "verbose", false, "Enable verbose logging")
	root.PersistentFlags().BoolVar(&args.FailOnError, "fail-on-error", false, "Stop at the first row that fails validation")
	root.PersistentFlags().StringVar(&args.ConstraintsFile, "config", "", "YAML file declaring classes and constraints")
	root.PersistentFlags().StringVar(&args.DatastoreName, "datastore", "", "Datastore name (default from config)")

	root.AddCommand(validateCmd(a), queryCmd(a))
	return root
}

func (a *app) setup() error {
	// results go to stdout, logs must not mix with them
	logger, err := helpers.NewLogger(a.args.Debug, "stderr")
	if err != nil {
		return err
	}
	a.logger = logger

	if a.args.ConstraintsFile == "" {
		return fmt.Errorf("--config is required")
	}
	cfg, err := settings.LoadConfig(a.args.ConstraintsFile)
	if err != nil {
		return err
	}
	a.args.Apply(cfg)
	defaults, err := cfg.Constraints()
	if err != nil {
		return err
	}

	if a.args.Verbose {
		a.logger.Infow("Griffon starting",
			"config", a.args.ConstraintsFile,
			"datastore", a.args.DatastoreName,
			"failOnError", a.args.FailOnError,
			"classes", cfg.ClassNames())
	}

	a.registry = prometheus.NewRegistry()
	a.manager, err = directors.NewServiceManager(a.args, defaults, a.registry, a.logger)
	if err != nil {
		return err
	}
	return a.manager.RegisterConfig(cfg)
}

func requireFlag(name, value string) error {
	if value == "" {
		return fmt.Errorf("--%s is required", name)
	}
	return nil
}
