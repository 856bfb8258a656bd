// Package commands implements the cachefile CLI.
package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/meigma/cachefile/internal/config"
	"github.com/meigma/cachefile/internal/output"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// app holds state shared by every subcommand of one invocation.
type app struct {
	cfgFile string
	format  string
	verbose bool

	cfg      *config.Config
	logger   *slog.Logger
	closeLog func() error
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cachefile",
		Short: "Build, inspect and publish Halo CE cache files",
		Long: `cachefile compiles a scenario and its tag tree into a cache file for one
engine target, loads and describes existing cache files, converts compression,
and publishes cache files with their resource maps to OCI registries.

Use "cachefile [command] --help" for more information about a command.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}

	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/cachefile/config.yaml)")
	cmd.PersistentFlags().StringVarP(&a.format, "format", "f", "table", "Output format (table|json|yaml)")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newEnginesCmd(a))
	cmd.AddCommand(newBuildCmd(a))
	cmd.AddCommand(newInfoCmd(a))
	cmd.AddCommand(newCompressCmd(a))
	cmd.AddCommand(newDecompressCmd(a))
	cmd.AddCommand(newPublishCmd(a))
	cmd.AddCommand(newPullCmd(a))
	cmd.AddCommand(newInspectCmd(a))
	cmd.AddCommand(newTagCmd(a))
	cmd.AddCommand(newCacheCmd(a))
	cmd.AddCommand(newConfigCmd(a))

	cmd.CompletionOptions.DisableDefaultCmd = true
	return cmd
}

// Execute runs the CLI. This is called by main.main().
func Execute() error {
	return NewRootCmd().Execute()
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Logging.Level = "DEBUG"
	}
	logger, closeLog, err := config.NewLogger(cfg.Logging, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	a.closeLog = closeLog
	return nil
}

func (a *app) teardown(*cobra.Command, []string) error {
	if a.closeLog == nil {
		return nil
	}
	return a.closeLog()
}

func (a *app) printer(cmd *cobra.Command) (*output.Printer, error) {
	f, err := output.ParseFormat(a.format)
	if err != nil {
		return nil, err
	}
	return output.NewPrinter(cmd.OutOrStdout(), f), nil
}
