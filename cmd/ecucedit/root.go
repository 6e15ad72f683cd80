package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dshills/ecucedit/internal/app"
	"github.com/dshills/ecucedit/internal/config"
	"github.com/dshills/ecucedit/internal/logging"
)

// errSilent fails a command whose output already explains the failure.
var errSilent = errors.New("failed")

// cli holds the global flags and what they resolve to.
type cli struct {
	configPath string
	logLevel   string
	noColor    bool

	cfg *config.Config
	log *logging.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "ecucedit [file]",
		Short: "Edit AUTOSAR ECUC configuration files",
		Long: `ecucedit edits AUTOSAR ECUC configuration (ARXML) files as text and as
an element tree kept in sync with each other.

Without a subcommand it opens the editor.

Examples:
  ecucedit Dio.arxml                   # Edit a file
  ecucedit format --write Dio.arxml    # Reformat in place
  ecucedit validate Dio.arxml          # Structural and rule checks
  ecucedit extract -o yaml Dio.arxml   # Dump parameter values
  ecucedit header Dio.arxml            # Print the C configuration header`,
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return c.setup(cmd) },
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runEdit(cmd, args, "")
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", "", "configuration file (default: user config dir)")
	flags.StringVar(&c.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.BoolVar(&c.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		c.editCmd(),
		c.formatCmd(),
		c.validateCmd(),
		c.extractCmd(),
		c.headerCmd(),
		versionCmd(),
	)
	return root
}

// setup loads the configuration and creates the logger.
func (c *cli) setup(cmd *cobra.Command) error {
	if c.noColor {
		color.NoColor = true
	}
	path := c.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	c.cfg = cfg
	c.log = logging.New(logging.Config{
		Level:  cfg.LogLevel(),
		Output: cmd.ErrOrStderr(),
		Prefix: "ecucedit",
	})
	return nil
}

// rulesBase is the directory relative rule paths are resolved against.
func (c *cli) rulesBase() string {
	if c.configPath == "" {
		if p := config.DefaultPath(); p != "" {
			return filepath.Dir(p)
		}
		return ""
	}
	return filepath.Dir(c.configPath)
}

// batchOptions tailors app options for one-shot commands: no watcher and
// no automatic rebuilds.
type batchOptions struct {
	extraRules []string
	now        func() time.Time
}

// openBatch creates an application and opens path. Any open failure,
// including a parse error, is returned.
func (c *cli) openBatch(path string, bo batchOptions) (*app.Application, error) {
	cfg := *c.cfg
	cfg.Files.Watch = false
	cfg.Sync.Enabled = false
	cfg.Rules.Paths = append([]string(nil), c.cfg.Rules.Paths...)
	for _, p := range bo.extraRules {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		cfg.Rules.Paths = append(cfg.Rules.Paths, abs)
	}

	a, err := app.New(app.Options{
		Config:    &cfg,
		Logger:    c.log,
		RulesBase: c.rulesBase(),
		Now:       bo.now,
	})
	if err != nil {
		return nil, err
	}
	if err := a.Open(path); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "ecucedit %s\n", version)
	fmt.Fprintf(w, "Commit: %s\n", commit)
	fmt.Fprintf(w, "Built: %s\n", date)
}
