// Package main implements pkroute, a command line tool for computing
// effective partition keys and managing partition key routing maps.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arkilian/pkrouting/internal/config"
)

var (
	version = "dev"
	commit  = "unknown"
)

// cli carries state shared by all subcommands.
type cli struct {
	configFile   string
	dataDir      string
	logLevel     string
	snapshotPath string
	strict       bool

	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "pkroute",
		Short:         "Partition key routing toolkit",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flags.StringVar(&c.dataDir, "data-dir", "", "Base directory for data files")
	flags.StringVar(&c.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&c.snapshotPath, "snapshot-db", "", "Path to the routing snapshot database")
	flags.BoolVar(&c.strict, "strict", false, "Reject keys with more components than partition key paths")

	root.AddCommand(
		c.epkCmd(),
		c.rangeCmd(),
		c.splitCmd(),
		c.widthCmd(),
		c.hashCmd(),
		c.routeCmd(),
		c.snapshotCmd(),
		versionCmd(),
	)
	return root
}

// load builds the configuration from file, environment and flags, in
// increasing priority.
func (c *cli) load(cmd *cobra.Command) error {
	var err error
	if c.configFile != "" {
		c.cfg, err = config.LoadFromFile(c.configFile)
		if err != nil {
			return fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		c.cfg = config.DefaultConfig()
	}

	config.LoadFromEnv(c.cfg)

	if c.dataDir != "" {
		c.cfg.DataDir = c.dataDir
	}
	if c.logLevel != "" {
		c.cfg.Logging.Level = c.logLevel
	}
	if c.snapshotPath != "" {
		c.cfg.Routing.SnapshotPath = c.snapshotPath
	}
	if cmd.Flags().Changed("strict") {
		c.cfg.Routing.StrictArity = c.strict
	}

	c.cfg.Resolve()
	if err := c.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	c.logger, err = c.cfg.NewLogger()
	if err != nil {
		return err
	}
	c.logger.Debug("configuration loaded",
		zap.String("data_dir", c.cfg.DataDir),
		zap.String("snapshot_path", c.cfg.Routing.SnapshotPath),
		zap.Strings("containers", c.cfg.ContainerNames()))
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pkroute version %s (commit: %s)\n", version, commit)
		},
	}
}
