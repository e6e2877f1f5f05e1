// Package app wires configuration, sources and emitters into the netprobe
// command line.
package app

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kubesonde/netprobe/internal/config"
	"github.com/kubesonde/netprobe/internal/logging"
	"github.com/kubesonde/netprobe/internal/proc"
	"github.com/kubesonde/netprobe/internal/tracker"
)

var (
	version   = "dev"
	commit    = ""
	buildDate = ""
)

// SetVersionBuildCommitString records the values injected at link time.
func SetVersionBuildCommitString(v, c, d string) {
	if v != "" {
		version = v
	}
	commit = c
	buildDate = d
}

func versionString() string {
	s := "netprobe " + version
	if commit != "" {
		s += " (commit " + commit + ")"
	}
	if buildDate != "" {
		s += " built " + buildDate
	}
	return s + " " + runtime.Version()
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

type sourceFactory func(cfg config.Config, logger *zap.Logger) (proc.Source, error)

func newSource(cfg config.Config, logger *zap.Logger) (proc.Source, error) {
	return proc.New(cfg.Source, cfg.ProcRoot, logger)
}

// globalArgs is shared by every subcommand once the persistent pre-run has
// resolved configuration.
type globalArgs struct {
	v          *viper.Viper
	configFile string
	newSource  sourceFactory

	cfg    config.Config
	logger *zap.Logger
}

func (g *globalArgs) load() error {
	cfg, err := config.Load(g.v, g.configFile)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	g.cfg = cfg
	g.logger = logger
	return nil
}

func (g *globalArgs) trackerOptions() tracker.Options {
	return tracker.Options{ExcludeLoopback: g.cfg.ExcludeLoopback}
}

// NewRootCommand returns the netprobe command tree. Without a subcommand it
// behaves like "run".
func NewRootCommand() *cobra.Command {
	return newRootCommand(newSource)
}

func newRootCommand(factory sourceFactory) *cobra.Command {
	g := &globalArgs{v: viper.New(), newSource: factory}
	config.SetDefaults(g.v)

	cmd := &cobra.Command{
		Use:   "netprobe",
		Short: "Track the serving sockets of a host",
		Long: `netprobe periodically snapshots the sockets of the host, keeps every
listening TCP socket and unconnected UDP socket it has ever seen, and reports
the accumulated set to stdout and/or an HTTP collector after each cycle.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd.Context(), g, cmd.OutOrStdout())
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&g.configFile, "config", "c", "", "path to a YAML config file")
	flags.Duration("interval", 10*time.Second, "time between snapshots")
	flags.String("source", proc.KindGopsutil, "socket source: gopsutil or procfs")
	flags.String("proc-root", proc.DefaultProcRoot(), "procfs mount point used by the procfs source")
	flags.Bool("exclude-loopback", false, "ignore sockets bound to loopback addresses")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("log-format", "console", "log format: console or json")
	flags.Bool("http", false, "post the state to the collector after each cycle")
	flags.String("endpoint", config.DefaultEndpoint, "collector endpoint")
	flags.Bool("stdout", true, "print the state as a JSON line after each cycle")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	// Only fails if a flag name above and the config keys drift apart.
	cobra.CheckErr(config.BindFlags(g.v, flags))

	cmd.AddCommand(
		newRunCommand(g),
		newOnceCommand(g),
		newWatchCommand(g),
		newVersionCommand(),
	)
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version info",
		Args:  cobra.NoArgs,
		// Printing the version needs no configuration.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), versionString())
			return err
		},
	}
}
