package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kubesonde/netprobe/internal/agent"
	"github.com/kubesonde/netprobe/internal/host"
	"github.com/kubesonde/netprobe/internal/output"
	"github.com/kubesonde/netprobe/internal/telemetry"
	"github.com/kubesonde/netprobe/internal/tracker"
	"github.com/kubesonde/netprobe/internal/tui"
)

func newRunCommand(g *globalArgs) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the tracking loop until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd.Context(), g, cmd.OutOrStdout())
		},
	}
}

func runAgent(ctx context.Context, g *globalArgs, stdout io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger := g.cfg, g.logger
	defer logger.Sync() //nolint:errcheck

	source, err := g.newSource(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create %s source: %w", cfg.Source, err)
	}
	identity := host.Detect(cfg.PodName)
	metrics := telemetry.NewMetrics()

	grp, ctx := errgroup.WithContext(ctx)

	emitters := output.NewMulti(logger, metrics)
	if cfg.Stdout.Enabled {
		emitters.Add(output.NewWriter(stdout, logger, metrics))
	}
	if cfg.HTTP.Enabled {
		h := output.NewHTTP(output.HTTPConfig{
			Endpoint: cfg.HTTP.Endpoint,
			Timeout:  cfg.HTTP.Timeout,
			Version:  version,
		}, identity, logger, metrics)
		emitters.Add(h)
		grp.Go(func() error { return h.Run(ctx) })
	}
	if emitters.Len() == 0 {
		logger.Warn("no emitter enabled, state is only tracked in memory")
	}
	if cfg.Metrics.Addr != "" {
		// The metrics endpoint is auxiliary: losing it must not stop tracking.
		grp.Go(func() error {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, logger); err != nil {
				logger.Error("metrics endpoint stopped", zap.String("addr", cfg.Metrics.Addr), zap.Error(err))
			}
			return nil
		})
	}

	logger.Info("netprobe starting",
		zap.String("version", version),
		zap.String("pod", identity.PodName),
		zap.String("runtime", string(identity.Runtime)),
		zap.String("run_id", identity.RunID),
		zap.String("source", cfg.Source),
	)

	a := agent.New(source, emitters, cfg.Interval,
		agent.WithLogger(logger),
		agent.WithMetrics(metrics),
		agent.WithTrackerOptions(g.trackerOptions()),
	)
	grp.Go(func() error { return a.Run(ctx) })

	return grp.Wait()
}

func newOnceCommand(g *globalArgs) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "once",
		Short: "Print the serving sockets of a single snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := g.newSource(g.cfg, g.logger)
			if err != nil {
				return fmt.Errorf("failed to create %s source: %w", g.cfg.Source, err)
			}
			records, err := source.Snapshot(cmd.Context())
			if err != nil {
				return fmt.Errorf("snapshot failed: %w", err)
			}
			res := tracker.New(g.trackerOptions()).Step(records, nil)

			out := cmd.OutOrStdout()
			if asJSON {
				data, err := output.ToJSON(res.State.Records())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(out, "%s\n", data)
				return err
			}
			return output.RenderTable(out, res.State.Records())
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the wire JSON instead of a table")
	return cmd
}

func newWatchCommand(g *globalArgs) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Show the accumulated serving sockets in a live view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := g.newSource(g.cfg, g.logger)
			if err != nil {
				return fmt.Errorf("failed to create %s source: %w", g.cfg.Source, err)
			}
			return tui.Start(source, g.trackerOptions(), g.cfg.Interval, version)
		},
	}
}
