package cli

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"scrapbook/internal/api"
	"scrapbook/internal/assets"
	"scrapbook/internal/backup"
	"scrapbook/internal/service"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr, staticDir string
	var noBackups bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API",
		Long: `Serve the album and page API, Prometheus metrics on /metrics and,
when configured, the built frontend. Scheduled backups run in the same
process when backup.enabled is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			cfg := opts.cfg
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if staticDir != "" {
				cfg.Server.StaticDir = staticDir
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			metrics := api.NewMetrics(reg)

			emitter := service.MultiEmitter{service.LogEmitter{Logger: logger.WithPrefix("events")}, metrics}
			st, err := openStack(ctx, cfg, emitter)
			if err != nil {
				return err
			}
			defer st.Close()

			srv := api.New(api.Options{
				Albums:    st.albums,
				Pages:     st.pages,
				Logger:    logger,
				Metrics:   metrics,
				Gatherer:  reg,
				StaticDir: cfg.Server.StaticDir,
			})

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.ListenAndServe(ctx, cfg.Server.Addr) })

			lib, err := assets.Open(cfg.Assets.Dir, cfg.Assets.QuotaBytes, logger)
			if err != nil {
				logger.Warn("asset library unavailable", "dir", cfg.Assets.Dir, "err", err)
			} else {
				g.Go(func() error {
					return lib.Watch(ctx, func(k assets.Kind) {
						logger.Info("asset library reloaded", "kind", k, "bytes", lib.Usage())
					})
				})
			}

			if cfg.Backup.Enabled && !noBackups {
				sinks, closeSinks, err := backupSinks(ctx, cfg.Backup)
				if err != nil {
					return err
				}
				defer closeSinks()
				sched, err := backup.Schedule(ctx, backup.NewRunner(st.albums, sinks, logger), cfg.Backup.Schedule)
				if err != nil {
					return err
				}
				g.Go(func() error {
					<-ctx.Done()
					return sched.Stop(context.WithoutCancel(ctx))
				})
			}

			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().StringVar(&staticDir, "static", "", "frontend build directory (overrides server.static_dir)")
	cmd.Flags().BoolVar(&noBackups, "no-backups", false, "do not run scheduled backups")
	return cmd
}
