package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/magiclink/internal/server"
	"github.com/dmitrymomot/magiclink/internal/vendors"
	"github.com/dmitrymomot/magiclink/pkg/metrics"
	"github.com/dmitrymomot/magiclink/pkg/ratelimit"
	"github.com/dmitrymomot/magiclink/pkg/redis"
	"github.com/dmitrymomot/magiclink/pkg/verification"
)

var errNoToken = errors.New("SERVER_TOKEN is required (use --insecure to run without auth)")

func newServeCmd(a *app) *cobra.Command {
	var (
		addr     string
		insecure bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the verification webhook service",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) (err error) {
			ctx := cmd.Context()
			cfg := a.cfg
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if cfg.Server.Token == "" && !insecure {
				return errNoToken
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			m, err := metrics.New(reg)
			if err != nil {
				return err
			}

			opts := []server.Option{
				server.WithLogger(a.log),
				server.WithToken(cfg.Server.Token),
				server.WithMetrics(m),
				server.WithMaxAge(cfg.MaxAge),
			}
			var limiter verification.Limiter
			runCfg := server.RunConfig{
				Logger:          a.log,
				Addr:            cfg.Server.Addr,
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
			}

			// Until server.Run owns the shutdown hooks, a failed setup
			// releases what it opened.
			started := false
			defer func() {
				if err != nil && !started {
					_ = runShutdownHooks(context.WithoutCancel(ctx), runCfg.ShutdownHooks)
				}
			}()

			if cfg.RateLimited() {
				if cfg.Redis.URL != "" {
					client, err := a.openRedis(ctx, cfg.Redis)
					if err != nil {
						return err
					}
					runCfg.ShutdownHooks = append(runCfg.ShutdownHooks, redis.Closer(client))
					opts = append(opts, server.WithCheck("redis", redis.Healthcheck(client)))

					limiter, err = ratelimit.NewRedis(client, cfg.RateLimit)
					if err != nil {
						return err
					}
				} else {
					a.log.Warn("REDIS_URL not set, rate limits are per process")
					limiter, err = ratelimit.NewMemory(cfg.RateLimit)
					if err != nil {
						return err
					}
				}
			}

			d, err := vendors.Build(cfg, vendors.Deps{
				Client:  &http.Client{},
				Logger:  a.log,
				Limiter: limiter,
				Metrics: m,
			})
			if err != nil {
				return err
			}

			a.log.Info("magiclink ready",
				slog.String("vendor", verification.VendorName(d)),
				slog.Bool("auth", cfg.Server.Token != ""),
				slog.Bool("rate_limit", limiter != nil),
			)
			started = true
			return server.Run(ctx, server.New(d, opts...).Handler(), runCfg)
		}),
	}

	cmd.Flags().StringVar(&addr, "addr", "", "override SERVER_ADDR")
	cmd.Flags().BoolVar(&insecure, "insecure", false, "allow running without SERVER_TOKEN")
	return cmd
}

func runShutdownHooks(ctx context.Context, hooks []func(context.Context) error) error {
	var errs []error
	for _, hook := range hooks {
		errs = append(errs, hook(ctx))
	}
	return errors.Join(errs...)
}
