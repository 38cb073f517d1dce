package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/edgetag/auth"
	"github.com/jonwraymond/edgetag/config"
	"github.com/jonwraymond/edgetag/eventbus"
	"github.com/jonwraymond/edgetag/health"
	"github.com/jonwraymond/edgetag/observe"
	"github.com/jonwraymond/edgetag/server"
)

const drainTimeout = 30 * time.Second

func newServeCmd(g *globalFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the tagging proxy, admin API and event subscriber",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address; overrides server.addr")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) (err error) {
	a, err := newApp(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
		defer cancel()
		if cerr := a.close(drainCtx); cerr != nil && err == nil {
			err = cerr
		}
	}()

	agg := health.NewAggregator()
	agg.Register(a.cloudflare.Name(), a.cloudflare)

	opts := []server.Option{
		server.WithLogger(a.logger),
		server.WithHealth(agg),
	}
	if h := a.metricsHandler(); h != nil {
		opts = append(opts, server.WithMetricsHandler(h))
	}

	var bus *eventbus.Bus
	if cfg.Events.Redis.Addr != "" {
		bus, err = eventbus.New(eventbus.Config{
			Addr:     cfg.Events.Redis.Addr,
			Password: cfg.Events.Redis.Password,
			DB:       cfg.Events.Redis.DB,
			Channel:  cfg.Events.Redis.Channel,
		}, a.logger)
		if err != nil {
			return err
		}
		defer bus.Close()
		agg.Register("redis", health.NewPingChecker("redis", bus))
		opts = append(opts, server.WithPublisher(bus))
	}

	if cfg.AdminEnabled() {
		admin, err := auth.NewAdminAuthenticator(auth.AdminConfig{
			APIKeys:   cfg.Admin.APIKeys,
			JWTSecret: cfg.Admin.JWTSecret,
			JWTIssuer: cfg.Admin.JWTIssuer,
		})
		if err != nil {
			return err
		}
		opts = append(opts, server.WithAdmin(admin))
	}

	srv, err := server.New(server.Config{
		Addr:              cfg.Server.Addr,
		Upstream:          cfg.Server.Upstream,
		UpstreamTagHeader: cfg.Server.UpstreamTagHeader,
	}, a.hooks, opts...)
	if err != nil {
		return err
	}

	var sub *eventbus.Subscription
	if bus != nil {
		if sub, err = bus.Subscribe(ctx); err != nil {
			return err
		}
		defer sub.Close()
		a.logger.Info(ctx, "subscribed to invalidation events", observe.F("channel", bus.Channel()))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	if sub != nil {
		g.Go(func() error { return sub.Run(gctx, a.hooks.FireAfterCacheInvalidated) })
	}
	return g.Wait()
}
