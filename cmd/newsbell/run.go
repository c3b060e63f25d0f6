package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/newsbell/internal/api"
	"github.com/abelbrown/newsbell/internal/config"
	"github.com/abelbrown/newsbell/internal/coord"
	"github.com/abelbrown/newsbell/internal/otel"
)

func runCommand() *cobra.Command {
	var noAPI bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the refresh loop until interrupted",
		Long: `Run one cycle immediately, then one per refresh interval. Edits to the
config file apply without a restart. The HTTP API is served on api.addr
unless disabled.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e, err := newEnv(ctx, envOptions{})
			if err != nil {
				return err
			}
			defer e.Close()

			c := e.coordinator(e.notifier())
			e.events.Emit(otel.Event{Kind: otel.KindStartup, Level: otel.LevelInfo, Comp: "coord",
				Msg: fmt.Sprintf("interval %s", c.Interval())})
			e.logger.Info("starting", "interval", c.Interval(), "store", e.settings.Get().Store.Driver)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				if err := config.Watch(gctx, configPath(), e.logger, e.reload(c)); err != nil {
					e.logger.Warn("config changes will need a restart", "error", err)
				}
				return nil
			})
			if addr := e.settings.Get().API.Addr; addr != "" && !noAPI {
				srv := e.server(c)
				g.Go(func() error { return srv.ListenAndServe(gctx, addr) })
			}

			c.Start(gctx)
			<-gctx.Done()
			c.Wait()

			e.events.Emit(otel.Event{Kind: otel.KindShutdown, Level: otel.LevelInfo, Comp: "coord"})
			e.logger.Info("stopped")
			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noAPI, "no-api", false, "do not serve the HTTP API")
	return cmd
}

func onceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e, err := newEnv(ctx, envOptions{})
			if err != nil {
				return err
			}
			defer e.Close()

			res, err := e.cycle(e.notifier()).Run(ctx)
			printResult(res)
			return err
		},
	}
}

func serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API without the refresh timer",
		Long:  `Serve the HTTP API. Cycles run only when POST /refresh is called.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e, err := newEnv(ctx, envOptions{})
			if err != nil {
				return err
			}
			defer e.Close()

			if addr == "" {
				addr = e.settings.Get().API.Addr
			}
			if addr == "" {
				return errors.New("no listen address: set api.addr or --addr")
			}

			go func() {
				if err := config.Watch(ctx, configPath(), e.logger, e.reload(nil)); err != nil {
					e.logger.Warn("config watch stopped", "error", err)
				}
			}()

			c := e.coordinator(e.notifier())
			return e.server(c).ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides api.addr)")
	return cmd
}

func (e *env) server(c *coord.Coordinator) *api.Server {
	return &api.Server{
		Store:    e.store,
		Unread:   e.unread,
		Refresh:  c,
		Links:    e.links,
		Events:   e.ring,
		Enabled:  func() map[string]bool { return e.settings.Get().EnabledSources() },
		Gatherer: e.registry,
		Logger:   e.logger,
	}
}

func printResult(res coord.Result) {
	fmt.Printf("cycle %s: %d fetched, %d new, %d notified, %d unread (%s)\n",
		res.ID, res.Fetched, res.New, res.Sent, res.Unread, res.Duration.Round(time.Millisecond))
	for _, s := range res.Sources {
		if s.Err != nil {
			fmt.Printf("  %-24s error: %v\n", s.Source, s.Err)
			continue
		}
		fmt.Printf("  %-24s %d articles\n", s.Source, s.Articles)
	}
}
