package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"combat-mc/internal/admin"
	"combat-mc/internal/logging"
	"combat-mc/internal/montecarlo"
	"combat-mc/internal/results"
	"combat-mc/internal/store"
	"combat-mc/internal/world"
)

var (
	serveFlags batchFlags
	serveAddr  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the batch control API",
	Long:  "serve exposes start, cancel, status, results and Prometheus metrics of batches over HTTP.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := serveFlags.load(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.AdminAddr = serveAddr
		}
		bc, err := batchConfig(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		logger := logging.FromContext(ctx)

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		mw, err := newWriters(cfg, sinkNone, bc.Scenario.Name, true)
		if err != nil {
			return err
		}
		defer mw.Close()

		c := montecarlo.NewController(world.NewBuilder(),
			montecarlo.WithTrialPause(cfg.TrialPause),
			montecarlo.WithMetrics(montecarlo.NewMetrics(reg)),
			montecarlo.WithEventHook(results.EventHook(ctx, mw)))
		srv := admin.NewServer(ctx, c, bc, reg)
		if mw.Len() > 0 {
			srv.Sink = mw
		}
		if cfg.Output.SQLitePath != "" {
			st, err := store.Open(ctx, cfg.Output.SQLitePath)
			if err != nil {
				return err
			}
			defer st.Close()
			srv.Archive = st
		}

		httpSrv := &http.Server{Addr: cfg.AdminAddr, Handler: srv.Handler(), ReadHeaderTimeout: 5 * time.Second}
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("admin API listening", "addr", cfg.AdminAddr, "scenario", bc.Scenario.Name)
			if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			c.Cancel()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		})
		err = g.Wait()
		logger.Info("admin API stopped")
		return err
	},
}

func init() {
	serveFlags.register(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address (overrides config)")
}
