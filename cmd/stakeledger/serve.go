package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bitfsorg/stakeledger-go/metrics"
	"github.com/bitfsorg/stakeledger-go/vault"
)

// exporter replays newly journaled events into the collector. It opens the
// vault only for the duration of a refresh so other commands can run between
// scrapes.
type exporter struct {
	app       *app
	collector *metrics.Collector
	lastSeq   uint64
}

func (e *exporter) refresh() error {
	v, err := e.app.openVault(vault.Options{})
	if err != nil {
		return err
	}
	defer v.Close()

	events, err := v.Ledger.Events(e.lastSeq, 0)
	if err != nil {
		return err
	}
	for _, ev := range events {
		e.collector.ObserveEvent(ev)
		e.lastSeq = ev.Seq
	}
	e.collector.ObserveState(v.Ledger.Snapshot(), len(v.Ledger.Holders()))
	return nil
}

func newServeMetricsCmd(a *app) *cobra.Command {
	var listen string
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "serve-metrics",
		Short: "Serve ledger metrics for prometheus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen == "" {
				listen = a.cfg.MetricsAddr
			}
			if listen == "" {
				return errors.New("no metrics address: set metrics_addr or pass --listen")
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			coll, err := metrics.New(reg, metrics.DefaultNamespace)
			if err != nil {
				return err
			}
			exp := &exporter{app: a, collector: coll}
			// Waiting lets refreshes queue behind other commands.
			a.wait = true
			if err := exp.refresh(); err != nil {
				return err
			}
			return serveMetrics(cmd.Context(), a.log, listen, reg, exp, interval)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "host:port to listen on (default: metrics_addr)")
	cmd.Flags().DurationVar(&interval, "interval", 15*time.Second, "refresh interval")
	return cmd
}

func serveMetrics(ctx context.Context, log logrus.FieldLogger, listen string, reg *prometheus.Registry, exp *exporter, interval time.Duration) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.WithField("addr", listen).Info("metrics: serving")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("metrics server: %w", err)
		case <-ticker.C:
			if err := exp.refresh(); err != nil {
				log.WithError(err).Warn("metrics: refresh failed")
			}
		}
	}
}
