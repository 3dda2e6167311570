// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/aliasrt/services/runtime/aliasgraph"
	"github.com/AleutianAI/aliasrt/services/runtime/lazyseq"
	"github.com/AleutianAI/aliasrt/services/runtime/telemetry"
)

// metricPrefixes selects the runtime families from the default registry.
var metricPrefixes = []string{"lazyseq_", "aliasgraph_"}

func runMetrics(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)
	if err := metricsDemo(ctx, rt, prometheus.DefaultGatherer); err != nil {
		return err
	}
	if serveAddr == "" {
		return nil
	}
	return serveMetrics(ctx, rt, serveAddr)
}

// metricsDemo runs one countdown and one deep copy, then prints every
// runtime metric family in g.
func metricsDemo(ctx context.Context, a *app, g prometheus.Gatherer) error {
	logger := a.logger.Slog().With(slog.String("command", "metrics"))

	gen, err := lazyseq.New(lazyseq.Countdown(a.cfg.Demo.CountdownStart), lazyseq.WithLogger(logger))
	if err != nil {
		return err
	}
	if _, err := gen.Collect(); err != nil {
		return err
	}
	root, err := loadGraph("")
	if err != nil {
		return err
	}
	aliasgraph.NewDeepCopier(logger).Copy(ctx, root)

	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	if a.cfg.Telemetry.MetricExporter != telemetry.ExporterPrometheus {
		a.out.Warning("copy metrics are only registered with the prometheus metric exporter")
	}

	a.out.Title("runtime metrics")
	for _, mf := range families {
		name := mf.GetName()
		if !slices.ContainsFunc(metricPrefixes, func(p string) bool { return strings.HasPrefix(name, p) }) {
			continue
		}
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				if strings.HasPrefix(lp.GetName(), "otel_") {
					continue
				}
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			key := name
			if len(labels) > 0 {
				key += "{" + strings.Join(labels, ",") + "}"
			}

			switch {
			case m.GetCounter() != nil:
				a.out.KeyValue(key, m.GetCounter().GetValue())
			case m.GetGauge() != nil:
				a.out.KeyValue(key, m.GetGauge().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				a.out.KeyValue(key, fmt.Sprintf("count=%d sum=%g", h.GetSampleCount(), h.GetSampleSum()))
			}
		}
	}
	return nil
}

// serveMetrics serves /metrics until ctx is cancelled.
func serveMetrics(ctx context.Context, a *app, addr string) error {
	handler := telemetry.MetricsHandler()
	if handler == nil {
		handler = promhttp.Handler()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.out.Success("serving metrics on http://" + addr + "/metrics")
		a.logger.Slog().Info("metrics server listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve metrics: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
