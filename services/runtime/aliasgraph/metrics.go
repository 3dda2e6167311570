// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package aliasgraph

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for graph copy operations.
var (
	tracer = otel.Tracer("aliasrt.aliasgraph")
	meter  = otel.Meter("aliasrt.aliasgraph")
)

// Metrics for deep copy operations.
var (
	copyLatency  metric.Float64Histogram
	copyTotal    metric.Int64Counter
	nodesCopied  metric.Int64Histogram
	memoHitTotal metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		copyLatency, err = meter.Float64Histogram(
			"aliasgraph_deep_copy_duration_seconds",
			metric.WithDescription("Duration of deep copy operations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		copyTotal, err = meter.Int64Counter(
			"aliasgraph_deep_copy_total",
			metric.WithDescription("Total number of deep copy operations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		nodesCopied, err = meter.Int64Histogram(
			"aliasgraph_nodes_copied",
			metric.WithDescription("Number of nodes allocated per deep copy"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		memoHitTotal, err = meter.Int64Counter(
			"aliasgraph_memo_hits_total",
			metric.WithDescription("Re-visits resolved through the deep copy memo (shared children and cycles)"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordCopyMetrics records metrics for a deep copy.
func recordCopyMetrics(ctx context.Context, duration time.Duration, stats CopyStats) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("cyclic_or_shared", stats.MemoHits > 0))

	copyLatency.Record(ctx, duration.Seconds(), attrs)
	copyTotal.Add(ctx, 1, attrs)
	nodesCopied.Record(ctx, int64(stats.Nodes))
	if stats.MemoHits > 0 {
		memoHitTotal.Add(ctx, int64(stats.MemoHits))
	}
}

// startCopySpan creates a span for a deep copy.
func startCopySpan(ctx context.Context, root *Node) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.Bool("aliasgraph.root_nil", root == nil)}
	if root != nil {
		attrs = append(attrs,
			attribute.String("aliasgraph.root_kind", root.Kind().String()),
			attribute.Int64("aliasgraph.root_id", int64(root.ID())),
		)
	}
	return tracer.Start(ctx, "aliasgraph.DeepCopier.Copy", trace.WithAttributes(attrs...))
}

// setCopySpanResult sets the result attributes on a copy span.
func setCopySpanResult(span trace.Span, stats CopyStats) {
	span.SetAttributes(
		attribute.Int("aliasgraph.nodes", stats.Nodes),
		attribute.Int("aliasgraph.composites", stats.Composites),
		attribute.Int("aliasgraph.memo_hits", stats.MemoHits),
	)
}
