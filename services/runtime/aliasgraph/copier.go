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
	"log/slog"
	"time"
)

// CopyStats describes one deep copy.
type CopyStats struct {
	// Nodes is the number of nodes allocated in the duplicate graph.
	Nodes int

	// Composites is the number of sequence and mapping nodes among Nodes.
	Composites int

	// MemoHits counts re-visits of an already duplicated node. A non-zero
	// value means the source has shared children or cycles. It is a
	// bookkeeping signal, never an error.
	MemoHits int

	// Duration is the wall time spent copying.
	Duration time.Duration
}

// DeepCopier performs deep copies with tracing, metrics and logging.
//
// Thread Safety: Safe for concurrent use, provided no goroutine mutates a
// graph while it is being copied.
type DeepCopier struct {
	logger *slog.Logger
}

// NewDeepCopier creates a DeepCopier.
//
// Inputs:
//   - logger: Logger for copy events. If nil, uses slog.Default().
func NewDeepCopier(logger *slog.Logger) *DeepCopier {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeepCopier{
		logger: logger.With(slog.String("component", "deep_copier")),
	}
}

// Copy deep-copies root and reports what was done.
//
// Description:
//
//	Same semantics as DuplicateDeep. The copy is wrapped in an OTel span
//	and recorded in the aliasgraph_* metrics.
//
// Inputs:
//   - ctx: Context for tracing. Must not be nil.
//   - root: Graph to copy. May be nil.
//
// Outputs:
//   - *Node: The duplicate graph.
//   - CopyStats: Counters for the copy.
func (c *DeepCopier) Copy(ctx context.Context, root *Node) (*Node, CopyStats) {
	ctx, span := startCopySpan(ctx, root)
	defer span.End()

	start := time.Now()
	dup, counts := deepCopy(root)
	stats := CopyStats{
		Nodes:      counts.nodes,
		Composites: counts.composites,
		MemoHits:   counts.memoHits,
		Duration:   time.Since(start),
	}

	setCopySpanResult(span, stats)
	recordCopyMetrics(ctx, stats.Duration, stats)

	c.logger.Debug("deep copy complete",
		slog.Int("nodes", stats.Nodes),
		slog.Int("composites", stats.Composites),
		slog.Int("memo_hits", stats.MemoHits),
		slog.Duration("duration", stats.Duration),
	)
	return dup, stats
}
