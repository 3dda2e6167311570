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
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/aliasrt/services/runtime/config"
	"github.com/AleutianAI/aliasrt/services/runtime/lazyseq"
	"github.com/AleutianAI/aliasrt/services/runtime/telemetry"
)

type countdownOptions struct {
	start       int
	cancelAfter int
	extra       int
}

func runCountdown(cmd *cobra.Command, args []string) error {
	opts := countdownOptions{
		start:       rt.cfg.Demo.CountdownStart,
		cancelAfter: cancelAfter,
		extra:       extraResumes,
	}
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid start %q: %w", args[0], err)
		}
		opts.start = n
	}
	return countdownDemo(commandContext(cmd), rt, opts)
}

// countdownDemo drives a Countdown generator one resume at a time, then
// keeps resuming past the end to show it stays finished.
func countdownDemo(ctx context.Context, a *app, opts countdownOptions) error {
	if opts.start < 0 || opts.start > config.MaxCountdownStart {
		return fmt.Errorf("start %d out of range [0, %d]", opts.start, config.MaxCountdownStart)
	}

	ctx, span := telemetry.StartSpan(ctx, cliTracer, "cli.countdown")
	defer span.End()
	logger := telemetry.LoggerWithTrace(ctx, a.logger.Slog()).With(slog.String("command", "countdown"))

	g, err := lazyseq.New(lazyseq.Countdown(opts.start),
		lazyseq.WithLogger(logger), lazyseq.WithName("countdown"))
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	ticks := 0
	for {
		if opts.cancelAfter >= 0 && ticks == opts.cancelAfter {
			if err := g.Cancel(); err != nil {
				telemetry.RecordError(span, err)
				return fmt.Errorf("cancel: %w", err)
			}
			a.out.Warning(fmt.Sprintf("cancelled after %d tick(s)", ticks))
			break
		}
		v, ok, err := g.Resume()
		if err != nil {
			telemetry.RecordError(span, err)
			return err
		}
		if !ok {
			break
		}
		ticks++
		a.out.KeyValue("tick", v)
	}

	for i := 0; i < opts.extra; i++ {
		v, ok, err := g.Resume()
		if err != nil {
			return err
		}
		a.out.KeyValue("resume", optional(v, ok))
	}
	a.out.KeyValue("state", g.State())
	telemetry.SetSpanOK(span)
	return nil
}

// optional renders a resume result, with "None" for no value.
func optional[T any](v T, ok bool) string {
	if !ok {
		return "None"
	}
	return fmt.Sprint(v)
}
