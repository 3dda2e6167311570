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
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/aliasrt/services/runtime/lazyseq"
	"github.com/AleutianAI/aliasrt/services/runtime/telemetry"
)

func runLines(cmd *cobra.Command, args []string) error {
	limit := rt.cfg.Demo.LineLimit
	if cmd.Flags().Changed("limit") {
		limit = lineLimit
	}
	return linesDemo(commandContext(cmd), rt, args[0], limit)
}

// trackedFile reports when the underlying file is closed.
type trackedFile struct {
	io.ReadCloser
	onClose func()
}

func (f *trackedFile) Close() error {
	f.onClose()
	return f.ReadCloser.Close()
}

// linesDemo prints at most limit lines of path. The file is opened on the
// first resume and closed as soon as the limit is reached, whether or not
// the rest of the file was read.
func linesDemo(ctx context.Context, a *app, path string, limit int) error {
	ctx, span := telemetry.StartSpan(ctx, cliTracer, "cli.lines")
	defer span.End()
	logger := telemetry.LoggerWithTrace(ctx, a.logger.Slog()).With(
		slog.String("command", "lines"),
		slog.String("path", path),
	)

	var opened, released bool
	open := func() (io.ReadCloser, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		opened = true
		return &trackedFile{ReadCloser: f, onClose: func() { released = true }}, nil
	}

	lines, err := lazyseq.New(lazyseq.Lines(open),
		lazyseq.WithLogger(logger), lazyseq.WithName("lines"))
	if err != nil {
		return err
	}
	head, err := lazyseq.New(lazyseq.Take(lines, limit),
		lazyseq.WithLogger(logger), lazyseq.WithName("head"))
	if err != nil {
		_ = lines.Cancel()
		return err
	}

	n := 0
	for line := range head.All() {
		n++
		a.out.Info(fmt.Sprintf("%4d  %s", n, line))
	}
	if err := head.Err(); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("read %s: %w", path, err)
	}

	a.out.KeyValue("lines read", n)
	a.out.Check("file opened", opened)
	a.out.Check("file released", released || !opened)
	telemetry.SetSpanOK(span)
	return nil
}
