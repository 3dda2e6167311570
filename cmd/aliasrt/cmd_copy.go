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
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/aliasrt/services/runtime/aliasgraph"
	"github.com/AleutianAI/aliasrt/services/runtime/telemetry"
)

//go:embed sample_graph.yaml
var sampleGraphYAML []byte

var errInvalidAssignment = errors.New("invalid assignment")

type copyOptions struct {
	graphPath string
	mode      string
	sets      []string
}

// assignment is a parsed --set path=value pair.
type assignment struct {
	path  string
	value *aliasgraph.Node
}

func runCopy(cmd *cobra.Command, args []string) error {
	opts := copyOptions{
		graphPath: rt.cfg.Demo.GraphPath,
		mode:      rt.cfg.Demo.CopyMode,
		sets:      copySets,
	}
	if len(args) == 1 {
		opts.graphPath = args[0]
	}
	if cmd.Flags().Changed("mode") {
		opts.mode = copyMode
	}
	return copyDemo(commandContext(cmd), rt, opts)
}

// copyDemo duplicates a graph, assigns through the duplicate and reports
// what the original sees.
func copyDemo(ctx context.Context, a *app, opts copyOptions) (err error) {
	ctx, span := telemetry.StartSpan(ctx, cliTracer, "cli.copy",
		trace.WithAttributes(attribute.String("mode", opts.mode)))
	defer func() {
		if err != nil {
			telemetry.RecordError(span, err)
		} else {
			telemetry.SetSpanOK(span)
		}
		span.End()
	}()
	logger := telemetry.LoggerWithTrace(ctx, a.logger.Slog()).With(slog.String("command", "copy"))

	assignments, err := parseAssignments(opts.sets)
	if err != nil {
		return err
	}
	root, err := loadGraph(opts.graphPath)
	if err != nil {
		return err
	}

	var dup *aliasgraph.Node
	switch opts.mode {
	case "shallow":
		dup = aliasgraph.DuplicateShallow(root)
	case "deep":
		var stats aliasgraph.CopyStats
		dup, stats = aliasgraph.NewDeepCopier(logger).Copy(ctx, root)
		a.out.KeyValue("nodes copied", stats.Nodes)
		a.out.KeyValue("memo hits", stats.MemoHits)
	default:
		return fmt.Errorf("unknown copy mode %q (want shallow or deep)", opts.mode)
	}

	for _, as := range assignments {
		if err := aliasgraph.Assign(dup, as.path, as.value); err != nil {
			return fmt.Errorf("assign %s: %w", as.path, err)
		}
		logger.Debug("assigned through duplicate", slog.String("path", as.path))
	}

	if err := printGraph(a, "original", root); err != nil {
		return err
	}
	if err := printGraph(a, opts.mode+" duplicate", dup); err != nil {
		return err
	}
	a.out.Check("identity equal", aliasgraph.IdentityEqual(root, dup))
	a.out.Check("structural equal", aliasgraph.StructuralEqual(root, dup))
	a.out.KeyValue("shared children", sharedChildren(root, dup))
	return nil
}

// loadGraph reads a YAML graph from path, or the built-in sample when path
// is empty.
func loadGraph(path string) (*aliasgraph.Node, error) {
	data := sampleGraphYAML
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read graph: %w", err)
		}
	}
	root, err := aliasgraph.FromYAML(data)
	if err != nil {
		return nil, fmt.Errorf("load graph %s: %w", displayPath(path), err)
	}
	return root, nil
}

func displayPath(path string) string {
	if path == "" {
		return "<built-in>"
	}
	return path
}

// parseAssignments parses path=value pairs. The value is a YAML fragment,
// so "a.0=999" assigns an int and "c=[1, 2]" a sequence.
func parseAssignments(sets []string) ([]assignment, error) {
	out := make([]assignment, 0, len(sets))
	for _, s := range sets {
		path, raw, ok := strings.Cut(s, "=")
		if !ok || path == "" || raw == "" {
			return nil, fmt.Errorf("%w: %q (want path=value)", errInvalidAssignment, s)
		}
		value, err := aliasgraph.FromYAML([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", errInvalidAssignment, s, err)
		}
		out = append(out, assignment{path: path, value: value})
	}
	return out, nil
}

// sharedChildren counts the direct children the two containers share by
// identity.
func sharedChildren(a, b *aliasgraph.Node) int {
	ids := make(map[*aliasgraph.Node]struct{})
	for _, c := range a.Children() {
		ids[c] = struct{}{}
	}
	n := 0
	for _, c := range b.Children() {
		if _, ok := ids[c]; ok && c.Kind() != aliasgraph.KindScalar {
			n++
		}
	}
	return n
}

func printGraph(a *app, title string, n *aliasgraph.Node) error {
	data, err := aliasgraph.ToYAML(n)
	if err != nil {
		return fmt.Errorf("render %s: %w", title, err)
	}
	a.out.Box(title, string(data))
	return nil
}
