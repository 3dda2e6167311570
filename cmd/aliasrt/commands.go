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
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/aliasrt/pkg/logging"
	"github.com/AleutianAI/aliasrt/pkg/ux"
	"github.com/AleutianAI/aliasrt/services/runtime/config"
	"github.com/AleutianAI/aliasrt/services/runtime/telemetry"
)

// cliTracer names the tracer used for command spans.
const cliTracer = "aliasrt.cli"

// app is the per-invocation state built by setup.
type app struct {
	cfg      *config.RuntimeConfig
	logger   *logging.Logger
	out      *ux.Printer
	shutdown func(context.Context) error
}

// --- Global Command Variables ---
var (
	configPath     string
	logLevel       string
	logFormat      string
	traceExporter  string
	metricExporter string
	plainOutput    bool

	copyMode string
	copySets []string

	cancelAfter  int
	extraResumes int

	lineLimit int

	serveAddr string

	rt *app

	rootCmd = &cobra.Command{
		Use:   "aliasrt",
		Short: "Demonstrates aliasing-safe containers and cancellable lazy sequences",
		Long: `aliasrt exercises two runtime components:

  copy       shallow vs deep duplication of a nested graph, with aliasing
  countdown  a cancellable lazy countdown
  lines      lazily reading the first lines of a file
  metrics    the Prometheus counters both components record`,
		SilenceUsage:       true,
		PersistentPreRunE:  setup,
		PersistentPostRunE: teardown,
	}

	copyCmd = &cobra.Command{
		Use:   "copy [graph.yaml]",
		Short: "Duplicate a graph, assign through the duplicate and compare",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCopy, // Defined in cmd_copy.go
	}

	countdownCmd = &cobra.Command{
		Use:   "countdown [n]",
		Short: "Run a lazy countdown, optionally cancelling it part way",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCountdown, // Defined in cmd_countdown.go
	}

	linesCmd = &cobra.Command{
		Use:   "lines FILE",
		Short: "Print the first lines of a file without reading the rest",
		Args:  cobra.ExactArgs(1),
		RunE:  runLines, // Defined in cmd_lines.go
	}

	metricsCmd = &cobra.Command{
		Use:   "metrics",
		Short: "Run a small workload and print the runtime metrics",
		Args:  cobra.NoArgs,
		RunE:  runMetrics, // Defined in cmd_metrics.go
	}

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE:  runConfig,
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to a YAML config file (default: built-in)")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&logFormat, "log-format", "", "Log format: auto, text, json")
	pf.StringVar(&traceExporter, "trace-exporter", "", "Trace exporter: otlp, stdout, none")
	pf.StringVar(&metricExporter, "metric-exporter", "", "Metric exporter: prometheus, stdout, none")
	pf.BoolVar(&plainOutput, "plain", false, "Plain output even on a terminal")

	rootCmd.AddCommand(copyCmd)
	copyCmd.Flags().StringVar(&copyMode, "mode", "", "Duplication mode: shallow or deep (default from config)")
	copyCmd.Flags().StringArrayVar(&copySets, "set", []string{"a.0=999"}, "Assign path=value through the duplicate (repeatable)")

	rootCmd.AddCommand(countdownCmd)
	countdownCmd.Flags().IntVar(&cancelAfter, "cancel-after", -1, "Cancel after this many ticks (-1: never)")
	countdownCmd.Flags().IntVar(&extraResumes, "extra", 2, "Resumes to attempt after the countdown ends")

	rootCmd.AddCommand(linesCmd)
	linesCmd.Flags().IntVar(&lineLimit, "limit", 0, "Maximum lines to print (default from config)")

	rootCmd.AddCommand(metricsCmd)
	metricsCmd.Flags().StringVar(&serveAddr, "serve", "", "Also serve /metrics on this address until interrupted")

	rootCmd.AddCommand(configCmd)
}

// setup loads configuration and builds the logger, telemetry and printer.
func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	logger := logging.New(logging.Config{
		Level:   level,
		Format:  logging.Format(cfg.Logging.Format),
		LogDir:  cfg.Logging.LogDir,
		Service: "aliasrt",
		Quiet:   cfg.Logging.Quiet,
		Output:  cmd.ErrOrStderr(),
	})
	slog.SetDefault(logger.Slog())

	shutdown, err := telemetry.Init(commandContext(cmd), cfg.Telemetry)
	if err != nil {
		_ = logger.Close()
		return fmt.Errorf("init telemetry: %w", err)
	}

	out := cmd.OutOrStdout()
	rt = &app{
		cfg:      cfg,
		logger:   logger,
		out:      ux.NewPrinter(out, plainOutput || !ux.IsTerminal(out)),
		shutdown: shutdown,
	}
	logger.Slog().Debug("command starting", slog.String("command", cmd.Name()))
	return nil
}

// teardown flushes telemetry and closes the log file.
func teardown(_ *cobra.Command, _ []string) error {
	if rt == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var shutdownErr error
	if rt.shutdown != nil {
		shutdownErr = rt.shutdown(ctx)
	}
	if err := rt.logger.Close(); err != nil && shutdownErr == nil {
		shutdownErr = err
	}
	rt = nil
	return shutdownErr
}

// loadConfig reads --config (or the built-in defaults) and applies flag
// overrides.
func loadConfig(cmd *cobra.Command) (*config.RuntimeConfig, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = logFormat
	}
	if flags.Changed("trace-exporter") {
		cfg.Telemetry.TraceExporter = traceExporter
	}
	if flags.Changed("metric-exporter") {
		cfg.Telemetry.MetricExporter = metricExporter
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func runConfig(_ *cobra.Command, _ []string) error {
	data, err := rt.cfg.Marshal()
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	rt.out.Box("effective configuration", string(data))
	return nil
}
