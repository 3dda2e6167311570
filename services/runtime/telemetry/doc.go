// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry bootstraps OpenTelemetry for the aliasrt runtime.
//
// Init installs the global TracerProvider and MeterProvider, after which the
// package-level tracers and meters of aliasgraph (and any otel.Tracer call)
// export through the configured backends.
//
// # Exporters
//
// Traces: "otlp" (gRPC, default endpoint localhost:4317), "stdout" or
// "none". Metrics: "prometheus" (registered with the default Prometheus
// registry, served by MetricsHandler), "stdout" or "none".
//
// # Usage
//
//	shutdown, err := telemetry.Init(ctx, telemetry.DefaultConfig())
//	if err != nil {
//	    return fmt.Errorf("init telemetry: %w", err)
//	}
//	defer shutdown(context.Background())
//
// # Environment Variables
//
//   - OTEL_TRACES_EXPORTER: otlp, stdout, or none (default: none)
//   - OTEL_METRICS_EXPORTER: prometheus, stdout, or none (default: prometheus)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint (default: localhost:4317)
//   - ALIASRT_ENV: environment name (default: development)
//
// # Thread Safety
//
// Call Init once at startup. Everything else is safe for concurrent use.
package telemetry
