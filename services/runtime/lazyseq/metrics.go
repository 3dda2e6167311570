// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lazyseq

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values for generatorsFinished.
const (
	outcomeExhausted = "exhausted"
	outcomeFailed    = "failed"
	outcomePanicked  = "panicked"
	outcomeCancelled = "cancelled"
)

var (
	generatorsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lazyseq_generators_created_total",
		Help: "Total generators created",
	})

	valuesYielded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lazyseq_values_yielded_total",
		Help: "Total values yielded by all generators",
	})

	generatorsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lazyseq_generators_finished_total",
		Help: "Total generators that reached a terminal state, by outcome",
	}, []string{"outcome"})

	resourceReleaseErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lazyseq_resource_release_errors_total",
		Help: "Total resource release functions that returned an error",
	})
)

func recordReleaseFailures(n int) {
	resourceReleaseErrors.Add(float64(n))
}
