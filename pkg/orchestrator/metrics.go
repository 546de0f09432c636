// Copyright (c) 2025, Server Audit Toolkit Authors.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fleetDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "audit",
		Subsystem: "fleet",
		Name:      "duration_seconds",
		Help:      "Wall time of a complete fleet audit run.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	})

	targetStatusTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "audit",
		Subsystem: "fleet",
		Name:      "target_status_total",
		Help:      "Targets by terminal run status.",
	}, []string{"status"})

	collectorDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "audit",
		Subsystem: "collector",
		Name:      "duration_seconds",
		Help:      "Execution time of one collector against one target.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"collector"})

	collectorOutcomeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "audit",
		Subsystem: "collector",
		Name:      "outcome_total",
		Help:      "Collector outcomes by status.",
	}, []string{"collector", "status"})
)
