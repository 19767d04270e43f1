// Copyright 2025 Esteban Alvarez. All Rights Reserved.
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

// Package telemetry exposes the process-wide Prometheus metrics shared
// across components: kv-shard connection state, query broker activity, and
// purge-coordinator outcomes. It plays the role the teacher's
// internal/ratelimiter/telemetry/churn package plays for the rate limiter,
// generalized to this service's own signals.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ShardUp is the connection-state registry: one gauge per (role, addr),
	// 1 when the last RPC to that shard succeeded, 0 on NetworkUnavailable.
	ShardUp = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "opserver_shard_up",
		Help: "1 if the last RPC to this kv-shard succeeded, 0 otherwise.",
	}, []string{"role", "addr"})

	PartitionsCovered = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "opserver_partitions_covered",
		Help: "Number of partitions with a known owner in the current partition map.",
	})

	QueriesSubmittedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "opserver_queries_submitted_total",
		Help: "Total queries accepted by the broker.",
	})
	QueriesFailedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "opserver_queries_failed_total",
		Help: "Total query submissions that returned an error (network, engine timeout, or negative progress).",
	})
	QueryEngineTimeoutsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "opserver_query_engine_timeouts_total",
		Help: "Total submissions that received no engine acknowledgement within the wait window.",
	})

	PurgeRunsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "opserver_purge_runs_total",
		Help: "Total purge jobs that completed (success or failure).",
	})
	PurgeRowsDeletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "opserver_purge_rows_deleted_total",
		Help: "Total rows deleted across all completed purge jobs.",
	})
	PurgeConflictsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "opserver_purge_conflicts_total",
		Help: "Total purge requests rejected because the purge lock was already held (running or failed).",
	})
)

func init() {
	prometheus.MustRegister(
		ShardUp, PartitionsCovered,
		QueriesSubmittedTotal, QueriesFailedTotal, QueryEngineTimeoutsTotal,
		PurgeRunsTotal, PurgeRowsDeletedTotal, PurgeConflictsTotal,
	)
}

// Serve starts a dedicated /metrics HTTP server on addr. It runs in the
// caller's goroutine; callers typically `go telemetry.Serve(addr)`.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	return server.ListenAndServe()
}
