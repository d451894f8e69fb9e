package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_search_requests_total",
			Help: "Search requests by route and result source",
		},
		[]string{"route", "source"},
	)

	fallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_search_fallbacks_total",
			Help: "Searches served by the relational path after a primary failure",
		},
	)

	unavailableTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_search_unavailable_total",
			Help: "Searches where every path failed",
		},
	)

	probeVerdictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_search_probe_verdicts_total",
			Help: "Availability probe verdicts consulted by the orchestrator",
		},
		[]string{"available"},
	)

	searchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_search_duration_seconds",
			Help:    "Search latency by result source",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	reindexRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_reindex_runs_total",
			Help: "Completed reindex runs by outcome",
		},
		[]string{"outcome"},
	)

	reindexDocuments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_reindex_documents_total",
			Help: "Documents processed by reindex runs",
		},
		[]string{"result"},
	)
)
