// Package metrics defines the prometheus collectors for the pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RowsProcessed counts rows a pipeline run has walked, whether or not a
	// stage actually ran for them.
	RowsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geoglobe_rows_processed_total",
		Help: "Rows handled by the processing pipeline.",
	})

	// BackendCalls counts model backend invocations per operation and outcome.
	BackendCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geoglobe_backend_calls_total",
		Help: "Model backend calls by operation and outcome.",
	}, []string{"operation", "outcome"})

	// RepairAttempts counts extraction repair prompts issued.
	RepairAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geoglobe_extraction_repairs_total",
		Help: "Repair prompts issued after malformed extraction output.",
	})

	// CacheRequests counts grounding cache lookups by result.
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geoglobe_grounding_cache_requests_total",
		Help: "Grounding cache lookups by result (hit/miss).",
	}, []string{"result"})

	// WhitelistRejections counts grounded state names discarded because they
	// are not in the reference whitelist.
	WhitelistRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geoglobe_whitelist_rejections_total",
		Help: "Model-produced state names rejected by the whitelist.",
	}, []string{"field"})

	// EventsIngested counts events written by refresh jobs.
	EventsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geoglobe_events_ingested_total",
		Help: "Events inserted by ingestion refresh jobs.",
	})
)
