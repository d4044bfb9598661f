package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsProcessed counts every record handed to the pipeline,
	// regardless of outcome.
	RecordsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sieve",
			Name:      "records_processed_total",
			Help:      "Total raw records processed by the ingestion pipeline",
		},
		[]string{"platform"},
	)

	// RecordsMatched counts records that matched at least one keyword rule.
	RecordsMatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sieve",
			Name:      "records_matched_total",
			Help:      "Total records that matched at least one keyword rule",
		},
		[]string{"platform"},
	)

	// RecordsStored counts first-time stores, not engagement refreshes.
	RecordsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sieve",
			Name:      "records_stored_total",
			Help:      "Total new posts written to storage",
		},
		[]string{"platform"},
	)

	// RecordErrors counts records that failed, labeled with the stage the
	// failure occurred in: "normalize", "store" or "deadline".
	RecordErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sieve",
			Name:      "record_errors_total",
			Help:      "Total records that failed during ingestion",
		},
		[]string{"platform", "stage"},
	)

	// BatchDuration tracks how long pipeline runs take per platform.
	BatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sieve",
			Name:      "batch_duration_seconds",
			Help:      "Duration of ingestion pipeline batch runs",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"platform"},
	)
)
