package ingest

import "github.com/prometheus/client_golang/prometheus"

var (
	bytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_bytes_total",
		Help: "Bytes consumed from the primary stream.",
	})
	recordsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_records_total",
		Help: "Building records decoded from the primary stream.",
	})
	recordErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_record_errors_total",
		Help: "Building records dropped due to decode failures.",
	})
	headersTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_headers_total",
		Help: "Building headers sniffed from in-progress objects.",
	})
	snapshotsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_snapshots_total",
		Help: "Partial snapshots emitted to consumers.",
	})
	previewHeadersTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_preview_headers_total",
		Help: "Headers obtained from speculative range previews.",
	})
	runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_runs_total",
		Help: "Completed ingestion runs by outcome.",
	}, []string{"outcome"})
	runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ingest_run_duration_seconds",
		Help:    "Wall time of ingestion runs.",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		bytesTotal,
		recordsTotal,
		recordErrorsTotal,
		headersTotal,
		snapshotsTotal,
		previewHeadersTotal,
		runsTotal,
		runDuration,
	)
}
