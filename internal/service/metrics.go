package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// redemptionsTotal — исходы погашения по причине
	redemptionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quotadrop_redemptions_total",
		Help: "Redemption attempts by outcome",
	}, []string{"outcome"})

	// redemptionConflictsTotal — проигранные гонки условной записи FileRecord
	redemptionConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quotadrop_redemption_conflicts_total",
		Help: "Conditional writes of file records rejected by a version conflict",
	})

	mirrorUpdateFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quotadrop_mirror_update_failures_total",
		Help: "Link mirror updates skipped after a redemption, left for the reconciler",
	})

	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quotadrop_uploads_total",
		Help: "Upload batches by outcome",
	}, []string{"outcome"})

	urlCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quotadrop_url_cache_hits_total",
		Help: "Signed URL cache hits",
	})
	urlCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quotadrop_url_cache_misses_total",
		Help: "Signed URL cache misses",
	})

	reconcileRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quotadrop_reconcile_runs_total",
		Help: "Reconciler runs",
	})
	reconcileMirrorsUpdatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quotadrop_reconcile_mirrors_updated_total",
		Help: "Link mirrors raised to the authoritative counter by the reconciler",
	})
	reconcileDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "quotadrop_reconcile_duration_seconds",
		Help:    "Reconciler run duration in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	})
)
