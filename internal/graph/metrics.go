package graph

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// objectsCreated counts objects created in any store.
	// Labels: class
	objectsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "thicket",
		Subsystem: "graph",
		Name:      "objects_created_total",
		Help:      "Total objects created",
	}, []string{"class"})

	// objectsDeleted counts deleted objects.
	// Labels: cause (explicit, cascade, referrer, replaced)
	objectsDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "thicket",
		Subsystem: "graph",
		Name:      "objects_deleted_total",
		Help:      "Total objects deleted",
	}, []string{"cause"})

	// cascadeSize records how many objects one top-level delete removed.
	cascadeSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "thicket",
		Subsystem: "graph",
		Name:      "delete_cascade_size",
		Help:      "Objects removed by a single delete including its owned subtree",
		Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 500, 1000},
	})

	// merges counts merge calls.
	// Labels: result (merged, class_mismatch, self, error)
	merges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "thicket",
		Subsystem: "graph",
		Name:      "merges_total",
		Help:      "Total merge operations by result",
	}, []string{"result"})

	// backrefScans counts (class, field) back-reference populations
	// materialized by EnsureComplete.
	backrefScans = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "thicket",
		Subsystem: "graph",
		Name:      "backref_scans_total",
		Help:      "Total lazy back-reference completions",
	})

	// fluffs counts placeholders resolved from the backing source.
	fluffs = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "thicket",
		Subsystem: "graph",
		Name:      "fluffs_total",
		Help:      "Total objects loaded from the backing source",
	})
)

const (
	causeExplicit = "explicit"
	causeCascade  = "cascade"
	causeReferrer = "referrer"
	causeReplaced = "replaced"
)
