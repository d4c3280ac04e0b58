package pkg

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus counters for the lifecycle and sweep paths.
var (
	MetricNodesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "skybox",
		Name:      "nodes_created_total",
		Help:      "File and folder nodes created.",
	}, []string{"node_type"})

	MetricNodesTrashed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "skybox",
		Name:      "nodes_trashed_total",
		Help:      "Subtree roots moved to the trash.",
	})

	MetricNodesPurged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "skybox",
		Name:      "nodes_purged_total",
		Help:      "Nodes permanently deleted, descendants included.",
	})

	MetricSweepRuns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "skybox",
		Subsystem: "retention",
		Name:      "sweep_runs_total",
		Help:      "Retention sweep executions.",
	})

	MetricSweepErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "skybox",
		Subsystem: "retention",
		Name:      "sweep_errors_total",
		Help:      "Expired nodes the sweep failed to purge.",
	})

	MetricUploadSlots = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "skybox",
		Name:      "upload_slots_allocated_total",
		Help:      "Object store upload slots allocated.",
	})
)
