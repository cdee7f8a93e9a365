package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mangle_stage_seconds",
		Help:    "Time spent in one stage of an obfuscation run.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mangle_runs_total",
		Help: "Total number of obfuscation runs by outcome.",
	}, []string{"status"})

	ArchiveClasses = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mangle_archive_classes",
		Help: "Number of classes in the most recent input archive.",
	})

	SymbolsRenamedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mangle_symbols_renamed_total",
		Help: "Total number of symbols given a new name.",
	}, []string{"kind"})

	MembersRelocatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mangle_members_relocated_total",
		Help: "Total number of static members moved to another class.",
	}, []string{"kind"})

	ConstantsFoldedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mangle_constants_folded_total",
		Help: "Total number of static initializer constants folded into relocated fields.",
	})

	ReferencesRewrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mangle_references_rewritten_total",
		Help: "Total number of symbolic references rewritten.",
	})

	ClassesShuffledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mangle_classes_shuffled_total",
		Help: "Total number of classes whose member order was permuted.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mangle_watcher_events_total",
		Help: "Total number of debounced change events that triggered a run.",
	})
)

// WriteMetricsFile dumps the default registry in the node-exporter textfile format.
func WriteMetricsFile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
