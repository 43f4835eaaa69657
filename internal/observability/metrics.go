package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	importRunsTotal     *prometheus.CounterVec
	importDuration      prometheus.Histogram
	entityWritesTotal   *prometheus.CounterVec
	gradeConflictsTotal *prometheus.CounterVec
	importErrorsTotal   *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the import
// engine.
func RegisterMetrics() {
	registerOnce.Do(func() {
		importRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "import_runs_total",
			Help: "Total number of snapshot import runs.",
		}, []string{"source", "status"})

		importDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "import_duration_seconds",
			Help:    "Wall-clock duration of snapshot import runs.",
			Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
		})

		entityWritesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "import_entity_writes_total",
			Help: "Entities written by import runs, by type and operation.",
		}, []string{"entity", "operation"})

		gradeConflictsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "import_grade_conflicts_total",
			Help: "Grade conflict resolutions, by outcome.",
		}, []string{"resolution"})

		importErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "import_errors_total",
			Help: "Per-entity errors accumulated during import runs.",
		}, []string{"entity"})

		prometheus.MustRegister(importRunsTotal, importDuration, entityWritesTotal, gradeConflictsTotal, importErrorsTotal)
	})
}

// ImportRuns exposes the run counter.
func ImportRuns() *prometheus.CounterVec {
	RegisterMetrics()
	return importRunsTotal
}

// ImportDuration exposes the run duration histogram.
func ImportDuration() prometheus.Histogram {
	RegisterMetrics()
	return importDuration
}

// EntityWrites exposes the per-entity write counter.
func EntityWrites() *prometheus.CounterVec {
	RegisterMetrics()
	return entityWritesTotal
}

// GradeConflicts exposes the conflict resolution counter.
func GradeConflicts() *prometheus.CounterVec {
	RegisterMetrics()
	return gradeConflictsTotal
}

// ImportErrors exposes the per-entity error counter.
func ImportErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return importErrorsTotal
}
