// Package metrics counts what a run decided and did, in a registry private to
// the run. The registry can be written out in the node-exporter textfile
// format for CI hosts that scrape build statistics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds one run's collectors. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	recipes        *prometheus.GaugeVec
	targets        *prometheus.CounterVec
	builds         *prometheus.CounterVec
	buildDuration  prometheus.Histogram
	uploadAttempts *prometheus.CounterVec
	uploads        *prometheus.CounterVec
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		recipes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "buildall_recipes",
				Help: "Number of recipes seen in the last run, by state.",
			},
			[]string{"state"},
		),
		targets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "buildall_targets_total",
				Help: "Number of evaluated build targets by decision.",
			},
			[]string{"decision"},
		),
		builds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "buildall_builds_total",
				Help: "Number of builder invocations by result.",
			},
			[]string{"result"},
		),
		buildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "buildall_build_duration_seconds",
				Help:    "Time taken by one builder invocation.",
				Buckets: prometheus.ExponentialBuckets(10, 2, 10),
			},
		),
		uploadAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "buildall_upload_attempts_total",
				Help: "Number of uploader invocations by outcome.",
			},
			[]string{"outcome"},
		),
		uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "buildall_uploads_total",
				Help: "Number of artifact uploads by final result.",
			},
			[]string{"result"},
		),
	}
	r.registry.MustRegister(r.recipes, r.targets, r.builds, r.buildDuration, r.uploadAttempts, r.uploads)
	return r
}

// Recipes sets the number of recipes in state ("loaded", "skipped").
func (r *Recorder) Recipes(state string, n int) {
	if r == nil {
		return
	}
	r.recipes.WithLabelValues(state).Set(float64(n))
}

func (r *Recorder) Target(decision string) {
	if r == nil {
		return
	}
	r.targets.WithLabelValues(decision).Inc()
}

func (r *Recorder) Build(result string, took time.Duration) {
	if r == nil {
		return
	}
	r.builds.WithLabelValues(result).Inc()
	r.buildDuration.Observe(took.Seconds())
}

func (r *Recorder) UploadAttempt(outcome string) {
	if r == nil {
		return
	}
	r.uploadAttempts.WithLabelValues(outcome).Inc()
}

func (r *Recorder) Upload(result string) {
	if r == nil {
		return
	}
	r.uploads.WithLabelValues(result).Inc()
}

// Gatherer exposes the registry, mainly for tests.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes all metrics to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
