package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder tracks counters for a single analysis run. The zero value is not
// usable; construct with New. A nil *Recorder ignores every call.
type Recorder struct {
	registry *prometheus.Registry

	uploads     prometheus.Counter
	submissions prometheus.Counter
	statusPolls *prometheus.CounterVec
	segments    prometheus.Counter
	failures    *prometheus.CounterVec
	jobDuration prometheus.Histogram
}

// New creates a Recorder backed by a private registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		uploads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docanalyzer_uploads_total",
			Help: "Documents uploaded to object storage",
		}),
		submissions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docanalyzer_jobs_submitted_total",
			Help: "Document analysis jobs submitted",
		}),
		statusPolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docanalyzer_status_polls_total",
			Help: "Job status queries by returned status",
		}, []string{"status"}),
		segments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docanalyzer_segments_extracted_total",
			Help: "Segments extracted from analysis results",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docanalyzer_failures_total",
			Help: "Run failures by stage",
		}, []string{"stage"}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "docanalyzer_job_duration_seconds",
			Help:    "Time from job submission to a terminal status",
			Buckets: []float64{10, 30, 60, 120, 300, 600, 1800, 3600},
		}),
	}
	r.registry.MustRegister(r.uploads, r.submissions, r.statusPolls, r.segments, r.failures, r.jobDuration)
	return r
}

// IncUploads increments the upload counter.
func (r *Recorder) IncUploads() {
	if r == nil {
		return
	}
	r.uploads.Inc()
}

// IncSubmissions increments the submitted jobs counter.
func (r *Recorder) IncSubmissions() {
	if r == nil {
		return
	}
	r.submissions.Inc()
}

// ObserveStatus counts one status query that returned status.
func (r *Recorder) ObserveStatus(status string) {
	if r == nil {
		return
	}
	r.statusPolls.WithLabelValues(status).Inc()
}

// AddSegments adds n extracted segments.
func (r *Recorder) AddSegments(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.segments.Add(float64(n))
}

// IncFailure counts a failure in the named stage.
func (r *Recorder) IncFailure(stage string) {
	if r == nil {
		return
	}
	r.failures.WithLabelValues(stage).Inc()
}

// ObserveJobDuration records how long a job took to leave the in-progress state.
func (r *Recorder) ObserveJobDuration(d time.Duration) {
	if r == nil {
		return
	}
	if d < 0 {
		d = 0
	}
	r.jobDuration.Observe(d.Seconds())
}

// Gatherer exposes the underlying registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes the current metrics in the text exposition format for the
// node exporter textfile collector. An empty path is a no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
