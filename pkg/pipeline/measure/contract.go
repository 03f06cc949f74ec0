package measure

import "time"

// Measure collects the metrics of the stages of a pipeline.
type Measure interface {
	AddMetric(name string) Metric
	GetMetric(name string) Metric
	AllMetrics() map[string]Metric
	// Order returns the stage names in the order their metric was added.
	Order() []string
}

// Metric holds the measurements of one stage.
type Metric interface {
	SetDuration(elapsed time.Duration, status Status)
	Duration() time.Duration
	Status() Status
	SetTotalDuration(endDuration time.Duration)
	GetTotalDuration() time.Duration
}

// Status is the outcome of a stage.
type Status string

const (
	StatusPending Status = "pending"
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
)
