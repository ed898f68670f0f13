package domain

import "time"

// RunStatus represents the status of an offline batch run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunKind identifies the offline job that produced a BatchRun.
type RunKind string

const (
	RunKindEmbed           RunKind = "embed"
	RunKindConceptsRefresh RunKind = "concepts_refresh"
	RunKindTag             RunKind = "tag"
	RunKindHubs            RunKind = "hubs"
)

// BatchRun records the progress and outcome of an offline job.
type BatchRun struct {
	ID             string     `gorm:"type:text;primaryKey" json:"id"`
	Kind           RunKind    `gorm:"type:text;not null;index" json:"kind"`
	Status         RunStatus  `gorm:"type:text;default:running" json:"status"`
	TotalItems     int        `gorm:"default:0" json:"total_items"`
	ProcessedItems int        `gorm:"default:0" json:"processed_items"`
	FailedItems    int        `gorm:"default:0" json:"failed_items"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	ErrorLog       string     `json:"error_log,omitempty"`
}

// TableName returns the database table name for BatchRun.
func (BatchRun) TableName() string {
	return "batch_runs"
}
