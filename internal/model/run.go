package model

import "time"

// RunStatus represents the current state of a profiling run.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusProfiling RunStatus = "profiling"
	RunStatusComplete  RunStatus = "complete"
	RunStatusFailed    RunStatus = "failed"
)

// Run is a persisted profiling run: the request identity, its lifecycle
// status, and the comparison result once one exists. Failed runs carry the
// error text verbatim so construction failures stay inspectable.
type Run struct {
	ID         string      `json:"id"`
	Country    string      `json:"country"`
	ReformName string      `json:"reform_name,omitempty"`
	Status     RunStatus   `json:"status"`
	Result     *Comparison `json:"result,omitempty"`
	Error      string      `json:"error,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}
