package pipeline

import (
	"time"

	"github.com/philipcardiff/snek5000/internal/registry"
)

// Status is the per-stage state within one run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"

	// StatusPlanned is the terminal state of every stage in a dry run: the
	// command was resolved and recorded but nothing was launched.
	StatusPlanned Status = "planned"
)

// StageResult is the outcome of one requested stage, in request order.
type StageResult struct {
	Name       string
	Status     Status
	Command    registry.Command
	Output     string
	PID        int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Run is the record of a single Exec invocation. It is owned by the Exec
// call that produced it and is never shared between concurrent executors.
type Run struct {
	ID         string
	CaseDir    string
	DryRun     bool
	Background bool
	Stages     []StageResult
	StartedAt  time.Time
	FinishedAt time.Time
}
