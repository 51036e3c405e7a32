package model

import "time"

// RunStatus is the state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// KidneyMode decides whether the optional kidney pipeline runs.
type KidneyMode string

const (
	// KidneyModeAsk prompts the operator.
	KidneyModeAsk KidneyMode = "ask"
	KidneyModeYes KidneyMode = "yes"
	KidneyModeNo  KidneyMode = "no"
)

// Run is a recorded pipeline execution.
type Run struct {
	ID         string
	Status     RunStatus
	Platform   Platform
	Kidney     bool
	ExitCode   int
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
	Progress   TaskProgress
}
