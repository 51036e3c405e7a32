package model

import (
	"time"
)

// TaskStatus represents the state of a task.
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "pending"
	TaskStatusDone    TaskStatus = "done"
	TaskStatusFailed  TaskStatus = "failed"
)

// Pipeline task names, in execution order.
const (
	TaskKidneyPipeline     = "kidney_pipeline"
	TaskSegmentation       = "segmentation"
	TaskRegistryConversion = "registry_conversion"
	TaskBlender            = "blender"
	TaskLogCleanup         = "log_cleanup"
)

// Task represents a single step of a pipeline run.
type Task struct {
	ID        string
	RunID     string
	Sequence  int
	Name      string
	Status    TaskStatus
	Error     string
	CreatedAt time.Time
}

// TaskProgress represents the completion state of a run.
type TaskProgress struct {
	Done   int
	Failed int
	Total  int
}
