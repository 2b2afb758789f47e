package pipeline

import (
	"time"

	"github.com/zhe.chen/storyweaver/pkg/types"
)

// Run represents the execution state of one pipeline run. It is owned by
// the goroutine executing the run and is not safe for concurrent use.
type Run struct {
	StoryID     string     `json:"story_id"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	CurrentStage types.PipelineStage                 `json:"current_stage"`
	Stages       map[types.PipelineStage]*StageState `json:"stages"`
}

// StageState tracks the state of a single pipeline stage
type StageState struct {
	Status      types.StageStatus `json:"status"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	Reason      string            `json:"reason,omitempty"` // Why a fallback was used
	Error       string            `json:"error,omitempty"`
}

// Duration is the wall time the stage took, zero while it is running.
func (s *StageState) Duration() time.Duration {
	if s.StartedAt == nil || s.CompletedAt == nil {
		return 0
	}
	return s.CompletedAt.Sub(*s.StartedAt)
}

// NewRun creates the state for a new run of storyID
func NewRun(storyID string) *Run {
	return &Run{
		StoryID:   storyID,
		StartedAt: time.Now(),
		Stages:    make(map[types.PipelineStage]*StageState),
	}
}

// GetStageState returns the state for a stage, creating if needed
func (r *Run) GetStageState(stage types.PipelineStage) *StageState {
	if r.Stages[stage] == nil {
		r.Stages[stage] = &StageState{
			Status: types.StatusPending,
		}
	}
	return r.Stages[stage]
}

// StartStage marks a stage as running
func (r *Run) StartStage(stage types.PipelineStage) {
	state := r.GetStageState(stage)
	now := time.Now()
	state.Status = types.StatusRunning
	state.StartedAt = &now
	r.CurrentStage = stage
}

// CompleteStage marks a stage as completed. A non-empty reason records
// that the stage finished on a fallback value.
func (r *Run) CompleteStage(stage types.PipelineStage, reason string) {
	state := r.GetStageState(stage)
	now := time.Now()
	state.Status = types.StatusCompleted
	state.CompletedAt = &now
	if reason != "" {
		state.Status = types.StatusDegraded
		state.Reason = reason
	}
}

// FailStage marks a stage as failed with error message
func (r *Run) FailStage(stage types.PipelineStage, err error) {
	state := r.GetStageState(stage)
	now := time.Now()
	state.Status = types.StatusFailed
	state.CompletedAt = &now
	state.Error = err.Error()
}

// Finish stamps the run's completion time.
func (r *Run) Finish() {
	now := time.Now()
	r.CompletedAt = &now
}

// IsStageCompleted checks if a stage finished, on real or fallback output
func (r *Run) IsStageCompleted(stage types.PipelineStage) bool {
	state := r.Stages[stage]
	return state != nil && (state.Status == types.StatusCompleted || state.Status == types.StatusDegraded)
}

// DegradedStages lists the stages that finished on fallback output, in
// pipeline order.
func (r *Run) DegradedStages() []types.PipelineStage {
	var out []types.PipelineStage
	for _, stage := range GetStageOrder() {
		if s := r.Stages[stage]; s != nil && s.Status == types.StatusDegraded {
			out = append(out, stage)
		}
	}
	return out
}
