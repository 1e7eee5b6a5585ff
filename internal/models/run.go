package models

import (
	"encoding/json"
	"time"
)

// RunStatus is the lifecycle state of an automation run.
type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunStopped   RunStatus = "stopped"
)

// Terminal reports whether no further progress is expected.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunCompleted, RunFailed, RunStopped:
		return true
	default:
		return false
	}
}

type RunProgress struct {
	CurrentIteration int `json:"current_iteration"`
	TotalIterations  int `json:"total_iterations"`
	CurrentStep      int `json:"current_step"`
}

// Run is one benchmark execution against a SUT.
type Run struct {
	RunID        string          `json:"run_id"`
	GameName     string          `json:"game_name"`
	SutIP        string          `json:"sut_ip"`
	Status       RunStatus       `json:"status"`
	Progress     RunProgress     `json:"progress"`
	StartTime    *time.Time      `json:"start_time"`
	EndTime      *time.Time      `json:"end_time"`
	Results      json.RawMessage `json:"results,omitempty"`
	ErrorMessage *string         `json:"error_message"`
}

func (r Run) Clone() Run {
	out := r
	if r.StartTime != nil {
		ts := *r.StartTime
		out.StartTime = &ts
	}
	if r.EndTime != nil {
		ts := *r.EndTime
		out.EndTime = &ts
	}
	if r.Results != nil {
		out.Results = append(json.RawMessage(nil), r.Results...)
	}
	if r.ErrorMessage != nil {
		msg := *r.ErrorMessage
		out.ErrorMessage = &msg
	}
	return out
}
