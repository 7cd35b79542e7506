// SPDX-License-Identifier: Apache-2.0

package orchestrate

import (
	"fmt"
	"time"

	"github.com/jllopis/telos/pkg/core"
	"github.com/jllopis/telos/pkg/resolve"
	"github.com/jllopis/telos/pkg/store"
)

// StepStatus is the lifecycle state of a plan step.
type StepStatus string

const (
	StatusPending   StepStatus = "pending"
	StatusRunning   StepStatus = "running"
	StatusSucceeded StepStatus = "succeeded"
	StatusFailed    StepStatus = "failed"
	StatusSkipped   StepStatus = "skipped"
)

// Step is one scheduled capability execution inside a run.
type Step struct {
	ID         string      `json:"id"`
	Capability string      `json:"capability"`
	Level      int         `json:"level"`
	Status     StepStatus  `json:"status"`
	Bound      []store.Ref `json:"bound,omitempty"`
	Produced   []store.Ref `json:"produced,omitempty"`
	Terminal   bool        `json:"terminal,omitempty"`
	Error      string      `json:"error,omitempty"`
	StartedAt  time.Time   `json:"started_at,omitempty"`
	FinishedAt time.Time   `json:"finished_at,omitempty"`
}

// RunResult is the outcome of a run: the executed (or skipped) steps in
// order, the run history, and whether the goal ended up satisfied.
type RunResult struct {
	RunID     string          `json:"run_id"`
	Mode      Mode            `json:"mode"`
	Steps     []*Step         `json:"steps"`
	History   resolve.History `json:"history"`
	Satisfied bool            `json:"satisfied"`
	Terminal  bool            `json:"terminal"`
	Duration  time.Duration   `json:"duration"`
}

// Step returns the recorded step for a capability id, or nil.
func (r *RunResult) Step(capability string) *Step {
	for _, s := range r.Steps {
		if s.Capability == capability {
			return s
		}
	}
	return nil
}

// Executed returns the capability ids of steps that actually ran,
// in completion order.
func (r *RunResult) Executed() []string {
	var out []string
	for _, s := range r.Steps {
		if s.Status == StatusSucceeded || s.Status == StatusFailed {
			out = append(out, s.Capability)
		}
	}
	return out
}

func newStep(n int, level int, c core.Capability) *Step {
	return &Step{
		ID:         fmt.Sprintf("step-%d", n),
		Capability: c.ID(),
		Level:      level,
		Status:     StatusPending,
	}
}
