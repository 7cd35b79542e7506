// SPDX-License-Identifier: Apache-2.0

package orchestrate

import (
	"context"

	"github.com/jllopis/telos/pkg/core"
	"github.com/jllopis/telos/pkg/errors"
	"github.com/jllopis/telos/pkg/resolve"
)

// RunReactive executes one capability at a time, re-resolving against the
// live store after every step. The loop ends when the goal is satisfied,
// a step fails, a terminal capability fires, or the step budget runs out.
func (o *Orchestrator) RunReactive(ctx context.Context, goal core.Goal) (*RunResult, error) {
	ctx, cancel, result, finish := o.beginRun(ctx, ModeReactive)
	defer cancel()

	var err error
	for n := 1; ; n++ {
		if err = canceled(ctx); err != nil {
			break
		}

		var next core.Capability
		next, err = o.resolver.Next(goal, result.History)
		if err != nil || next == nil {
			break
		}

		if n > o.maxSteps {
			err = errors.Newf(errors.CodeStepBudget,
				"goal still unmet after %d steps", o.maxSteps).
				WithContext("max_steps", o.maxSteps).
				WithContext("next", next.ID())
			break
		}

		step := newStep(n, n-1, next)
		result.Steps = append(result.Steps, step)
		stepErr := o.runStep(ctx, result.RunID, step, next)
		result.History = append(result.History, resolve.Entry{
			Capability: step.Capability,
			Produced:   step.Produced,
		})
		if stepErr != nil {
			err = stepErr
			break
		}
		if step.Terminal {
			result.Terminal = true
			break
		}
	}

	result.Satisfied = err == nil && (result.Terminal || o.resolver.Satisfied(goal, result.History))
	finish(err)
	return result, err
}
