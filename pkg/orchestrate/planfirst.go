// SPDX-License-Identifier: Apache-2.0

package orchestrate

import (
	"context"
	"sync"

	"github.com/jllopis/telos/pkg/core"
	"github.com/jllopis/telos/pkg/resolve"
)

// RunPlanFirst resolves the complete plan up front and executes it level
// by level. Steps within a level run concurrently, bounded by the
// MaxParallel option; a failure lets in-flight steps finish, then halts
// the run before the next level. The partial result is always returned.
func (o *Orchestrator) RunPlanFirst(ctx context.Context, goal core.Goal) (*RunResult, error) {
	ctx, cancel, result, finish := o.beginRun(ctx, ModePlanFirst)
	defer cancel()

	res, err := o.resolver.Plan(goal)
	if err != nil {
		finish(err)
		return result, err
	}

	// Materialize the step list before executing anything, so a halted
	// run still shows what was planned.
	var levels [][]*Step
	byID := make(map[string]core.Capability)
	n := 0
	for levelIdx, level := range res.Levels {
		steps := make([]*Step, 0, len(level))
		for _, c := range level {
			n++
			steps = append(steps, newStep(n, levelIdx, c))
			byID[c.ID()] = c
		}
		levels = append(levels, steps)
		result.Steps = append(result.Steps, steps...)
	}

	terminal := false
	for levelIdx := 0; levelIdx < len(levels) && !terminal; levelIdx++ {
		// Cancellation is cooperative: checked between levels, never
		// mid-invocation.
		if err = canceled(ctx); err != nil {
			break
		}

		steps := levels[levelIdx]
		sem := make(chan struct{}, o.maxParallel)
		var wg sync.WaitGroup
		var mu sync.Mutex
		var levelErr error

		for _, step := range steps {
			wg.Add(1)
			go func(step *Step) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				if stepErr := o.runStep(ctx, result.RunID, step, byID[step.Capability]); stepErr != nil {
					mu.Lock()
					if levelErr == nil {
						levelErr = stepErr
					}
					mu.Unlock()
				}
			}(step)
		}
		wg.Wait()

		for _, step := range steps {
			result.History = append(result.History, resolve.Entry{
				Capability: step.Capability,
				Produced:   step.Produced,
			})
			if step.Terminal {
				terminal = true
			}
		}
		if levelErr != nil {
			err = levelErr
			break
		}
	}

	for _, step := range result.Steps {
		o.skipStep(ctx, result.RunID, step)
	}

	result.Terminal = terminal
	result.Satisfied = err == nil && (terminal || o.resolver.Satisfied(goal, result.History))
	finish(err)
	return result, err
}
