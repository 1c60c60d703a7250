package launchpad

import (
	"context"
	"errors"
	"fmt"
)

// transferStep is one ledger movement and its inverse.
type transferStep struct {
	name string
	do   func(ctx context.Context) error
	undo func(ctx context.Context) error
}

// transferPlan applies steps in order. If a step fails, or the caller
// rolls back later, completed steps are undone in reverse.
type transferPlan struct {
	steps []transferStep
	done  int
}

func (p *transferPlan) add(name string, do, undo func(ctx context.Context) error) {
	p.steps = append(p.steps, transferStep{name: name, do: do, undo: undo})
}

func (p *transferPlan) run(ctx context.Context) error {
	for _, step := range p.steps {
		if err := step.do(ctx); err != nil {
			stepErr := fmt.Errorf("%s: %w", step.name, err)
			if rbErr := p.rollback(ctx); rbErr != nil {
				return errors.Join(stepErr, rbErr)
			}
			return stepErr
		}
		p.done++
	}
	return nil
}

func (p *transferPlan) rollback(ctx context.Context) error {
	var errs []error
	for i := p.done - 1; i >= 0; i-- {
		step := p.steps[i]
		if step.undo == nil {
			continue
		}
		// undo must run even if the request was cancelled
		if err := step.undo(context.WithoutCancel(ctx)); err != nil {
			errs = append(errs, fmt.Errorf("rollback %s: %w", step.name, err))
		}
	}
	p.done = 0
	return errors.Join(errs...)
}
