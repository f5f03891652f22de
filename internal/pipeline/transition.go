package pipeline

import (
	"fmt"
	"github.com/maxaizer/recruit-pipeline/internal/domain/errs"
	"github.com/maxaizer/recruit-pipeline/internal/domain/models"
	"time"
)

// Transition moves p into target. Any assignable status may follow any non-hired one;
// hired proposals belong to the hiring workflow and are left alone.
// UpdatedAt always moves strictly forward, even when the clock does not.
func Transition(p models.Proposal, target models.Status, now time.Time) (models.Proposal, error) {
	if !target.IsValid() {
		return p, errs.InvalidTransition("pipeline.Transition", fmt.Errorf("unknown status %q", target))
	}
	if !target.IsAssignable() {
		return p, errs.InvalidTransition("pipeline.Transition", fmt.Errorf("status %q is set by the hiring workflow", target))
	}
	if p.Status == models.StatusHired {
		return p, errs.InvalidTransition("pipeline.Transition", fmt.Errorf("proposal %s is already hired", p.ID))
	}

	if !now.After(p.UpdatedAt) {
		now = p.UpdatedAt.Add(time.Nanosecond)
	}

	p.Status = target
	p.UpdatedAt = now
	return p, nil
}

// transitionCommand is the undo record of one optimistic transition. before is captured
// prior to the mutation and restored only when the write is confirmed to have failed.
type transitionCommand struct {
	seq    uint64
	before models.Proposal
	after  models.Proposal
}

func (c *transitionCommand) undo(current models.Proposal) models.Proposal {
	restored := c.before
	// a live update may have landed on top of the optimistic value; keep it
	if current.Newer(c.after) {
		return current
	}
	return restored
}
