package pipeline

import (
	"errors"
	"github.com/maxaizer/recruit-pipeline/internal/domain/errs"
	"github.com/maxaizer/recruit-pipeline/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"testing"
	"time"
)

func Test_Transition_WhenClockBehind_ShouldStillAdvanceUpdatedAt(t *testing.T) {
	assert := assert.New(t)

	p := proposal("p1", models.StatusPending, 0)
	p.UpdatedAt = base.Add(time.Hour)

	next, err := Transition(p, models.StatusApproved, base)

	assert.NoError(err)
	assert.Equal(models.StatusApproved, next.Status)
	assert.True(next.UpdatedAt.After(p.UpdatedAt))
	assert.Equal(models.StatusPending, p.Status)
}

func Test_Transition_ShouldAllowReclassificationBetweenAssignableStatuses(t *testing.T) {
	assert := assert.New(t)

	for _, from := range []models.Status{models.StatusPending, models.StatusUnderReview, models.StatusApproved, models.StatusRejected} {
		for _, to := range []models.Status{models.StatusPending, models.StatusUnderReview, models.StatusApproved, models.StatusRejected} {
			next, err := Transition(proposal("p", from, 0), to, base.Add(time.Minute))
			assert.NoError(err, "%s -> %s", from, to)
			assert.Equal(to, next.Status)
		}
	}
}

func Test_Transition_WhenHiredInvolved_ShouldFail(t *testing.T) {
	assert := assert.New(t)

	_, err := Transition(proposal("p", models.StatusApproved, 0), models.StatusHired, base.Add(time.Minute))
	assert.True(errors.Is(err, errs.ErrInvalidTransition))

	_, err = Transition(proposal("p", models.StatusHired, 0), models.StatusRejected, base.Add(time.Minute))
	assert.True(errors.Is(err, errs.ErrInvalidTransition))
}

func Test_Undo_WhenLiveUpdateLandedAfterOptimisticWrite_ShouldKeepIt(t *testing.T) {
	assert := assert.New(t)

	before := proposal("p", models.StatusPending, 0)
	after, _ := Transition(before, models.StatusApproved, base.Add(time.Minute))
	cmd := &transitionCommand{before: before, after: after}

	assert.Equal(before, cmd.undo(after))

	remote := after
	remote.Status = models.StatusRejected
	remote.UpdatedAt = after.UpdatedAt.Add(time.Second)
	assert.Equal(remote, cmd.undo(remote))
}
