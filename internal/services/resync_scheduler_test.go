package services

import (
	"context"
	"github.com/stretchr/testify/assert"
	"sync/atomic"
	"testing"
	"time"
)

type countingTarget struct {
	calls atomic.Int32
}

func (c *countingTarget) Resync(context.Context) error {
	c.calls.Add(1)
	return nil
}

func Test_ResyncScheduler_WhenSpecInvalid_ShouldFail(t *testing.T) {
	_, err := NewResyncScheduler(&countingTarget{}, "every now and then")
	assert.Error(t, err)

	_, err = NewResyncScheduler(nil, "@every 1s")
	assert.Error(t, err)
}

func Test_ResyncScheduler_ShouldResyncOnSchedule(t *testing.T) {
	target := &countingTarget{}

	scheduler, err := NewResyncScheduler(target, "@every 1s")
	assert.NoError(t, err)
	defer scheduler.Stop()

	assert.Eventually(t, func() bool { return target.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}
