package services

import (
	"context"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"time"
)

type resyncTarget interface {
	Resync(ctx context.Context) error
}

// ResyncScheduler reloads the session on a schedule, catching anything the live channel missed.
type ResyncScheduler struct {
	target  resyncTarget
	cron    *cron.Cron
	timeout time.Duration
}

func NewResyncScheduler(target resyncTarget, spec string) (*ResyncScheduler, error) {

	if target == nil {
		return nil, errors.New("resync target must not be nil")
	}

	rs := &ResyncScheduler{
		target:  target,
		cron:    cron.New(),
		timeout: time.Minute,
	}

	_, err := rs.cron.AddFunc(spec, rs.resync)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid resync schedule %q", spec)
	}

	rs.cron.Start()
	log.Infof("resync scheduler started, schedule: %s", spec)
	return rs, nil
}

func (rs *ResyncScheduler) Stop() {
	<-rs.cron.Stop().Done()
}

func (rs *ResyncScheduler) resync() {
	ctx, cancel := context.WithTimeout(context.Background(), rs.timeout)
	defer cancel()

	if err := rs.target.Resync(ctx); err != nil {
		log.Errorf("Scheduled resync failed: %v", err)
	} else {
		log.Debugf("Scheduled resync done at %v", time.Now())
	}
}
