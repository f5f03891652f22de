package services

import (
	"context"
	"errors"
	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/recruit-pipeline/internal/domain/events"
	"github.com/maxaizer/recruit-pipeline/internal/domain/models"
	"github.com/maxaizer/recruit-pipeline/internal/metrics"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"time"
)

type proposalSession interface {
	Load(ctx context.Context) error
	ApplyRemote(p models.Proposal) bool
}

type messageSession interface {
	Refresh(ctx context.Context) error
	ApplyRemote(m models.Message) bool
}

// LiveSync feeds live events of one viewer into the session. Events are merged by timestamp; a
// reconnect triggers a full reload, at most as often as the limiter allows.
type LiveSync struct {
	viewer    models.Viewer
	bus       EventBus.Bus
	proposals proposalSession
	messages  messageSession
	limiter   *rate.Limiter
	timeout   time.Duration
}

// NewLiveSync wires the sessions to the bus. messages may be nil when messaging is disabled.
func NewLiveSync(viewer models.Viewer, bus EventBus.Bus, proposals proposalSession, messages messageSession,
	reconnectsPerMinute float64) *LiveSync {

	return &LiveSync{
		viewer:    viewer,
		bus:       bus,
		proposals: proposals,
		messages:  messages,
		limiter:   rate.NewLimiter(rate.Limit(reconnectsPerMinute/60), 1),
		timeout:   30 * time.Second,
	}
}

func (s *LiveSync) Start() error {
	if err := s.bus.Subscribe(events.ProposalChangedTopic(s.viewer.Email), s.onProposalChanged); err != nil {
		return err
	}
	if err := s.bus.Subscribe(events.MessageReceivedTopic(s.viewer.Email), s.onMessageReceived); err != nil {
		return err
	}
	return s.bus.SubscribeAsync(events.ChannelReconnectedTopic(s.viewer.Email), s.onReconnected, true)
}

func (s *LiveSync) Stop() error {
	err := errors.Join(
		s.bus.Unsubscribe(events.ProposalChangedTopic(s.viewer.Email), s.onProposalChanged),
		s.bus.Unsubscribe(events.MessageReceivedTopic(s.viewer.Email), s.onMessageReceived),
		s.bus.Unsubscribe(events.ChannelReconnectedTopic(s.viewer.Email), s.onReconnected),
	)
	s.bus.WaitAsync()
	return err
}

func (s *LiveSync) onProposalChanged(event events.ProposalChanged) {
	metrics.LiveEventsCounter.WithLabelValues(string(events.KindProposalChanged)).Inc()
	if !s.proposals.ApplyRemote(event.Proposal) {
		log.Debugf("live update of proposal %s already applied", event.Proposal.ID)
	}
}

func (s *LiveSync) onMessageReceived(event events.MessageReceived) {
	metrics.LiveEventsCounter.WithLabelValues(string(events.KindMessageReceived)).Inc()
	if s.messages == nil {
		return
	}
	s.messages.ApplyRemote(event.Message)
}

func (s *LiveSync) onReconnected(_ events.ChannelReconnected) {
	metrics.LiveEventsCounter.WithLabelValues(string(events.KindChannelReconnected)).Inc()
	if !s.limiter.Allow() {
		log.Warnf("resync after reconnect of %s throttled, the scheduled resync will catch up", s.viewer.Email)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.Resync(ctx); err != nil {
		log.Errorf("resync after reconnect failed: %v", err)
	}
}

// Resync reloads proposals and messages from the collaborators.
func (s *LiveSync) Resync(ctx context.Context) error {
	var errs []error
	if err := s.proposals.Load(ctx); err != nil {
		errs = append(errs, err)
	}
	if s.messages != nil {
		if err := s.messages.Refresh(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		log.Infof("session of %s resynchronised", s.viewer.Email)
	}
	return errors.Join(errs...)
}
