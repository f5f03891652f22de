// Package notifications merges unread messages and live activity into the header badge.
package notifications

import (
	"errors"
	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/recruit-pipeline/internal/domain/events"
	"github.com/maxaizer/recruit-pipeline/internal/domain/models"
	gocache "github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"
	"strconv"
	"sync"
	"time"
)

type unreadCounter interface {
	UnreadTotal() int
}

type Panel string

const PanelMessages Panel = "messages"

type Snapshot struct {
	UnreadMessages int
	HasNewActivity bool
}

// Aggregator raises a single "new activity" flag for live events the viewer has not seen yet.
// Repeated deliveries of the same event are ignored.
type Aggregator struct {
	viewer models.Viewer
	bus    EventBus.Bus
	unread unreadCounter
	seen   *gocache.Cache

	mu     sync.Mutex
	active bool
}

func NewAggregator(viewer models.Viewer, bus EventBus.Bus, unread unreadCounter) *Aggregator {
	return &Aggregator{
		viewer: viewer,
		bus:    bus,
		unread: unread,
		seen:   gocache.New(30*time.Minute, time.Hour),
	}
}

func (a *Aggregator) Start() error {
	if err := a.bus.Subscribe(events.ProposalChangedTopic(a.viewer.Email), a.onProposalChanged); err != nil {
		return err
	}
	return a.bus.Subscribe(events.MessageReceivedTopic(a.viewer.Email), a.onMessageReceived)
}

func (a *Aggregator) Stop() error {
	return errors.Join(
		a.bus.Unsubscribe(events.ProposalChangedTopic(a.viewer.Email), a.onProposalChanged),
		a.bus.Unsubscribe(events.MessageReceivedTopic(a.viewer.Email), a.onMessageReceived),
	)
}

func (a *Aggregator) onProposalChanged(event events.ProposalChanged) {
	if a.viewer.Is(event.Actor) {
		return
	}
	id := "proposal:" + event.Proposal.ID + ":" + strconv.FormatInt(event.Proposal.UpdatedAt.UnixNano(), 10)
	a.raise(id)
}

func (a *Aggregator) onMessageReceived(event events.MessageReceived) {
	if a.viewer.Is(event.Message.SenderEmail) {
		return
	}
	a.raise("message:" + event.Message.ID)
}

func (a *Aggregator) raise(id string) {
	if err := a.seen.Add(id, struct{}{}, gocache.DefaultExpiration); err != nil {
		log.Debugf("live event %s already seen", id)
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.active = true
}

// MarkSeen clears the activity flag when the viewer opens the message center.
func (a *Aggregator) MarkSeen(panel Panel) {
	if panel != PanelMessages {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.active = false
}

func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	active := a.active
	a.mu.Unlock()

	unread := 0
	if a.unread != nil {
		unread = a.unread.UnreadTotal()
	}
	return Snapshot{UnreadMessages: unread, HasNewActivity: active}
}

// Badge reports whether the header should show the activity indicator.
func (a *Aggregator) Badge() bool {
	s := a.Snapshot()
	return s.HasNewActivity || s.UnreadMessages > 0
}
