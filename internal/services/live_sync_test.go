package services

import (
	"context"
	"errors"
	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/recruit-pipeline/internal/domain/events"
	"github.com/maxaizer/recruit-pipeline/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sync"
	"testing"
)

type fakeSession struct {
	mu        sync.Mutex
	loads     int
	refreshes int
	loadErr   error
	proposals []models.Proposal
	messages  []models.Message
}

func (f *fakeSession) Load(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	return f.loadErr
}

func (f *fakeSession) Refresh(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	return nil
}

func (f *fakeSession) ApplyRemote(p models.Proposal) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.proposals = append(f.proposals, p)
	return true
}

type fakeMessages struct {
	*fakeSession
}

func (f fakeMessages) ApplyRemote(m models.Message) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, m)
	return true
}

var viewer = models.NewViewer("hr@acme.example", models.RoleCompany)

func startedSync(t *testing.T, perMinute float64) (*LiveSync, EventBus.Bus, *fakeSession) {
	bus := EventBus.New()
	session := &fakeSession{}
	live := NewLiveSync(viewer, bus, session, fakeMessages{session}, perMinute)
	require.NoError(t, live.Start())
	return live, bus, session
}

func Test_LiveSync_ShouldRouteEventsToSessions(t *testing.T) {
	assert := assert.New(t)

	_, bus, session := startedSync(t, 6)

	bus.Publish(events.ProposalChangedTopic(viewer.Email), events.ProposalChanged{Proposal: models.Proposal{ID: "p1"}})
	bus.Publish(events.MessageReceivedTopic(viewer.Email), events.MessageReceived{Message: models.Message{ID: "m1"}})
	bus.Publish(events.ProposalChangedTopic("someone@else.example"), events.ProposalChanged{Proposal: models.Proposal{ID: "p2"}})

	assert.Len(session.proposals, 1)
	assert.Equal("p1", session.proposals[0].ID)
	assert.Len(session.messages, 1)
}

func Test_LiveSync_WhenReconnectStorm_ShouldThrottleResync(t *testing.T) {
	assert := assert.New(t)

	_, bus, session := startedSync(t, 1)

	for i := 0; i < 5; i++ {
		bus.Publish(events.ChannelReconnectedTopic(viewer.Email), events.ChannelReconnected{ViewerEmail: viewer.Email})
	}
	bus.WaitAsync()

	assert.Equal(1, session.loads)
	assert.Equal(1, session.refreshes)
}

func Test_LiveSync_WhenStopped_ShouldIgnoreEvents(t *testing.T) {
	live, bus, session := startedSync(t, 6)
	require.NoError(t, live.Stop())

	bus.Publish(events.ProposalChangedTopic(viewer.Email), events.ProposalChanged{Proposal: models.Proposal{ID: "p1"}})

	assert.Empty(t, session.proposals)
}

func Test_LiveSync_Resync_WhenLoadFails_ShouldStillRefreshMessages(t *testing.T) {
	session := &fakeSession{loadErr: errors.New("offline")}
	live := NewLiveSync(viewer, EventBus.New(), session, fakeMessages{session}, 6)

	err := live.Resync(context.Background())

	assert.Error(t, err)
	assert.Equal(t, 1, session.refreshes)
}

func Test_LiveSync_WhenMessagingDisabled_ShouldOnlyLoadProposals(t *testing.T) {
	session := &fakeSession{}
	live := NewLiveSync(viewer, EventBus.New(), session, nil, 6)
	require.NoError(t, live.Start())

	live.bus.Publish(events.MessageReceivedTopic(viewer.Email), events.MessageReceived{Message: models.Message{ID: "m1"}})

	assert.NoError(t, live.Resync(context.Background()))
	assert.Equal(t, 1, session.loads)
	assert.Equal(t, 0, session.refreshes)
}
