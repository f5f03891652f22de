package services

import (
	"context"
	"errors"
	"github.com/maxaizer/recruit-pipeline/internal/domain/events"
	"github.com/maxaizer/recruit-pipeline/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"testing"
	"time"
)

type mockProposalRepository struct {
	mock.Mock
}

func (m *mockProposalRepository) ListForViewer(ctx context.Context, viewer models.Viewer) ([]models.Proposal, error) {
	args := m.Called(ctx, viewer)
	proposals, _ := args.Get(0).([]models.Proposal)
	return proposals, args.Error(1)
}

func (m *mockProposalRepository) GetByID(ctx context.Context, id string) (*models.Proposal, error) {
	args := m.Called(ctx, id)
	proposal, _ := args.Get(0).(*models.Proposal)
	return proposal, args.Error(1)
}

func (m *mockProposalRepository) UpdateStatus(ctx context.Context, id string, status models.Status, updatedAt time.Time) error {
	return m.Called(ctx, id, status, updatedAt).Error(0)
}

func (m *mockProposalRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type stubOffers map[string]models.JobOffer

func (s stubOffers) GetByID(_ context.Context, id string) (*models.JobOffer, error) {
	if offer, ok := s[id]; ok {
		return &offer, nil
	}
	return nil, nil
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishProposal(ctx context.Context, recipients []string, event events.ProposalChanged) error {
	return m.Called(ctx, recipients, event).Error(0)
}

func (m *mockPublisher) PublishMessage(ctx context.Context, recipients []string, event events.MessageReceived) error {
	return m.Called(ctx, recipients, event).Error(0)
}

type stubMessages struct {
	messageRepository
	createErr error
}

func (s stubMessages) Create(context.Context, models.Message) error {
	return s.createErr
}

func Test_LiveProposals_WhenStatusWritten_ShouldAnnounceToBothParties(t *testing.T) {
	repo := &mockProposalRepository{}
	publisher := &mockPublisher{}
	stored := &models.Proposal{ID: "p1", JobOfferID: "o1", RecruiterEmail: "Talent@Recruiters.example", Status: models.StatusApproved}
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	repo.On("UpdateStatus", mock.Anything, "p1", models.StatusApproved, at).Return(nil).Once()
	repo.On("GetByID", mock.Anything, "p1").Return(stored, nil).Once()
	publisher.On("PublishProposal", mock.Anything,
		[]string{"talent@recruiters.example", "hr@acme.example"},
		events.ProposalChanged{Proposal: *stored, Actor: viewer.Email}).Return(nil).Once()

	live := NewLiveProposals(repo, stubOffers{"o1": {ID: "o1", CompanyEmail: "hr@acme.example"}}, publisher, viewer)

	assert.NoError(t, live.UpdateStatus(context.Background(), "p1", models.StatusApproved, at))
	publisher.AssertExpectations(t)
}

func Test_LiveProposals_WhenWriteFails_ShouldNotAnnounce(t *testing.T) {
	repo := &mockProposalRepository{}
	publisher := &mockPublisher{}
	repo.On("UpdateStatus", mock.Anything, "p1", models.StatusRejected, mock.Anything).Return(errors.New("locked")).Once()

	live := NewLiveProposals(repo, nil, publisher, viewer)

	assert.Error(t, live.UpdateStatus(context.Background(), "p1", models.StatusRejected, time.Now()))
	publisher.AssertNotCalled(t, "PublishProposal", mock.Anything, mock.Anything, mock.Anything)
}

func Test_LiveProposals_WhenPublishFails_ShouldKeepWriteSuccessful(t *testing.T) {
	repo := &mockProposalRepository{}
	publisher := &mockPublisher{}
	repo.On("UpdateStatus", mock.Anything, "p1", models.StatusRejected, mock.Anything).Return(nil).Once()
	repo.On("GetByID", mock.Anything, "p1").Return(&models.Proposal{ID: "p1", CompanyEmail: "hr@acme.example"}, nil).Once()
	publisher.On("PublishProposal", mock.Anything, []string{"hr@acme.example"}, mock.Anything).Return(errors.New("redis down")).Once()

	live := NewLiveProposals(repo, nil, publisher, viewer)

	assert.NoError(t, live.UpdateStatus(context.Background(), "p1", models.StatusRejected, time.Now()))
	publisher.AssertExpectations(t)
}

func Test_LiveMessages_ShouldAnnounceOnlyStoredMessages(t *testing.T) {
	publisher := &mockPublisher{}
	message := models.Message{ID: "m1", SenderEmail: "hr@acme.example", RecipientEmail: "talent@recruiters.example"}
	publisher.On("PublishMessage", mock.Anything, []string{"hr@acme.example", "talent@recruiters.example"},
		events.MessageReceived{Message: message}).Return(nil).Once()

	assert.NoError(t, NewLiveMessages(stubMessages{}, publisher).Create(context.Background(), message))
	assert.Error(t, NewLiveMessages(stubMessages{createErr: errors.New("full")}, publisher).Create(context.Background(), message))

	publisher.AssertNumberOfCalls(t, "PublishMessage", 1)
}
