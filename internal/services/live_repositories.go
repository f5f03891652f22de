package services

import (
	"context"
	"github.com/maxaizer/recruit-pipeline/internal/domain/events"
	"github.com/maxaizer/recruit-pipeline/internal/domain/models"
	"github.com/maxaizer/recruit-pipeline/internal/logger"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"strings"
	"time"
)

type livePublisher interface {
	PublishProposal(ctx context.Context, recipients []string, event events.ProposalChanged) error
	PublishMessage(ctx context.Context, recipients []string, event events.MessageReceived) error
}

type proposalRepository interface {
	ListForViewer(ctx context.Context, viewer models.Viewer) ([]models.Proposal, error)
	GetByID(ctx context.Context, id string) (*models.Proposal, error)
	UpdateStatus(ctx context.Context, id string, status models.Status, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

type offerRepository interface {
	GetByID(ctx context.Context, id string) (*models.JobOffer, error)
}

type messageRepository interface {
	ListForViewer(ctx context.Context, viewer models.Viewer) ([]models.Message, error)
	ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error)
	Create(ctx context.Context, message models.Message) error
	MarkRead(ctx context.Context, ids []string, at time.Time) error
}

// LiveProposals announces every successful status write on the live channel of both parties.
type LiveProposals struct {
	proposalRepository
	offers    offerRepository
	publisher livePublisher
	actor     string
}

func NewLiveProposals(repo proposalRepository, offers offerRepository, publisher livePublisher, actor models.Viewer) *LiveProposals {
	return &LiveProposals{proposalRepository: repo, offers: offers, publisher: publisher, actor: actor.Email}
}

func (l *LiveProposals) UpdateStatus(ctx context.Context, id string, status models.Status, updatedAt time.Time) error {
	if err := l.proposalRepository.UpdateStatus(ctx, id, status, updatedAt); err != nil {
		return err
	}

	proposal, err := l.proposalRepository.GetByID(ctx, id)
	if err != nil || proposal == nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeRealtime).
			Errorf("status of proposal %s written but not announced: %v", id, err)
		return nil
	}

	recipients := l.recipients(ctx, *proposal)
	event := events.ProposalChanged{Proposal: *proposal, Actor: l.actor}
	if err = l.publisher.PublishProposal(ctx, recipients, event); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeRealtime).
			Errorf("failed to announce status of proposal %s: %v", id, err)
	}
	return nil
}

func (l *LiveProposals) recipients(ctx context.Context, p models.Proposal) []string {
	emails := []string{p.RecruiterEmail, p.CompanyEmail}
	if l.offers != nil {
		offer, err := l.offers.GetByID(ctx, p.JobOfferID)
		if err != nil {
			log.Warnf("couldn't resolve the company of proposal %s: %v", p.ID, err)
		} else if offer != nil {
			emails = append(emails, offer.CompanyEmail)
		}
	}
	return normalizeEmails(emails)
}

// LiveMessages announces every stored message to its sender and recipient.
type LiveMessages struct {
	messageRepository
	publisher livePublisher
}

func NewLiveMessages(repo messageRepository, publisher livePublisher) *LiveMessages {
	return &LiveMessages{messageRepository: repo, publisher: publisher}
}

func (l *LiveMessages) Create(ctx context.Context, message models.Message) error {
	if err := l.messageRepository.Create(ctx, message); err != nil {
		return err
	}

	recipients := normalizeEmails([]string{message.SenderEmail, message.RecipientEmail})
	if err := l.publisher.PublishMessage(ctx, recipients, events.MessageReceived{Message: message}); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeRealtime).
			Errorf("failed to announce message %s: %v", message.ID, err)
	}
	return nil
}

func normalizeEmails(emails []string) []string {
	normalized := lo.Map(emails, func(email string, _ int) string { return strings.ToLower(strings.TrimSpace(email)) })
	return lo.Uniq(lo.Compact(normalized))
}
