package messaging

import (
	"context"
	"fmt"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/maxaizer/recruit-pipeline/internal/domain/errs"
	"github.com/maxaizer/recruit-pipeline/internal/domain/models"
	"github.com/maxaizer/recruit-pipeline/internal/logger"
	"github.com/maxaizer/recruit-pipeline/internal/metrics"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"sort"
	"strings"
	"sync"
	"time"
)

type messageRepository interface {
	ListForViewer(ctx context.Context, viewer models.Viewer) ([]models.Message, error)
	ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error)
	Create(ctx context.Context, message models.Message) error
	MarkRead(ctx context.Context, ids []string, at time.Time) error
}

type thread struct {
	counterparty  string
	proposalID    *string
	proposalTitle string
}

// Conversations owns the viewer's messages and derives conversations from them.
type Conversations struct {
	viewer   models.Viewer
	repo     messageRepository
	validate *validator.Validate
	now      func() time.Time
	gap      time.Duration

	mu       sync.RWMutex
	messages map[string]models.Message
	threads  map[string]thread
}

func NewConversations(viewer models.Viewer, repo messageRepository) *Conversations {
	return &Conversations{
		viewer:   viewer,
		repo:     repo,
		validate: validator.New(),
		now:      time.Now,
		gap:      DefaultSeparatorGap,
		messages: make(map[string]models.Message),
		threads:  make(map[string]thread),
	}
}

func (c *Conversations) WithClock(now func() time.Time) *Conversations {
	c.now = now
	return c
}

// WithSeparatorGap sets how far apart two messages must be for Timeline to separate them.
func (c *Conversations) WithSeparatorGap(gap time.Duration) *Conversations {
	if gap > 0 {
		c.gap = gap
	}
	return c
}

// Refresh reloads every message visible to the viewer. On failure the last known good set stays.
func (c *Conversations) Refresh(ctx context.Context) error {
	fetched, err := c.repo.ListForViewer(ctx, c.viewer)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to load messages for %s: %v", c.viewer.Email, err)
		return errs.Fetch("messaging.Refresh", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	next := make(map[string]models.Message, len(fetched))
	for _, m := range fetched {
		next[m.ID] = keepReadAt(c.messages[m.ID], m)
	}
	c.messages = next
	return nil
}

// keepReadAt never lets a read receipt go back to unread.
func keepReadAt(local, incoming models.Message) models.Message {
	if incoming.ReadAt == nil && local.ReadAt != nil {
		incoming.ReadAt = local.ReadAt
	}
	return incoming
}

// StartConversation returns the thread with counterparty, creating it when the pair has none yet.
func (c *Conversations) StartConversation(counterparty string, proposalID *string, proposalTitle string) (models.Conversation, error) {
	counterparty = strings.ToLower(strings.TrimSpace(counterparty))
	if err := c.validate.Var(counterparty, "required,email"); err != nil {
		return models.Conversation{}, fmt.Errorf("invalid counterparty %q: %w", counterparty, err)
	}
	if c.viewer.Is(counterparty) {
		return models.Conversation{}, fmt.Errorf("cannot start a conversation with yourself")
	}

	id := c.key(counterparty, proposalID)

	c.mu.Lock()
	if _, ok := c.threads[id]; !ok {
		c.threads[id] = thread{counterparty: counterparty, proposalID: proposalID, proposalTitle: proposalTitle}
	}
	c.mu.Unlock()

	conversation, _ := c.Conversation(id)
	return conversation, nil
}

func (c *Conversations) key(counterparty string, proposalID *string) string {
	if c.viewer.Role == models.RoleCompany {
		return models.ConversationKey(c.viewer.Email, counterparty, proposalID)
	}
	return models.ConversationKey(counterparty, c.viewer.Email, proposalID)
}

// ListConversations returns the viewer's conversations, most recent activity first.
func (c *Conversations) ListConversations() []models.Conversation {
	c.mu.RLock()
	defer c.mu.RUnlock()

	byConversation := lo.GroupBy(lo.Values(c.messages), func(m models.Message) string { return m.ConversationID })
	ids := lo.Uniq(append(lo.Keys(byConversation), lo.Keys(c.threads)...))

	conversations := lo.FilterMap(ids, func(id string, _ int) (models.Conversation, bool) {
		return c.build(id, byConversation[id])
	})

	sort.SliceStable(conversations, func(i, j int) bool {
		if !conversations[i].LastMessageAt.Equal(conversations[j].LastMessageAt) {
			return conversations[i].LastMessageAt.After(conversations[j].LastMessageAt)
		}
		return conversations[i].ID < conversations[j].ID
	})
	return conversations
}

func (c *Conversations) Conversation(id string) (models.Conversation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.build(id, c.threadMessages(id))
}

// UnreadTotal is the sum of unread counts over all conversations.
func (c *Conversations) UnreadTotal() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return lo.CountBy(lo.Values(c.messages), c.unread)
}

func (c *Conversations) involves(m models.Message) bool {
	return c.viewer.Is(m.SenderEmail) || c.viewer.Is(m.RecipientEmail)
}

func (c *Conversations) unread(m models.Message) bool {
	return !m.IsRead() && !c.viewer.Is(m.SenderEmail)
}

func (c *Conversations) threadMessages(id string) []models.Message {
	return lo.Filter(lo.Values(c.messages), func(m models.Message, _ int) bool { return m.ConversationID == id })
}

// build derives the conversation id from its messages and the started thread, if any. Caller holds mu.
func (c *Conversations) build(id string, messages []models.Message) (models.Conversation, bool) {
	meta, started := c.threads[id]
	if !started && len(messages) == 0 {
		return models.Conversation{}, false
	}

	conversation := models.Conversation{ID: id, ProposalID: meta.proposalID, ProposalTitle: meta.proposalTitle}
	counterparty := meta.counterparty

	for _, m := range messages {
		if m.CreatedAt.After(conversation.LastMessageAt) {
			conversation.LastMessageAt = m.CreatedAt
		}
		if c.unread(m) {
			conversation.UnreadCount++
		}
		if counterparty == "" {
			counterparty = lo.Ternary(c.viewer.Is(m.SenderEmail), m.RecipientEmail, m.SenderEmail)
		}
		if conversation.ProposalID == nil {
			conversation.ProposalID = m.ProposalID
		}
	}

	if c.viewer.Role == models.RoleCompany {
		conversation.CompanyEmail, conversation.RecruiterEmail = c.viewer.Email, counterparty
	} else {
		conversation.CompanyEmail, conversation.RecruiterEmail = counterparty, c.viewer.Email
	}
	return conversation, true
}

// Timeline renders the known messages of a conversation with timestamp separators.
func (c *Conversations) Timeline(conversationID string) []Entry {
	c.mu.RLock()
	messages := c.threadMessages(conversationID)
	c.mu.RUnlock()

	sortChronologically(messages)
	return Timeline(messages, c.gap)
}

// FetchMessages returns the thread in chronological order and marks the counterparty's unread
// messages as read at fetch time.
func (c *Conversations) FetchMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	fetched, err := c.repo.ListByConversation(ctx, conversationID)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to fetch conversation %s: %v", conversationID, err)
		return nil, errs.Fetch("messaging.FetchMessages", err)
	}

	involved := lo.Filter(fetched, func(m models.Message, _ int) bool { return c.involves(m) })
	if len(involved) < len(fetched) {
		log.Warnf("conversation %s holds %d messages not involving %s, dropped",
			conversationID, len(fetched)-len(involved), c.viewer.Email)
		if len(involved) == 0 {
			return nil, errs.NotFound("messaging.FetchMessages", conversationID)
		}
	}
	fetched = involved

	c.mu.RLock()
	for i, m := range fetched {
		fetched[i] = keepReadAt(c.messages[m.ID], m)
	}
	c.mu.RUnlock()

	sortChronologically(fetched)

	unread := lo.FilterMap(fetched, func(m models.Message, _ int) (string, bool) { return m.ID, c.unread(m) })
	if len(unread) > 0 {
		at := c.now()
		if err = c.repo.MarkRead(ctx, unread, at); err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypePersistence).
				Errorf("failed to mark %d messages of conversation %s as read: %v", len(unread), conversationID, err)
		} else {
			for i := range fetched {
				if lo.Contains(unread, fetched[i].ID) {
					fetched[i].ReadAt = &at
				}
			}
		}
	}

	c.mu.Lock()
	for _, m := range fetched {
		c.messages[m.ID] = m
	}
	c.mu.Unlock()

	return fetched, nil
}

// SendMessage persists content as a new message. The boolean tells the caller whether the compose box can be cleared.
func (c *Conversations) SendMessage(ctx context.Context, conversationID, content string) (bool, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return false, errs.EmptyMessage("messaging.SendMessage")
	}

	conversation, ok := c.Conversation(conversationID)
	if !ok {
		return false, errs.NotFound("messaging.SendMessage", conversationID)
	}

	createdAt := c.now()
	if !createdAt.After(conversation.LastMessageAt) {
		createdAt = conversation.LastMessageAt.Add(time.Nanosecond)
	}

	message := models.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		ProposalID:     conversation.ProposalID,
		SenderEmail:    c.viewer.Email,
		RecipientEmail: c.viewer.Counterparty(conversation),
		Content:        content,
		CreatedAt:      createdAt,
	}

	if err := c.validate.Struct(message); err != nil {
		metrics.MessagesCounter.WithLabelValues("invalid").Inc()
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeValidation).Errorf("refusing to send invalid message: %v", err)
		return false, errs.SendFailure("messaging.SendMessage", err)
	}

	if err := c.repo.Create(ctx, message); err != nil {
		metrics.MessagesCounter.WithLabelValues("failed").Inc()
		log.WithField(logger.ErrorTypeField, logger.ErrorTypePersistence).
			Errorf("failed to send message in conversation %s: %v", conversationID, err)
		return false, errs.SendFailure("messaging.SendMessage", err)
	}

	c.mu.Lock()
	c.messages[message.ID] = message
	c.mu.Unlock()

	metrics.MessagesCounter.WithLabelValues("sent").Inc()
	return true, nil
}

// ApplyRemote merges a message delivered by the live-update channel. Deliveries are at-least-once,
// so a known id only ever gains its read receipt. Reports whether anything changed.
func (c *Conversations) ApplyRemote(message models.Message) bool {
	if !c.involves(message) {
		log.Warnf("live message %s does not involve %s, ignored", message.ID, c.viewer.Email)
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	local, known := c.messages[message.ID]
	if known {
		if local.ReadAt != nil || message.ReadAt == nil {
			return false
		}
		local.ReadAt = message.ReadAt
		c.messages[message.ID] = local
		return true
	}

	c.messages[message.ID] = message
	return true
}

func sortChronologically(messages []models.Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		if !messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].CreatedAt.Before(messages[j].CreatedAt)
		}
		return messages[i].ID < messages[j].ID
	})
}
