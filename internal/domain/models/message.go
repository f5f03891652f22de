package models

import (
	"strings"
	"time"
)

type Message struct {
	ID             string  `gorm:"primaryKey" validate:"required"`
	ConversationID string  `gorm:"index" validate:"required"`
	ProposalID     *string `gorm:"index"`
	SenderEmail    string  `gorm:"index" validate:"required,email"`
	RecipientEmail string  `gorm:"index" validate:"required,email,nefield=SenderEmail"`
	Content        string  `validate:"required"`
	CreatedAt      time.Time
	ReadAt         *time.Time
}

func (m Message) IsRead() bool {
	return m.ReadAt != nil
}

type Conversation struct {
	ID             string
	CompanyEmail   string
	RecruiterEmail string
	ProposalID     *string
	ProposalTitle  string
	LastMessageAt  time.Time
	UnreadCount    int
}

// ConversationKey identifies the thread between a company and a recruiter, optionally anchored to a proposal.
func ConversationKey(companyEmail, recruiterEmail string, proposalID *string) string {
	key := strings.ToLower(companyEmail) + "|" + strings.ToLower(recruiterEmail)
	if proposalID != nil && *proposalID != "" {
		key += "|" + *proposalID
	}
	return key
}
