package repositories

import (
	"context"
	"github.com/maxaizer/recruit-pipeline/internal/domain/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"time"
)

type Messages struct {
	db *gorm.DB
}

func NewMessagesRepository(db *gorm.DB) *Messages {
	return &Messages{db: db}
}

func (repo *Messages) ListForViewer(ctx context.Context, viewer models.Viewer) ([]models.Message, error) {

	var messages []models.Message
	if err := repo.db.WithContext(ctx).
		Where("LOWER(sender_email) = ? OR LOWER(recipient_email) = ?", viewer.Email, viewer.Email).
		Order("created_at").Order("id").
		Find(&messages).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to list messages for %s", viewer.Email)
	}
	return messages, nil
}

func (repo *Messages) ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error) {

	var messages []models.Message
	if err := repo.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at").Order("id").
		Find(&messages).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to list messages of conversation %s", conversationID)
	}
	return messages, nil
}

func (repo *Messages) Create(ctx context.Context, message models.Message) error {
	if err := repo.db.WithContext(ctx).Create(&message).Error; err != nil {
		return errors.Wrapf(err, "failed to create message %s", message.ID)
	}
	return nil
}

// MarkRead sets read_at on messages that are still unread. Read receipts are never moved.
func (repo *Messages) MarkRead(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	err := repo.db.WithContext(ctx).Model(&models.Message{}).
		Where("id IN ? AND read_at IS NULL", ids).
		UpdateColumn("read_at", at.UTC()).Error
	return errors.Wrap(err, "failed to mark messages as read")
}
