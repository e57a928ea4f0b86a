package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/weiawesome/wes-io-dorm/internal/domain"
)

const defaultMessagePage = 50

// GormMessageRepository implements MessageRepository using GORM.
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a new GORM-based message repository.
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

// Create persists a message; the store assigns its ID and timestamp.
func (r *GormMessageRepository) Create(ctx context.Context, content string, senderID, conversationID uint) (*domain.Message, error) {
	model := domain.MessageModel{
		Content:        content,
		SenderID:       senderID,
		ConversationID: conversationID,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

type messageRow struct {
	ID             uint
	Content        string
	SenderID       uint
	ConversationID uint
	CreatedAt      time.Time
	SenderName     string
}

// List returns a page of messages, oldest first.
func (r *GormMessageRepository) List(ctx context.Context, conversationID uint, offset, limit int) ([]*domain.MessageView, error) {
	if limit <= 0 {
		limit = defaultMessagePage
	}
	var rows []messageRow
	err := r.db.WithContext(ctx).
		Table("messages").
		Select("messages.id, messages.content, messages.sender_id, messages.conversation_id, messages.created_at, users.username AS sender_name").
		Joins("JOIN users ON users.id = messages.sender_id").
		Where("messages.conversation_id = ?", conversationID).
		Order("messages.created_at ASC, messages.id ASC").
		Offset(offset).
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]*domain.MessageView, len(rows))
	for i, row := range rows {
		out[i] = &domain.MessageView{
			Message: domain.Message{
				ID:             row.ID,
				Content:        row.Content,
				SenderID:       row.SenderID,
				ConversationID: row.ConversationID,
				CreatedAt:      row.CreatedAt,
			},
			SenderName: row.SenderName,
		}
	}
	return out, nil
}
