package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/weiawesome/wes-io-dorm/internal/domain"
)

// GormConversationRepository implements ConversationRepository using GORM.
type GormConversationRepository struct {
	db *gorm.DB
}

// NewGormConversationRepository creates a new GORM-based conversation repository.
func NewGormConversationRepository(db *gorm.DB) *GormConversationRepository {
	return &GormConversationRepository{db: db}
}

// Create inserts the conversation and one participant row per distinct user.
func (r *GormConversationRepository) Create(ctx context.Context, title string, userIDs ...uint) (*domain.Conversation, error) {
	model := domain.ConversationModel{Title: title}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		seen := make(map[uint]struct{}, len(userIDs))
		for _, uid := range userIDs {
			if _, dup := seen[uid]; dup {
				continue
			}
			seen[uid] = struct{}{}
			if err := tx.Create(&domain.ParticipantModel{ConversationID: model.ID, UserID: uid}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// Get retrieves a conversation by ID.
func (r *GormConversationRepository) Get(ctx context.Context, id uint) (*domain.Conversation, error) {
	var model domain.ConversationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Exists reports whether a conversation with id exists.
func (r *GormConversationRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.ConversationModel{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// IsParticipant reports whether userID belongs to conversationID.
func (r *GormConversationRepository) IsParticipant(ctx context.Context, conversationID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.ParticipantModel{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	return count > 0, err
}

// FindDirect returns the lowest-numbered conversation whose participant set
// is exactly {a, b}.
func (r *GormConversationRepository) FindDirect(ctx context.Context, a, b uint) (*domain.Conversation, error) {
	db := r.db.WithContext(ctx)
	withA := db.Model(&domain.ParticipantModel{}).Select("conversation_id").Where("user_id = ?", a)
	withB := db.Model(&domain.ParticipantModel{}).Select("conversation_id").Where("user_id = ?", b)

	var ids []uint
	err := db.Model(&domain.ParticipantModel{}).
		Where("conversation_id IN (?) AND conversation_id IN (?)", withA, withB).
		Group("conversation_id").
		Having("COUNT(*) = ?", 2).
		Order("conversation_id").
		Limit(1).
		Pluck("conversation_id", &ids).Error
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrConversationNotFound
	}
	return r.Get(ctx, ids[0])
}

// ListForUser returns userID's conversations, newest first.
func (r *GormConversationRepository) ListForUser(ctx context.Context, userID uint) ([]*domain.Conversation, error) {
	var models []domain.ConversationModel
	err := r.db.WithContext(ctx).
		Joins("JOIN conversation_participants ON conversation_participants.conversation_id = conversations.id").
		Where("conversation_participants.user_id = ?", userID).
		Order("conversations.created_at DESC, conversations.id DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Conversation, len(models))
	for i := range models {
		out[i] = models[i].ToDomain()
	}
	return out, nil
}

// Participants returns the users in a conversation in join order.
func (r *GormConversationRepository) Participants(ctx context.Context, conversationID uint) ([]*domain.User, error) {
	var models []domain.UserModel
	err := r.db.WithContext(ctx).
		Joins("JOIN conversation_participants ON conversation_participants.user_id = users.id").
		Where("conversation_participants.conversation_id = ?", conversationID).
		Order("conversation_participants.id").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]*domain.User, len(models))
	for i := range models {
		out[i] = models[i].ToDomain()
	}
	return out, nil
}
