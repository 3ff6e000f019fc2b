package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrConversationNotFound is returned when a conversation doesn't exist.
var ErrConversationNotFound = errors.New("conversation not found")

// Repository defines chat data access.
type Repository interface {
	GetOrCreateConversation(ctx context.Context, userID uuid.UUID) (*Conversation, error)
	GetConversation(ctx context.Context, id uuid.UUID) (*Conversation, error)
	ListOpenConversations(ctx context.Context, offset, limit int) ([]*Conversation, int64, error)
	CloseConversation(ctx context.Context, id uuid.UUID) error

	CreateMessage(ctx context.Context, msg *Message) error
	ListMessagesSince(ctx context.Context, conversationID uuid.UUID, since time.Time, limit int) ([]*Message, error)
	MarkRead(ctx context.Context, conversationID uuid.UUID, fromAdmin bool) error
	CountUnread(ctx context.Context, conversationID uuid.UUID, fromAdmin bool) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new chat repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetOrCreateConversation(ctx context.Context, userID uuid.UUID) (*Conversation, error) {
	var conv Conversation
	err := r.db.WithContext(ctx).First(&conv, "user_id = ?", userID).Error
	if err == nil {
		return &conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	conv = Conversation{UserID: userID, Status: StatusOpen, LastMessageAt: time.Now()}
	if err := r.db.WithContext(ctx).Create(&conv).Error; err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return &conv, nil
}

func (r *repository) GetConversation(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	var conv Conversation
	err := r.db.WithContext(ctx).First(&conv, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return &conv, nil
}

func (r *repository) ListOpenConversations(ctx context.Context, offset, limit int) ([]*Conversation, int64, error) {
	query := r.db.WithContext(ctx).Model(&Conversation{}).Where("status = ?", StatusOpen)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count conversations: %w", err)
	}

	var conversations []*Conversation
	err := query.Order("last_message_at DESC").Offset(offset).Limit(limit).Find(&conversations).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list conversations: %w", err)
	}
	return conversations, total, nil
}

func (r *repository) CloseConversation(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&Conversation{}).
		Where("id = ?", id).
		Update("status", StatusClosed)
	if result.Error != nil {
		return fmt.Errorf("close conversation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrConversationNotFound
	}
	return nil
}

func (r *repository) CreateMessage(ctx context.Context, msg *Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("create message: %w", err)
		}
		// A new message reopens a closed conversation.
		return tx.Model(&Conversation{}).
			Where("id = ?", msg.ConversationID).
			Updates(map[string]any{
				"last_message_at": time.Now(),
				"status":          StatusOpen,
			}).Error
	})
}

func (r *repository) ListMessagesSince(ctx context.Context, conversationID uuid.UUID, since time.Time, limit int) ([]*Message, error) {
	var messages []*Message
	query := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Limit(limit)
	if !since.IsZero() {
		query = query.Where("created_at > ?", since)
	}
	if err := query.Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// MarkRead marks messages from the given side as read.
func (r *repository) MarkRead(ctx context.Context, conversationID uuid.UUID, fromAdmin bool) error {
	err := r.db.WithContext(ctx).Model(&Message{}).
		Where("conversation_id = ? AND from_admin = ? AND read_at IS NULL", conversationID, fromAdmin).
		Update("read_at", time.Now()).Error
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}

// CountUnread counts unread messages from the given side.
func (r *repository) CountUnread(ctx context.Context, conversationID uuid.UUID, fromAdmin bool) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Message{}).
		Where("conversation_id = ? AND from_admin = ? AND read_at IS NULL", conversationID, fromAdmin).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}
