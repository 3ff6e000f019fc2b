package chat

import (
	"time"

	"github.com/google/uuid"
)

// Conversation statuses.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Conversation is a support thread, one per user.
type Conversation struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID        uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex"`
	Status        string    `json:"status" gorm:"not null;default:'open';index"`
	LastMessageAt time.Time `json:"last_message_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (Conversation) TableName() string {
	return "conversations"
}

// Message is a single chat message. FromAdmin marks staff replies.
type Message struct {
	ID             uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ConversationID uuid.UUID  `json:"conversation_id" gorm:"type:uuid;not null;index"`
	SenderID       uuid.UUID  `json:"sender_id" gorm:"type:uuid;not null"`
	FromAdmin      bool       `json:"from_admin" gorm:"not null;default:false"`
	Body           string     `json:"body" gorm:"not null"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at" gorm:"index"`
}

// TableName returns the database table name.
func (Message) TableName() string {
	return "chat_messages"
}
