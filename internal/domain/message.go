package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is a direct message between two users, optionally about an ad.
type Message struct {
	ID         uuid.UUID  `db:"id"`
	Content    string     `db:"content"`
	SenderID   uuid.UUID  `db:"sender_id"`
	ReceiverID uuid.UUID  `db:"receiver_id"`
	AdID       *uuid.UUID `db:"ad_id"`
	IsRead     bool       `db:"is_read"`
	CreatedAt  time.Time  `db:"created_at"`
}

// UserRef is the minimal public reference to a user.
type UserRef struct {
	ID   uuid.UUID `db:"id"`
	Name string    `db:"name"`
}

// AdRef is the minimal reference to an ad attached to a message.
type AdRef struct {
	ID           uuid.UUID `db:"id"`
	Title        string    `db:"title"`
	Price        float64   `db:"price"`
	IsActive     bool      `db:"is_active"`
	MainImageURL *string   `db:"main_image_url"`
}

// MessageDetails is a message joined with its participants and ad.
type MessageDetails struct {
	Message
	Sender   UserRef
	Receiver UserRef
	Ad       *AdRef
}

// Conversation is the aggregated view of all messages between the current
// user and one counterpart.
type Conversation struct {
	ID          string
	OtherUser   UserRef
	Ad          *AdRef
	LastMessage MessageDetails
	UnreadCount int
}
