package pgstore

import (
	"time"

	"github.com/andygonzalez6/Bandaid/chats"
	"github.com/andygonzalez6/Bandaid/users"
)

type userRecord struct {
	ID           int64     `gorm:"primaryKey"`
	Email        string    `gorm:"uniqueIndex;size:254;not null"`
	PasswordHash string    `gorm:"size:72"`
	Federated    bool      `gorm:"not null;default:false"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (userRecord) TableName() string { return "users" }

func (r *userRecord) toUser() *users.User {
	return &users.User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Federated:    r.Federated,
		DateJoined:   r.CreatedAt,
	}
}

type messageRecord struct {
	ID         int64     `gorm:"primaryKey"`
	SenderID   int64     `gorm:"index:idx_chat_pair;not null"`
	ReceiverID int64     `gorm:"index:idx_chat_pair;index;not null"`
	Content    string    `gorm:"type:text;not null"`
	CreatedAt  time.Time `gorm:"index;not null"`
}

func (messageRecord) TableName() string { return "chats" }

func (r *messageRecord) toMessage() *chats.Message {
	return &chats.Message{
		ID:         r.ID,
		SenderID:   r.SenderID,
		ReceiverID: r.ReceiverID,
		Content:    r.Content,
		Timestamp:  r.CreatedAt,
	}
}
