package chats

import "context"

// Store is the append-only message log. Query results are ordered newest first.
type Store interface {
	Append(ctx context.Context, senderID, receiverID int64, content string) (*Message, error)
	QueryConversation(ctx context.Context, a, b int64) ([]*Message, error)
	QueryForUser(ctx context.Context, userID int64) ([]*Message, error)
}
