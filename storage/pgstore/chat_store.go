package pgstore

import (
	"context"
	"strings"

	"github.com/andygonzalez6/Bandaid/chats"
	apperr "github.com/andygonzalez6/Bandaid/internal/errors"
	"gorm.io/gorm"
)

// ChatStore is a chats.Store backed by the chats table.
type ChatStore struct {
	db *gorm.DB
}

var _ chats.Store = (*ChatStore)(nil)

func NewChatStore(db *gorm.DB) *ChatStore {
	return &ChatStore{db: db}
}

func (s *ChatStore) Append(ctx context.Context, senderID, receiverID int64, content string) (*chats.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperr.E(apperr.KindInvalidInput, "ChatStore.Append", apperr.ErrMissingFields)
	}
	rec := &messageRecord{SenderID: senderID, ReceiverID: receiverID, Content: content}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, apperr.Wrapf(err, "ChatStore.Append")
	}
	return rec.toMessage(), nil
}

func (s *ChatStore) QueryConversation(ctx context.Context, a, b int64) ([]*chats.Message, error) {
	q := s.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a)
	return s.find(q, "ChatStore.QueryConversation")
}

func (s *ChatStore) QueryForUser(ctx context.Context, userID int64) ([]*chats.Message, error) {
	q := s.db.WithContext(ctx).Where("sender_id = ? OR receiver_id = ?", userID, userID)
	return s.find(q, "ChatStore.QueryForUser")
}

func (s *ChatStore) find(q *gorm.DB, op string) ([]*chats.Message, error) {
	var recs []messageRecord
	if err := q.Order("created_at desc").Order("id desc").Find(&recs).Error; err != nil {
		return nil, apperr.Wrapf(err, "%s", op)
	}
	out := make([]*chats.Message, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toMessage())
	}
	return out, nil
}
