package fakechatrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/andygonzalez6/Bandaid/chats"
	apperr "github.com/andygonzalez6/Bandaid/internal/errors"
)

var _ chats.Store = (*FakeChatRepo)(nil)

type FakeChatRepo struct {
	messages []*chats.Message
	nextID   int64
	nowFunc  func() time.Time
	lock     sync.RWMutex
}

func NewFakeChatRepo() *FakeChatRepo {
	return &FakeChatRepo{nowFunc: time.Now}
}

// WithNowFunc replaces the timestamp source (primarily for testing).
func (cr *FakeChatRepo) WithNowFunc(now func() time.Time) *FakeChatRepo {
	cr.nowFunc = now
	return cr
}

func (cr *FakeChatRepo) Append(_ context.Context, senderID, receiverID int64, content string) (*chats.Message, error) {
	if content == "" {
		return nil, apperr.E(apperr.KindInvalidInput, "FakeChatRepo.Append", apperr.ErrMissingFields)
	}

	cr.lock.Lock()
	defer cr.lock.Unlock()

	cr.nextID++
	m := &chats.Message{
		ID:         cr.nextID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		Timestamp:  cr.nowFunc().UTC(),
	}
	cr.messages = append(cr.messages, m)
	c := *m
	return &c, nil
}

func (cr *FakeChatRepo) QueryConversation(_ context.Context, a, b int64) ([]*chats.Message, error) {
	return cr.filter(func(m *chats.Message) bool { return m.Between(a, b) }), nil
}

func (cr *FakeChatRepo) QueryForUser(_ context.Context, userID int64) ([]*chats.Message, error) {
	return cr.filter(func(m *chats.Message) bool { return m.Involves(userID) }), nil
}

// Len returns the number of stored messages.
func (cr *FakeChatRepo) Len() int {
	cr.lock.RLock()
	defer cr.lock.RUnlock()
	return len(cr.messages)
}

func (cr *FakeChatRepo) filter(keep func(*chats.Message) bool) []*chats.Message {
	cr.lock.RLock()
	defer cr.lock.RUnlock()

	out := make([]*chats.Message, 0)
	for _, m := range cr.messages {
		if keep(m) {
			c := *m
			out = append(out, &c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID > out[j].ID
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}
