package relay_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/andygonzalez6/Bandaid/auth"
	"github.com/andygonzalez6/Bandaid/chats"
	fakechatrepo "github.com/andygonzalez6/Bandaid/chats/repofake"
	"github.com/andygonzalez6/Bandaid/relay"
	"github.com/andygonzalez6/Bandaid/token"
	"github.com/andygonzalez6/Bandaid/users"
	fakeuserrepo "github.com/andygonzalez6/Bandaid/users/repofake"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const secretStr = "1234"

// fakeConn records every message sent to it.
type fakeConn struct {
	id   string
	fail bool

	mu       sync.Mutex
	received []*chats.Message
}

func newFakeConn() *fakeConn {
	return &fakeConn{id: uuid.NewString()}
}

func (c *fakeConn) ID() string {
	return c.id
}

func (c *fakeConn) Send(_ context.Context, msg *chats.Message) error {
	if c.fail {
		return errors.New("broken pipe")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.received = append(c.received, msg)
	return nil
}

func (c *fakeConn) Received() []*chats.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*chats.Message(nil), c.received...)
}

// countingMetrics tallies relay events.
type countingMetrics struct {
	mu        sync.Mutex
	online    int
	relayed   int
	delivered int
	dropped   map[string]int
}

func (m *countingMetrics) SetOnline(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.online = n
}

func (m *countingMetrics) MessageRelayed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.relayed++
}

func (m *countingMetrics) MessageDelivered() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delivered++
}

func (m *countingMetrics) MessageDropped(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dropped == nil {
		m.dropped = map[string]int{}
	}
	m.dropped[reason]++
}

type testFixture struct {
	userRepo *fakeuserrepo.FakeUserRepo
	chatRepo *fakechatrepo.FakeChatRepo
	service  *auth.Service
	metrics  *countingMetrics
	relay    *relay.Relay
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	ur := fakeuserrepo.NewFakeUserRepo()
	cr := fakechatrepo.NewFakeChatRepo()
	service, err := auth.NewService(ur, token.NewCodec(token.NewHMACSigner(secretStr)))
	require.NoError(t, err)

	metrics := &countingMetrics{}
	r, err := relay.New(service, ur, cr, relay.NewRegistry(), relay.WithMetrics(metrics), relay.WithSendTimeout(time.Second))
	require.NoError(t, err)

	return &testFixture{
		userRepo: ur,
		chatRepo: cr,
		service:  service,
		metrics:  metrics,
		relay:    r,
	}
}

// createUser stores a local user and returns it with a valid token.
func (f *testFixture) createUser(t *testing.T, email string) (*users.User, string) {
	t.Helper()
	user, err := f.userRepo.Create(context.Background(), email, "hash", false)
	require.NoError(t, err)
	raw, err := f.service.CreateToken(email, time.Minute)
	require.NoError(t, err)
	return user, raw
}
