package relay_test

import (
	"context"
	"sync"
	"testing"
	"time"

	apperr "github.com/andygonzalez6/Bandaid/internal/errors"
	"github.com/andygonzalez6/Bandaid/relay"
	"github.com/andygonzalez6/Bandaid/token"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresDependencies(t *testing.T) {
	f := setupTestFixture(t)

	_, err := relay.New(nil, f.userRepo, f.chatRepo, nil)
	require.Error(t, err)
	_, err = relay.New(f.service, nil, f.chatRepo, nil)
	require.Error(t, err)
	_, err = relay.New(f.service, f.userRepo, nil, nil)
	require.Error(t, err)

	r, err := relay.New(f.service, f.userRepo, f.chatRepo, nil)
	require.NoError(t, err)
	require.NotNil(t, r.Registry())
}

func TestAdmit(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	alice, aliceToken := f.createUser(t, "alice@example.com")

	user, err := f.relay.Admit(ctx, aliceToken)
	require.NoError(t, err)
	require.Equal(t, alice.ID, user.ID)

	ghostToken, err := f.service.CreateToken("ghost@example.com", time.Minute)
	require.NoError(t, err)
	otherSecret, _, err := token.NewCodec(token.NewHMACSigner("other")).Create("alice@example.com", time.Minute)
	require.NoError(t, err)

	for name, credential := range map[string]string{
		"missing":        "",
		"blank":          "   ",
		"garbage":        "not-a-token",
		"unknown user":   ghostToken,
		"foreign secret": otherSecret,
	} {
		t.Run(name, func(t *testing.T) {
			conn := newFakeConn()
			_, err := f.relay.Connect(ctx, credential, conn)
			require.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
			require.Zero(t, f.relay.Registry().Online())
		})
	}
}

func TestRelay_DeliversToOnlineReceiver(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	alice, aliceToken := f.createUser(t, "alice@example.com")
	bob, bobToken := f.createUser(t, "bob@example.com")

	aliceConn, bobConn := newFakeConn(), newFakeConn()
	aliceSession, err := f.relay.Connect(ctx, aliceToken, aliceConn)
	require.NoError(t, err)
	_, err = f.relay.Connect(ctx, bobToken, bobConn)
	require.NoError(t, err)
	require.Equal(t, 2, f.metrics.online)

	msg, err := aliceSession.Submit(ctx, relay.Envelope{Content: "hi bob", ReceiverID: bob.ID, AuthToken: aliceToken})
	require.NoError(t, err)
	require.Equal(t, alice.ID, msg.SenderID)
	require.NotZero(t, msg.ID)
	require.False(t, msg.Timestamp.IsZero())

	got := bobConn.Received()
	require.Len(t, got, 1)
	require.Equal(t, "hi bob", got[0].Content)
	require.Equal(t, alice.ID, got[0].SenderID)
	require.Equal(t, bob.ID, got[0].ReceiverID)
	require.Empty(t, aliceConn.Received())

	stored, err := f.chatRepo.QueryConversation(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, 1, f.metrics.relayed)
	require.Equal(t, 1, f.metrics.delivered)
}

func TestRelay_OfflineReceiverStoresOnly(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	_, aliceToken := f.createUser(t, "alice@example.com")
	bob, _ := f.createUser(t, "bob@example.com")

	session, err := f.relay.Connect(ctx, aliceToken, newFakeConn())
	require.NoError(t, err)

	_, err = session.Submit(ctx, relay.Envelope{Content: "later", ReceiverID: bob.ID, AuthToken: aliceToken})
	require.NoError(t, err)
	require.Equal(t, 1, f.chatRepo.Len())
	require.Equal(t, 1, f.metrics.dropped[relay.DropOffline])
}

func TestRelay_SendFailureIsNotSurfaced(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	_, aliceToken := f.createUser(t, "alice@example.com")
	bob, bobToken := f.createUser(t, "bob@example.com")

	session, err := f.relay.Connect(ctx, aliceToken, newFakeConn())
	require.NoError(t, err)
	broken := newFakeConn()
	broken.fail = true
	_, err = f.relay.Connect(ctx, bobToken, broken)
	require.NoError(t, err)

	_, err = session.Submit(ctx, relay.Envelope{Content: "hello", ReceiverID: bob.ID, AuthToken: aliceToken})
	require.NoError(t, err)
	require.Equal(t, 1, f.chatRepo.Len())
	require.Equal(t, 1, f.metrics.dropped[relay.DropSendFailed])
}

func TestSession_SubmitRejects(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	_, aliceToken := f.createUser(t, "alice@example.com")
	bob, bobToken := f.createUser(t, "bob@example.com")

	session, err := f.relay.Connect(ctx, aliceToken, newFakeConn())
	require.NoError(t, err)

	expired, _, err := token.NewCodec(token.NewHMACSigner(secretStr),
		token.WithNowFunc(func() time.Time { return time.Now().Add(-time.Hour) })).Create("alice@example.com", time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name string
		env  relay.Envelope
		kind apperr.Kind
	}{
		{"missing content", relay.Envelope{ReceiverID: bob.ID, AuthToken: aliceToken}, apperr.KindInvalidInput},
		{"blank content", relay.Envelope{Content: "  ", ReceiverID: bob.ID, AuthToken: aliceToken}, apperr.KindInvalidInput},
		{"missing receiver", relay.Envelope{Content: "hi", AuthToken: aliceToken}, apperr.KindInvalidInput},
		{"missing token", relay.Envelope{Content: "hi", ReceiverID: bob.ID}, apperr.KindInvalidInput},
		{"invalid token", relay.Envelope{Content: "hi", ReceiverID: bob.ID, AuthToken: "garbage"}, apperr.KindUnauthorized},
		{"expired token", relay.Envelope{Content: "hi", ReceiverID: bob.ID, AuthToken: expired}, apperr.KindUnauthorized},
		{"token for another user", relay.Envelope{Content: "hi", ReceiverID: bob.ID, AuthToken: bobToken}, apperr.KindUnauthorized},
		{"unknown receiver", relay.Envelope{Content: "hi", ReceiverID: 999, AuthToken: aliceToken}, apperr.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := session.Submit(ctx, tt.env)
			require.Error(t, err)
			require.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}
	require.Zero(t, f.chatRepo.Len())
}

func TestSession_UnknownReceiverMessage(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	_, aliceToken := f.createUser(t, "alice@example.com")
	session, err := f.relay.Connect(ctx, aliceToken, newFakeConn())
	require.NoError(t, err)

	_, err = session.Submit(ctx, relay.Envelope{Content: "hi", ReceiverID: 42, AuthToken: aliceToken})
	require.Equal(t, "invalid message recipient", apperr.Public(err))
}

func TestSession_Close(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	alice, aliceToken := f.createUser(t, "alice@example.com")
	bob, _ := f.createUser(t, "bob@example.com")

	session, err := f.relay.Connect(ctx, aliceToken, newFakeConn())
	require.NoError(t, err)
	require.Equal(t, alice.ID, session.User().ID)

	session.Close()
	session.Close()
	require.True(t, session.Closed())
	require.Zero(t, f.relay.Registry().Online())
	require.Zero(t, f.metrics.online)

	_, err = session.Submit(ctx, relay.Envelope{Content: "hi", ReceiverID: bob.ID, AuthToken: aliceToken})
	require.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestSession_CloseOfReplacedConnectionKeepsNewBinding(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	alice, aliceToken := f.createUser(t, "alice@example.com")
	_, bobToken := f.createUser(t, "bob@example.com")

	first, second := newFakeConn(), newFakeConn()
	oldSession, err := f.relay.Connect(ctx, aliceToken, first)
	require.NoError(t, err)
	_, err = f.relay.Connect(ctx, aliceToken, second)
	require.NoError(t, err)

	oldSession.Close()

	conn, ok := f.relay.Registry().Lookup(alice.ID)
	require.True(t, ok)
	require.Equal(t, second.ID(), conn.ID())

	bobSession, err := f.relay.Connect(ctx, bobToken, newFakeConn())
	require.NoError(t, err)
	_, err = bobSession.Submit(ctx, relay.Envelope{Content: "to the newest", ReceiverID: alice.ID, AuthToken: bobToken})
	require.NoError(t, err)
	require.Len(t, second.Received(), 1)
	require.Empty(t, first.Received())
}

func TestRelay_ConcurrentSenders(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	bob, bobToken := f.createUser(t, "bob@example.com")
	bobConn := newFakeConn()
	_, err := f.relay.Connect(ctx, bobToken, bobConn)
	require.NoError(t, err)

	var sessions []*relay.Session
	var tokens []string
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com", "d@example.com"} {
		_, tok := f.createUser(t, email)
		s, err := f.relay.Connect(ctx, tok, newFakeConn())
		require.NoError(t, err)
		sessions = append(sessions, s)
		tokens = append(tokens, tok)
	}

	var wg sync.WaitGroup
	for i, s := range sessions {
		wg.Add(1)
		go func(s *relay.Session, tok string) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_, err := s.Submit(ctx, relay.Envelope{Content: "ping", ReceiverID: bob.ID, AuthToken: tok})
				require.NoError(t, err)
			}
		}(s, tokens[i])
	}
	wg.Wait()

	require.Len(t, bobConn.Received(), 40)
	require.Equal(t, 40, f.chatRepo.Len())
}
