package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/andygonzalez6/Bandaid/chats"
	apperr "github.com/andygonzalez6/Bandaid/internal/errors"
	"github.com/andygonzalez6/Bandaid/relay"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameBytes  = 1 << 20
	sendBufferSize = 256

	EventPrivateDM = "private_dm"
	EventError     = "error"
)

var errConnClosed = errors.New("connection closed")

// Frame is the JSON envelope of every WebSocket message in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type errorData struct {
	Error string `json:"error"`
}

// wsConn adapts a WebSocket to relay.Conn. Writes are serialised through the
// send queue drained by writePump.
type wsConn struct {
	id   string
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

var _ relay.Conn = (*wsConn)(nil)

func newWSConn(ws *websocket.Conn) *wsConn {
	return &wsConn{
		id:   uuid.NewString(),
		ws:   ws,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
}

func (c *wsConn) ID() string {
	return c.id
}

func (c *wsConn) Send(ctx context.Context, msg *chats.Message) error {
	return c.enqueue(ctx, EventPrivateDM, msg)
}

func (c *wsConn) sendError(ctx context.Context, message string) {
	if err := c.enqueue(ctx, EventError, errorData{Error: message}); err != nil {
		log.Debug().Err(err).Str("conn", c.id).Msg("error frame not sent")
	}
}

func (c *wsConn) enqueue(ctx context.Context, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(Frame{Event: event, Data: data})
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return errConnClosed
	default:
	}
	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return errConnClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *wsConn) close() {
	c.once.Do(func() { close(c.done) })
}

// credentialFromRequest reads the session token from the Authorization
// header, falling back to the token query parameter for browser clients.
func credentialFromRequest(r *http.Request) string {
	if token := bearerToken(r); token != "" {
		return token
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// SocketHandler admits the caller, upgrades the connection and pumps frames
// until either side goes away.
func (s *Server) SocketHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.services.Relay.Admit(r.Context(), credentialFromRequest(r))
		if err != nil {
			if apperr.KindOf(err) == apperr.KindInternal {
				writeError(w, err)
				return
			}
			s.services.Metrics.AuthFailed("socket")
			writeUnauthorized(w, credentialsErrorMessage)
			return
		}

		ws, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Debug().Err(err).Msg("websocket upgrade failed")
			return
		}

		conn := newWSConn(ws)
		session := s.services.Relay.Attach(user, conn)
		defer session.Close()

		go s.writePump(conn)
		s.readPump(r.Context(), conn, session)
	}
}

func (s *Server) readPump(ctx context.Context, c *wsConn, session *relay.Session) {
	defer c.close()

	c.ws.SetReadLimit(maxFrameBytes)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("conn", c.id).Msg("websocket closed unexpectedly")
			}
			return
		}

		var in Frame
		if err := json.Unmarshal(data, &in); err != nil {
			c.sendError(ctx, errMalformedBody.Error())
			continue
		}

		switch in.Event {
		case EventPrivateDM:
			var env relay.Envelope
			if err := json.Unmarshal(in.Data, &env); err != nil {
				c.sendError(ctx, errMalformedBody.Error())
				continue
			}
			if _, err := session.Submit(ctx, env); err != nil {
				c.sendError(ctx, apperr.Public(err))
			}
		default:
			c.sendError(ctx, "unknown event")
		}
	}
}

func (s *Server) writePump(c *wsConn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
