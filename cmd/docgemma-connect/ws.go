package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/galinilin/docgemma-connect/internal/events"
	"github.com/galinilin/docgemma-connect/internal/runner"
)

const (
	wsMaxPayloadBytes = 1 << 20
	wsPongWait        = 45 * time.Second
	wsWriteWait       = 10 * time.Second
	wsPingInterval    = 30 * time.Second
)

// clientFrame is one client->server message on the duplex channel (spec
// §6.1): either a user_message or a tool_approval decision.
type clientFrame struct {
	Type        string `json:"type"`
	Content     string `json:"content,omitempty"`
	ImageBase64 string `json:"image_base64,omitempty"`
	Approved    bool   `json:"approved,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// wsSink marshals each event as one JSON text frame onto a connection's
// send channel, non-blocking past a full buffer (a slow client drops its
// own trailing events rather than stalling turn processing).
type wsSink struct {
	send chan []byte
}

func (s *wsSink) Emit(_ context.Context, e events.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	select {
	case s.send <- data:
	default:
	}
}

// wsConn holds one session's duplex WebSocket connection, grounded in
// the teacher's wsSession send-channel/readLoop/writeLoop shape.
type wsConn struct {
	sessionID string
	runner    *runner.Runner
	conn      *websocket.Conn
	send      chan []byte
	ctx       context.Context
	cancel    context.CancelFunc
	id        string
}

// handleSessionWS upgrades GET /sessions/{id}/ws to a duplex WebSocket
// channel for that session (spec §6.1).
func (s *server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	wc := &wsConn{
		sessionID: sessionID,
		runner:    s.cfg.Runner,
		conn:      conn,
		send:      make(chan []byte, 64),
		ctx:       ctx,
		cancel:    cancel,
		id:        uuid.NewString(),
	}
	wc.run()
}

func (c *wsConn) run() {
	defer c.close()
	go c.writeLoop()
	c.readLoop()
}

func (c *wsConn) close() {
	c.cancel()
	close(c.send)
	_ = c.conn.Close()
}

func (c *wsConn) readLoop() {
	c.conn.SetReadLimit(wsMaxPayloadBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.sendError("invalid frame: " + err.Error())
			continue
		}

		c.handleFrame(frame)
	}
}

func (c *wsConn) writeLoop() {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

// handleFrame dispatches one client frame, blocking until the turn it
// starts or resumes reaches a terminal or paused state. This serializes
// turns on a given connection by construction, matching the Session
// Store's per-session write-lock guarantee (spec §5).
func (c *wsConn) handleFrame(frame clientFrame) {
	sink := &wsSink{send: c.send}

	switch frame.Type {
	case "user_message":
		var imageBytes []byte
		if frame.ImageBase64 != "" {
			decoded, err := base64.StdEncoding.DecodeString(frame.ImageBase64)
			if err != nil {
				c.sendError("invalid image_base64: " + err.Error())
				return
			}
			imageBytes = decoded
		}
		req := runner.StartTurnRequest{
			SessionID:          c.sessionID,
			UserQuery:          frame.Content,
			ImageBytes:         imageBytes,
			ToolCallingEnabled: true,
			ThinkingEnabled:    true,
		}
		if err := c.runner.StartTurn(c.ctx, req, sink); err != nil {
			c.sendError(err.Error())
		}

	case "tool_approval":
		req := runner.ResumeWithDecisionRequest{
			SessionID:       c.sessionID,
			Approved:        frame.Approved,
			RejectionReason: frame.Reason,
		}
		if err := c.runner.ResumeWithDecision(c.ctx, req, sink); err != nil {
			c.sendError(err.Error())
		}

	default:
		c.sendError("unknown frame type " + frame.Type)
	}
}

func (c *wsConn) sendError(message string) {
	ev := events.Event{
		Kind: events.KindError,
		Time: time.Now(),
		Error: &events.ErrorPayload{
			Kind:        events.ErrorKindInternal,
			Message:     message,
			Recoverable: true,
		},
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
