package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"finadvisor/internal/log"
	"finadvisor/internal/services"
)

const (
	wsReadLimit    = 16 << 10
	wsIdleTimeout  = 2 * time.Minute
	wsWriteTimeout = 10 * time.Second
)

// ClientMessage is one chat question sent over the websocket.
type ClientMessage struct {
	Message string `json:"message"`
	Persona any    `json:"persona,omitempty"`
}

// ServerMessage is the single reply to a ClientMessage.
type ServerMessage struct {
	Type  string                 `json:"type"`
	Chat  *services.ChatResponse `json:"chat,omitempty"`
	Error string                 `json:"error,omitempty"`
}

const (
	messageTypeReply = "reply"
	messageTypeError = "error"
)

// checkSameOrigin accepts clients without an Origin header and browsers on
// the same host.
func checkSameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}

// handleWebSocketChat answers each chat message with exactly one reply.
// Messages count against the client's rate limit.
func (s *Server) handleWebSocketChat(w http.ResponseWriter, r *http.Request) {
	upgrader := s.upgrader
	upgrader.CheckOrigin = checkSameOrigin

	logger := log.FromContext(r.Context())
	clientIP := s.detector.ExtractClientIP(r)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WarnContext(r.Context(), "WebSocket upgrade failed", log.FieldError, err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(wsReadLimit)
	logger.InfoContext(r.Context(), "WebSocket connected", log.FieldClientIP, clientIP)

	for {
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		_, msgBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WarnContext(r.Context(), "WebSocket read failed", log.FieldError, err)
			}
			return
		}

		if !s.limiter.Allow(clientIP) {
			if !s.send(conn, ServerMessage{Type: messageTypeError, Error: "Rate limit exceeded. Please try again later."}) {
				return
			}
			continue
		}

		reply := s.answer(r.Context(), msgBytes)
		if !s.send(conn, reply) {
			return
		}
	}
}

func (s *Server) answer(ctx context.Context, msgBytes []byte) ServerMessage {
	var data map[string]any
	if err := json.Unmarshal(msgBytes, &data); err != nil {
		return ServerMessage{Type: messageTypeError, Error: "Invalid message format"}
	}
	if err := validateData(chatSchema, data); err != nil {
		return ServerMessage{Type: messageTypeError, Error: err.Error()}
	}

	var msg ClientMessage
	if err := json.Unmarshal(msgBytes, &msg); err != nil {
		return ServerMessage{Type: messageTypeError, Error: "Invalid message format"}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.advisor.Chat(ctx, sanitizeInput(msg.Message), msg.Persona)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "WebSocket chat failed", log.FieldError, err)
		return ServerMessage{Type: messageTypeError, Error: "Error processing chat request"}
	}
	return ServerMessage{Type: messageTypeReply, Chat: resp}
}

func (s *Server) send(conn *websocket.Conn, msg ServerMessage) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		s.logger.Warn("WebSocket write failed", log.FieldError, err)
		return false
	}
	return true
}
