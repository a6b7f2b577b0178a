package agent

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/ashureev/edem-agent/internal/identity"
)

// Client frames are {"type": "turn", "message": "..."}, {"type": "silence"}
// or {"type": "ping"}. Every frame gets exactly one reply.
type wsMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

type wsReply struct {
	Type     string        `json:"type"`
	Turn     *TurnResponse `json:"turn,omitempty"`
	Response string        `json:"response,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// WebSocketHandler runs turns over a WebSocket connection.
type WebSocketHandler struct {
	service        *Service
	conns          *ConnManager
	limiter        *RateLimiter
	originPatterns []string
	readLimit      int64
}

// NewWebSocketHandler creates a WebSocket handler. allowedOrigins uses the
// same values as CORS_ORIGINS.
func NewWebSocketHandler(service *Service, conns *ConnManager, limiter *RateLimiter, allowedOrigins []string, readLimit int64) *WebSocketHandler {
	return &WebSocketHandler{
		service:        service,
		conns:          conns,
		limiter:        limiter,
		originPatterns: originPatterns(allowedOrigins),
		readLimit:      readLimit,
	}
}

// originPatterns converts configured origins to the host patterns the
// websocket library matches against.
func originPatterns(origins []string) []string {
	var patterns []string
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
		} else {
			patterns = append(patterns, o)
		}
	}
	return patterns
}

// ServeHTTP implements http.Handler for GET /ws/agent?user_id=.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.NormalizeUserID(r.URL.Query().Get("user_id"))
	if !ok {
		http.Error(w, `{"error": "user_id is required"}`, http.StatusBadRequest)
		return
	}
	sessionID := identity.SessionIDFromContext(r.Context())

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Warn("Failed to accept WebSocket", "error", err, "user_id", userID, "ip", identity.IPFromRequest(r))
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()
	if h.readLimit > 0 {
		ws.SetReadLimit(h.readLimit)
	}

	h.conns.Register(userID, sessionID, ws)
	defer h.conns.Unregister(userID, sessionID, ws)

	h.readLoop(r.Context(), ws, userID, sessionID)
}

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, userID, sessionID string) {
	for {
		var msg wsMessage
		if err := wsjson.Read(ctx, ws, &msg); err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				slog.Debug("WebSocket closed", "user_id", userID, "session_id", sessionID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}

		reply := h.dispatch(ctx, msg, userID, sessionID)
		if err := wsjson.Write(ctx, ws, reply); err != nil {
			slog.Debug("WebSocket write error", "error", err, "user_id", userID)
			return
		}
	}
}

func (h *WebSocketHandler) dispatch(ctx context.Context, msg wsMessage, userID, sessionID string) wsReply {
	switch msg.Type {
	case "ping":
		return wsReply{Type: "pong"}
	case "silence":
		return wsReply{Type: "silence", Response: h.service.Silence()}
	case "turn":
		if h.limiter != nil && !h.limiter.Allow(userID) {
			return wsReply{Type: "error", Error: "rate limit exceeded"}
		}
		resp, err := h.service.Turn(ctx, TurnRequest{
			UserID:    userID,
			Message:   msg.Message,
			SessionID: sessionID,
		})
		if err != nil {
			_, message := errorStatus(err)
			return wsReply{Type: "error", Error: message}
		}
		return wsReply{Type: "turn", Turn: resp}
	default:
		return wsReply{Type: "error", Error: "unknown message type"}
	}
}
