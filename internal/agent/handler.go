package agent

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ashureev/edem-agent/internal/api"
	"github.com/ashureev/edem-agent/internal/domain"
	"github.com/ashureev/edem-agent/internal/identity"
	"github.com/ashureev/edem-agent/internal/store"
)

// defaultMaxRequestBodySize is the default maximum allowed request body size (64KiB).
const defaultMaxRequestBodySize = 64 << 10

// HandlerConfig tunes the HTTP handler.
type HandlerConfig struct {
	RateLimit          int
	RateWindow         time.Duration
	MaxRequestBodySize int64
	AllowedOrigins     []string
}

// Handler serves the agent HTTP and WebSocket API.
type Handler struct {
	service     *Service
	conns       *ConnManager
	rateLimiter *RateLimiter
	ws          *WebSocketHandler
	maxBody     int64
}

// NewHandler creates the agent handler. Close releases its background
// resources.
func NewHandler(service *Service, cfg HandlerConfig) *Handler {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 20
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Minute
	}
	if cfg.MaxRequestBodySize <= 0 {
		cfg.MaxRequestBodySize = defaultMaxRequestBodySize
	}

	conns := NewConnManager()
	limiter := NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
	return &Handler{
		service:     service,
		conns:       conns,
		rateLimiter: limiter,
		ws:          NewWebSocketHandler(service, conns, limiter, cfg.AllowedOrigins, cfg.MaxRequestBodySize),
		maxBody:     cfg.MaxRequestBodySize,
	}
}

// RegisterRoutes registers agent routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/agent", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/turn", h.HandleTurn)
		r.Post("/archetype", h.HandleArchetype)
		r.Get("/{userID}", h.HandleSnapshot)
		r.Put("/{userID}/myth", h.HandleSetMyth)
		r.Delete("/{userID}", h.HandleReset)
	})
	// Outside /api/agent so that every valid user ID, "silence" included,
	// reaches the snapshot route.
	r.Get("/api/silence", h.HandleSilence)
	r.Get("/ws/agent", h.ws.ServeHTTP)
}

// Close releases handler resources.
func (h *Handler) Close() {
	h.rateLimiter.Close()
}

// errorStatus maps service errors to an HTTP status and a client message.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "agent not found"
	case errors.Is(err, store.ErrCorruptSnapshot):
		return http.StatusInternalServerError, "stored agent state is corrupt"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := errorStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Agent request failed",
			"error", err,
			"path", r.URL.Path,
			"request_id", chiMiddleware.GetReqID(r.Context()))
	}
	api.Error(w, status, message)
}

// decode reads a JSON body. It reports false after writing the error reply.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// HandleTurn handles POST /api/agent/turn.
func (h *Handler) HandleTurn(w http.ResponseWriter, r *http.Request) {
	var req TurnRequest
	if !h.decode(w, r, &req) {
		return
	}

	if userID, ok := identity.NormalizeUserID(req.UserID); ok && !h.rateLimiter.Allow(userID) {
		api.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	req.SessionID = identity.SessionIDFromContext(r.Context())
	resp, err := h.service.Turn(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, resp)
}

// HandleArchetype handles POST /api/agent/archetype.
func (h *Handler) HandleArchetype(w http.ResponseWriter, r *http.Request) {
	var req ArchetypeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.SetArchetype(r.Context(), req); err != nil {
		h.writeError(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleSilence handles GET /api/silence.
func (h *Handler) HandleSilence(w http.ResponseWriter, _ *http.Request) {
	api.JSON(w, http.StatusOK, map[string]string{"response": h.service.Silence()})
}

// HandleSnapshot handles GET /api/agent/{userID}.
func (h *Handler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, snap)
}

// HandleSetMyth handles PUT /api/agent/{userID}/myth.
func (h *Handler) HandleSetMyth(w http.ResponseWriter, r *http.Request) {
	var patch domain.MythPatch
	if !h.decode(w, r, &patch) {
		return
	}
	myth, err := h.service.SetMyth(r.Context(), chi.URLParam(r, "userID"), patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	api.JSON(w, http.StatusOK, myth)
}

// HandleReset handles DELETE /api/agent/{userID}. Open WebSocket
// connections of the user are closed.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := h.service.Reset(r.Context(), userID); err != nil {
		h.writeError(w, r, err)
		return
	}
	if normalized, ok := identity.NormalizeUserID(userID); ok {
		h.conns.CloseUser(normalized, "agent reset")
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleList handles GET /api/agent?limit=N.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			api.Error(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	agents, err := h.service.List(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if agents == nil {
		agents = []domain.AgentSummary{}
	}
	api.JSON(w, http.StatusOK, map[string]any{"agents": agents})
}
