package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/darkmine-backend/internal/domain"
	"github.com/darkmine-backend/internal/redis"
	"github.com/darkmine-backend/internal/service"
	"github.com/darkmine-backend/internal/websocket"
)

// playerIDHeader carries the authenticated caller identity, supplied by
// the authentication layer in front of this service.
const playerIDHeader = "X-Player-ID"

// Handler provides HTTP handlers for the game API
type Handler struct {
	service *service.GameService
	cache   *redis.Cache
	hub     *websocket.Hub
	logger  *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(svc *service.GameService, cache *redis.Cache, hub *websocket.Hub, logger *slog.Logger) *Handler {
	return &Handler{
		service: svc,
		cache:   cache,
		hub:     hub,
		logger:  logger,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	// WebSocket endpoint
	r.Get("/ws", h.HandleWebSocket)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/results", h.SubmitResult)

		r.Route("/players", func(r chi.Router) {
			r.Post("/", h.RegisterPlayer)

			r.Route("/{playerID}", func(r chi.Router) {
				r.Get("/", h.GetPlayer)
				r.Put("/name", h.SetPlayerName)
				r.Get("/stats", h.GetPlayerStats)
				r.Post("/claims", h.ClaimDiamonds)
			})
		})

		r.Get("/leaderboard", h.GetLeaderboard)

		// WebSocket info endpoint
		r.Get("/ws/stats", h.GetWebSocketStats)
	})

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID, X-Player-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// writeDomainError maps domain errors onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsNotFoundError(err):
		h.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrPlayerExists):
		h.writeError(w, http.StatusConflict, err)
	case errors.Is(err, domain.ErrNameTooLong), errors.Is(err, domain.ErrInvalidRequest):
		h.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, domain.ErrInsufficientClaimable):
		h.writeError(w, http.StatusConflict, err)
	case errors.Is(err, domain.ErrIssuanceFailed):
		h.writeError(w, http.StatusBadGateway, err)
	default:
		h.logger.Error("request failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
	}
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.logger, w, r)
}

// GetWebSocketStats returns WebSocket connection statistics
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]interface{}{
		"total_connections": h.hub.GetTotalConnections(),
	})
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck returns service readiness status
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "ready"})
}

// RegisterPlayer creates a record for a new player. The identity comes
// from the authenticated caller; a missing one gets a generated id.
func (h *Handler) RegisterPlayer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID string `json:"player_id"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
			return
		}
	}
	if req.PlayerID == "" {
		req.PlayerID = r.Header.Get(playerIDHeader)
	}
	if req.PlayerID == "" {
		req.PlayerID = uuid.New().String()
	}

	rec, err := h.service.RegisterPlayer(r.Context(), req.PlayerID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    rec,
	})
}

// GetPlayer returns a player's record
func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	if playerID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	rec, err := h.service.GetPlayer(r.Context(), playerID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeSuccess(w, rec)
}

// GetPlayerStats serves the cached headline stats, falling back to the
// authoritative record on a cache miss.
func (h *Handler) GetPlayerStats(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	if playerID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	if h.cache != nil {
		stats, err := h.cache.GetPlayerStats(r.Context(), playerID)
		if err != nil {
			h.logger.Warn("player stats cache read failed", "error", err)
		} else if stats != nil {
			h.writeSuccess(w, stats)
			return
		}
	}

	rec, err := h.service.GetPlayer(r.Context(), playerID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeSuccess(w, rec)
}

// SetPlayerName updates a player's display name. Only the record owner
// may rename; the authenticated identity must match the path.
func (h *Handler) SetPlayerName(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	if playerID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}
	if caller := r.Header.Get(playerIDHeader); caller != "" && caller != playerID {
		h.writeError(w, http.StatusForbidden, errors.New("cannot rename another player"))
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	rec, err := h.service.SetPlayerName(r.Context(), playerID, req.Name)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeSuccess(w, rec)
}

// SubmitResult handles a finished match report
func (h *Handler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID string `json:"player_id"`
		domain.GameResult
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}
	if req.PlayerID == "" {
		req.PlayerID = r.Header.Get(playerIDHeader)
	}
	if req.PlayerID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	event, err := h.service.SubmitResult(r.Context(), req.PlayerID, req.GameResult)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeSuccess(w, event)
}

// ClaimDiamonds redeems earned diamonds for reward tokens. Only the
// record owner may claim.
func (h *Handler) ClaimDiamonds(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	if playerID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}
	if caller := r.Header.Get(playerIDHeader); caller != "" && caller != playerID {
		h.writeError(w, http.StatusForbidden, errors.New("cannot claim for another player"))
		return
	}

	var req struct {
		Amount uint64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	issuance, err := h.service.ClaimDiamonds(r.Context(), playerID, req.Amount)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeSuccess(w, issuance)
}

// GetLeaderboard serves the ranked table, preferring the Redis cache
// and falling back to the in-memory state.
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	if h.cache != nil {
		entries, err := h.cache.GetLeaderboard(r.Context())
		if err != nil {
			h.logger.Warn("leaderboard cache read failed", "error", err)
		} else if entries != nil {
			h.writeSuccess(w, entries)
			return
		}
	}

	h.writeSuccess(w, h.service.Leaderboard())
}
