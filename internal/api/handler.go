// Package api implements the HTTP surface of the ingest service.
//
// Routes:
//
//	GET  /health                           → liveness probe
//	GET  /ingest?force=&limit=             → trigger an ingestion run, return the summary
//	GET  /opportunities                    → list persisted opportunities, newest first
//	POST /opportunities/{id}/feedback      → record a feedback action
//	GET  /settings/{key}                   → read a settings value
//	POST /settings/{key}                   → write a settings value
//	GET  /auth/gmail/url                   → OAuth consent URL for mailbox access
//	GET  /auth/gmail/callback?code=        → exchange the authorization code
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"oppradar/ingest-service/internal/feedback"
	"oppradar/ingest-service/internal/ingest"
	"oppradar/ingest-service/internal/model"
	"oppradar/ingest-service/internal/store"
)

// Runner triggers ingestion runs.
type Runner interface {
	Run(ctx context.Context, opts ingest.Options) (ingest.Summary, error)
}

// Repository is the slice of the persistence layer the handlers need.
type Repository interface {
	List(ctx context.Context) ([]model.Opportunity, error)
	GetSetting(ctx context.Context, key string) (json.RawMessage, error)
	SetSetting(ctx context.Context, key string, value json.RawMessage) error
}

// Feedback records user reactions.
type Feedback interface {
	Record(ctx context.Context, oppID int64, action, notes string) (string, error)
}

// Authorizer handles the Gmail OAuth handshake.
type Authorizer interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) error
}

// Handler holds shared dependencies.
type Handler struct {
	runner Runner
	repo   Repository
	fb     Feedback
	auth   Authorizer
	log    *zap.Logger
}

// NewHandler returns a configured Handler.
func NewHandler(runner Runner, repo Repository, fb Feedback, auth Authorizer, log *zap.Logger) *Handler {
	return &Handler{runner: runner, repo: repo, fb: fb, auth: auth, log: log}
}

// RegisterRoutes mounts all ingest-service routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/ingest", h.handleIngest)
	mux.HandleFunc("/opportunities", h.handleOpportunities)
	mux.HandleFunc("/opportunities/", h.handleOpportunityAction)
	mux.HandleFunc("/settings/", h.handleSettings)
	mux.HandleFunc("/auth/gmail/url", h.handleAuthURL)
	mux.HandleFunc("/auth/gmail/callback", h.handleAuthCallback)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonOK(w, map[string]string{"status": "ok"})
}

// handleIngest handles GET /ingest?force=&limit=
func (h *Handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	opts := ingest.Options{Force: r.URL.Query().Get("force") == "true"}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		opts.Limit = limit
	}

	sum, err := h.runner.Run(r.Context(), opts)
	if err != nil {
		h.log.Error("ingestion run failed", zap.Error(err))
		jsonError(w, "ingestion failed", http.StatusInternalServerError)
		return
	}
	jsonOK(w, sum)
}

// handleOpportunities handles GET /opportunities
func (h *Handler) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	opps, err := h.repo.List(r.Context())
	if err != nil {
		h.log.Error("list opportunities failed", zap.Error(err))
		jsonError(w, "database error", http.StatusInternalServerError)
		return
	}
	jsonOK(w, opps)
}

// handleOpportunityAction handles POST /opportunities/{id}/feedback
func (h *Handler) handleOpportunityAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[2] != "feedback" {
		jsonError(w, "invalid path", http.StatusNotFound)
		return
	}
	oppID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		jsonError(w, "invalid opportunity id", http.StatusBadRequest)
		return
	}

	var body struct {
		Action string `json:"action"`
		Notes  string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Action == "" {
		jsonError(w, "body must contain action", http.StatusBadRequest)
		return
	}

	status, err := h.fb.Record(r.Context(), oppID, body.Action, body.Notes)
	if err != nil {
		var verr *feedback.ValidationError
		switch {
		case errors.As(err, &verr):
			jsonError(w, verr.Msg, http.StatusBadRequest)
		case errors.Is(err, store.ErrNotFound):
			jsonError(w, "opportunity not found", http.StatusNotFound)
		default:
			h.log.Error("record feedback failed", zap.Int64("id", oppID), zap.Error(err))
			jsonError(w, "database error", http.StatusInternalServerError)
		}
		return
	}
	jsonOK(w, map[string]string{"action": body.Action, "status": status})
}

// handleSettings handles GET|POST /settings/{key}
func (h *Handler) handleSettings(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/settings/")
	if key == "" || strings.Contains(key, "/") {
		jsonError(w, "invalid settings key", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		value, err := h.repo.GetSetting(r.Context(), key)
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "setting not found", http.StatusNotFound)
			return
		}
		if err != nil {
			h.log.Error("get setting failed", zap.String("key", key), zap.Error(err))
			jsonError(w, "database error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(value)

	case http.MethodPost:
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil || !json.Valid(body) {
			jsonError(w, "body must be valid JSON", http.StatusBadRequest)
			return
		}
		if err := h.repo.SetSetting(r.Context(), key, body); err != nil {
			h.log.Error("set setting failed", zap.String("key", key), zap.Error(err))
			jsonError(w, "database error", http.StatusInternalServerError)
			return
		}
		jsonOK(w, map[string]string{"key": key, "saved": "true"})

	default:
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleAuthURL handles GET /auth/gmail/url
func (h *Handler) handleAuthURL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	jsonOK(w, map[string]string{"url": h.auth.AuthURL("oppradar")})
}

// handleAuthCallback handles GET /auth/gmail/callback?code=
func (h *Handler) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		jsonError(w, "missing code parameter", http.StatusBadRequest)
		return
	}
	if err := h.auth.Exchange(r.Context(), code); err != nil {
		h.log.Error("oauth exchange failed", zap.Error(err))
		jsonError(w, "authorization exchange failed", http.StatusBadGateway)
		return
	}
	jsonOK(w, map[string]string{"status": "authorized"})
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
