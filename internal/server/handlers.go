package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/oapi-codegen/runtime"

	"github.com/shahar-caura/relay/internal/agent"
	"github.com/shahar-caura/relay/internal/intent"
	"github.com/shahar-caura/relay/internal/store"
)

// History is the read side of the classification store.
type History interface {
	List(ctx context.Context, limit int) ([]store.Record, error)
	Contacts(ctx context.Context) ([]store.Contact, error)
}

// Handlers serves the relay HTTP API.
type Handlers struct {
	Agent     agent.Agent
	History   History // nil disables /api/history and /api/contacts
	Events    *Hub    // nil disables /api/events
	Version   string
	Model     string
	StartTime time.Time
	Logger    *slog.Logger
}

type classifyRequest struct {
	Input string `json:"input"`
}

type healthBody struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Model         string `json:"model"`
	UptimeSeconds int    `json:"uptime_seconds"`
}

// NewHandler returns the API mux with every route validated against doc.
func NewHandler(h *Handlers, doc *openapi3.T) http.Handler {
	if h.Logger == nil {
		h.Logger = slog.New(slog.DiscardHandler)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/classify", validated(doc, "/api/classify", h.Classify))
	mux.HandleFunc("GET /api/health", validated(doc, "/api/health", h.GetHealth))
	mux.HandleFunc("GET /api/history", validated(doc, "/api/history", h.ListHistory))
	mux.HandleFunc("GET /api/contacts", validated(doc, "/api/contacts", h.ListContacts))
	if h.Events != nil {
		mux.Handle("GET /api/events", h.Events)
	}
	return mux
}

func (h *Handlers) Classify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, intent.Failure{Error: "invalid request", Kind: "invalid_request", Detail: err.Error()})
		return
	}

	res, err := h.Agent.Process(r.Context(), req.Input)
	if err != nil {
		status := StatusFor(err)
		h.Logger.Warn("classify request failed", "status", status, "kind", intent.KindOf(err), "error", err)
		writeJSON(w, status, intent.Describe(err))
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) GetHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthBody{
		Status:        "ok",
		Version:       h.Version,
		Model:         h.Model,
		UptimeSeconds: int(time.Since(h.StartTime).Seconds()),
	})
}

func (h *Handlers) ListHistory(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		writeJSON(w, http.StatusNotFound, intent.Failure{Error: "history is not enabled", Kind: "not_found"})
		return
	}

	var limit *int
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		writeJSON(w, http.StatusBadRequest, intent.Failure{Error: "invalid request", Kind: "invalid_request", Detail: err.Error()})
		return
	}
	n := store.DefaultLimit
	if limit != nil {
		n = *limit
	}

	records, err := h.History.List(r.Context(), n)
	if err != nil {
		h.Logger.Error("listing history", "error", err)
		writeJSON(w, http.StatusInternalServerError, intent.Failure{Error: "internal error", Kind: "internal"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (h *Handlers) ListContacts(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		writeJSON(w, http.StatusNotFound, intent.Failure{Error: "history is not enabled", Kind: "not_found"})
		return
	}

	contacts, err := h.History.Contacts(r.Context())
	if err != nil {
		h.Logger.Error("listing contacts", "error", err)
		writeJSON(w, http.StatusInternalServerError, intent.Failure{Error: "internal error", Kind: "internal"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"contacts": contacts})
}

// StatusFor maps a classification failure to an HTTP status: 422 when the
// model answered but could not be understood, 502 when the backend failed.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, intent.ErrUnrecognizedIntent), errors.Is(err, intent.ErrNoExtractableJSON):
		return http.StatusUnprocessableEntity
	case errors.Is(err, intent.ErrTransport), errors.Is(err, intent.ErrBackend), errors.Is(err, intent.ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
