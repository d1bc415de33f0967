// Package server exposes the HTTP API. Handlers are thin: decode, call
// into the domain packages, map the error taxonomy onto status codes.
package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/harunnryd/trendsniffer/internal/action"
	"github.com/harunnryd/trendsniffer/internal/briefing"
	"github.com/harunnryd/trendsniffer/internal/copilot"
	"github.com/harunnryd/trendsniffer/internal/delivery"
	"github.com/harunnryd/trendsniffer/internal/errors"
	"github.com/harunnryd/trendsniffer/internal/feed"
	"github.com/harunnryd/trendsniffer/internal/prefs"
)

// Server wires the API surface to the domain.
type Server struct {
	store      *prefs.Store
	fetcher    briefing.Fetcher
	gen        *briefing.Generator
	engine     *action.Engine
	copilot    *copilot.Copilot
	deliverers []delivery.Deliverer
}

func New(store *prefs.Store, fetcher briefing.Fetcher, gen *briefing.Generator, engine *action.Engine, cp *copilot.Copilot, deliverers ...delivery.Deliverer) *Server {
	return &Server{
		store:      store,
		fetcher:    fetcher,
		gen:        gen,
		engine:     engine,
		copilot:    cp,
		deliverers: deliverers,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/meta", s.handleMeta)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)

	mux.HandleFunc("GET /api/preferences", s.handleGetPreferences)
	mux.HandleFunc("PUT /api/preferences", s.handlePutPreferences)

	mux.HandleFunc("POST /api/notify/telegram/preview", s.handlePreview)
	mux.HandleFunc("POST /api/notify/telegram/digest", s.handleDigest)
	mux.HandleFunc("POST /api/notify/telegram/message", s.handleMessage)
	mux.HandleFunc("POST /api/alerts/acknowledge", s.handleAcknowledge)

	mux.HandleFunc("GET /api/rss-sources", s.handleListSources)
	mux.HandleFunc("POST /api/rss-sources", s.handleAddSource)
	mux.HandleFunc("PUT /api/rss-sources/{id}", s.handleUpdateSource)
	mux.HandleFunc("DELETE /api/rss-sources/{id}", s.handleRemoveSource)
	mux.HandleFunc("POST /api/rss-sources/presets/{pack}", s.handleApplyPreset)

	mux.HandleFunc("GET /api/copilot/actions", s.handleListActions)
	mux.HandleFunc("POST /api/copilot/actions", s.handleProposeAction)
	mux.HandleFunc("POST /api/copilot/actions/{id}/confirm", s.handleConfirmAction)
	mux.HandleFunc("POST /api/copilot/actions/{id}/reject", s.handleRejectAction)
	mux.HandleFunc("POST /api/copilot/chat", s.handleChat)

	mux.HandleFunc("GET /api/briefing/settings", s.handleGetBriefing)
	mux.HandleFunc("PATCH /api/briefing/settings", s.handlePatchBriefing)
	mux.HandleFunc("POST /api/briefing/generate", s.handleGenerateBriefing)
	mux.HandleFunc("GET /api/briefing/history", s.handleBriefingHistory)

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	doc := s.store.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"app":                 "Trend Sniffer",
		"now":                 time.Now().UTC().Format(time.RFC3339),
		"activeTemplateId":    doc.ActiveTemplateID,
		"telegramConfigured":  s.anyDelivererConfigured(),
		"requireConfirmation": doc.Copilot.RequireConfirmation,
	})
}

func (s *Server) anyDelivererConfigured() bool {
	for _, d := range s.deliverers {
		if d.Configured() {
			return true
		}
	}
	return false
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, publicPreferences(s.store.Snapshot()))
}

func (s *Server) handlePutPreferences(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, err)
		return
	}
	doc, err := s.store.Replace(body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"preferences": publicPreferences(doc),
	})
}

// publicPreferences is the user-editable slice of the document; seen
// state, actions and history stay server-side.
func publicPreferences(doc prefs.Document) map[string]any {
	return map[string]any{
		"watchlist":        doc.Watchlist,
		"templates":        doc.Templates,
		"activeTemplateId": doc.ActiveTemplateID,
		"settings":         doc.Settings,
		"rssSources":       doc.RSSSources,
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	doc := s.store.Snapshot()
	snap := s.fetcher.Fetch(r.Context(), doc)
	dash := buildDashboard(doc, snap, s.anyDelivererConfigured())
	writeJSON(w, http.StatusOK, dash)
}

func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	if err := s.gen.AcknowledgeAll(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": "Current feed marked as seen.",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.IsCategory(err, errors.ErrValidation):
		status = http.StatusBadRequest
	case errors.IsCategory(err, errors.ErrNotFound):
		status = http.StatusNotFound
	case errors.IsCategory(err, errors.ErrStateConflict):
		status = http.StatusConflict
	case errors.IsCategory(err, errors.ErrCollaborator):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "category", errors.Category(err), "error", err)
	}
	writeJSON(w, status, map[string]any{
		"ok":       false,
		"error":    err.Error(),
		"category": errors.Category(err),
	})
}

const maxBodySize = 1 << 20

func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return nil, errors.Validationf("read request body: %v", err)
	}
	if len(body) > maxBodySize {
		return nil, errors.Validation("request body too large")
	}
	if len(body) == 0 {
		body = []byte("{}")
	}
	return body, nil
}

func decodeBody(r *http.Request, out any) error {
	body, err := readBody(r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Validationf("malformed request body: %v", err)
	}
	return nil
}

// buildDashboard assembles the aggregate view the UI polls.
func buildDashboard(doc prefs.Document, snap feed.Snapshot, deliveryConfigured bool) map[string]any {
	pending := pendingSummary(doc, snap)
	return map[string]any{
		"generatedAt": snap.FetchedAt.Format(time.RFC3339),
		"references": map[string]string{
			"signals":    "Configured RSS sources",
			"searches":   "Google Trends Daily Search Trends (US)",
			"videos":     "YouTube channel RSS feeds",
			"challenges": snap.Challenges.Source,
		},
		"telegramConfigured": deliveryConfigured,
		"watchlistSummary": map[string]any{
			"topics":   doc.Watchlist.Topics,
			"channels": doc.Watchlist.Channels,
		},
		"pendingNew": pending,
		"creative": map[string]any{
			"sourceMix": snap.SourceMix,
			"sparkLine": feed.SparkLine(snap.Challenges),
		},
		"settings": map[string]any{
			"cardsPerPage": doc.Settings.CardsPerPage,
		},
		"signals":     snap.Signals,
		"searches":    snap.Searches,
		"videos":      snap.Videos,
		"challenges":  snap.Challenges,
		"preferences": publicPreferences(doc),
		"briefing": map[string]any{
			"schedule":        doc.Briefing.Schedule,
			"delivery":        doc.Briefing.Delivery,
			"lastGeneratedAt": doc.Briefing.LastGeneratedAt,
		},
	}
}
