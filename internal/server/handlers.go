package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/harunnryd/trendsniffer/internal/briefing"
	"github.com/harunnryd/trendsniffer/internal/errors"
	"github.com/harunnryd/trendsniffer/internal/feed"
	"github.com/harunnryd/trendsniffer/internal/prefs"
	"github.com/harunnryd/trendsniffer/internal/reconcile"
	"github.com/harunnryd/trendsniffer/internal/textutil"
)

func pendingSummary(doc prefs.Document, snap feed.Snapshot) map[string]int {
	res := reconcile.PendingNew(doc, snap)
	return map[string]int{
		"signals":        len(res.Signals),
		"searches":       len(res.Searches),
		"videos":         len(res.Videos),
		"total":          res.Total,
		"rawUnseenTotal": res.RawUnseenTotal,
	}
}

type digestRequest struct {
	Mode       string `json:"mode"`
	TemplateID string `json:"templateId"`
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req digestRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	digest, snap := s.gen.Preview(r.Context(), textutil.StripTags(req.TemplateID), req.Mode)
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"mode":        briefing.NormalizeMode(req.Mode),
		"counts":      digest.Counts,
		"generatedAt": snap.FetchedAt.Format(time.RFC3339),
		"text":        digest.Text,
	})
}

func (s *Server) handleDigest(w http.ResponseWriter, r *http.Request) {
	var req digestRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	outcome, err := s.gen.Generate(r.Context(), briefing.Options{
		Mode:           req.Mode,
		TemplateID:     textutil.StripTags(req.TemplateID),
		Origin:         "api",
		SuppressPrompt: true,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"sent":        outcome.Status == briefing.StatusGenerated && outcome.Record != nil && outcome.Record.SentToTelegram,
		"status":      outcome.Status,
		"reason":      outcome.Reason,
		"counts":      outcome.Counts,
		"generatedAt": outcome.GeneratedAt.Format(time.RFC3339),
	})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	message := textutil.StripTags(req.Message)
	if message == "" {
		writeError(w, errors.Validation("message cannot be empty"))
		return
	}
	if err := s.gen.Deliver(r.Context(), message); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"sources": s.store.Snapshot().RSSSources,
		"presets": presetNames(),
	})
}

func presetNames() []string {
	packs := prefs.PresetPacks()
	names := make([]string, len(packs))
	for i, p := range packs {
		names[i] = p.Name
	}
	return names
}

// mutate proposes and immediately confirms: an explicit REST call is its
// own confirmation.
func (s *Server) mutate(r *http.Request, actionType prefs.ActionType, summary string, payload any) (prefs.Action, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return prefs.Action{}, errors.Validationf("encode payload: %v", err)
	}
	act, err := s.engine.Propose(actionType, summary, data, prefs.OriginManual)
	if err != nil {
		return prefs.Action{}, err
	}
	resolved, err := s.engine.Confirm(r.Context(), act.ID)
	if err != nil {
		return prefs.Action{}, err
	}
	if resolved.Status == prefs.ActionFailed {
		return resolved, errors.StateConflict(resolved.Error)
	}
	return resolved, nil
}

func (s *Server) handleAddSource(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		URL      string `json:"url"`
		Category string `json:"category"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	act, err := s.mutate(r, prefs.ActionAddRSSSource, "Add RSS source "+req.URL, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "result": act.Result})
}

func (s *Server) handleUpdateSource(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req struct {
		Name     *string `json:"name"`
		URL      *string `json:"url"`
		Category *string `json:"category"`
		Enabled  *bool   `json:"enabled"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	payload := map[string]any{"id": id}
	if req.Name != nil {
		payload["name"] = *req.Name
	}
	if req.URL != nil {
		payload["url"] = *req.URL
	}
	if req.Category != nil {
		payload["category"] = *req.Category
	}
	if req.Enabled != nil {
		payload["enabled"] = *req.Enabled
	}
	act, err := s.mutate(r, prefs.ActionUpdateRSSSource, "Update RSS source "+id, payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "result": act.Result})
}

func (s *Server) handleRemoveSource(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	act, err := s.mutate(r, prefs.ActionRemoveRSSSource, "Remove RSS source "+id,
		map[string]string{"id": id})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "result": act.Result})
}

func (s *Server) handleApplyPreset(w http.ResponseWriter, r *http.Request) {
	pack := r.PathValue("pack")
	act, err := s.mutate(r, prefs.ActionApplyPresetPack, "Apply preset pack "+pack,
		map[string]string{"pack": pack})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "result": act.Result})
}

func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	doc := s.store.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"actions":             doc.Copilot.PendingActions,
		"requireConfirmation": doc.Copilot.RequireConfirmation,
	})
}

func (s *Server) handleProposeAction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type    prefs.ActionType `json:"type"`
		Summary string           `json:"summary"`
		Payload json.RawMessage  `json:"payload"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	act, err := s.engine.Propose(req.Type, req.Summary, req.Payload, prefs.OriginManual)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "action": act})
}

func (s *Server) handleConfirmAction(w http.ResponseWriter, r *http.Request) {
	act, err := s.engine.Confirm(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "action": act})
}

func (s *Server) handleRejectAction(w http.ResponseWriter, r *http.Request) {
	act, err := s.engine.Reject(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "action": act})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	reply, err := s.copilot.Chat(r.Context(), req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "reply": reply})
}

func (s *Server) handleGetBriefing(w http.ResponseWriter, r *http.Request) {
	b := s.store.Snapshot().Briefing
	writeJSON(w, http.StatusOK, map[string]any{
		"schedule":        b.Schedule,
		"delivery":        b.Delivery,
		"behavior":        b.Behavior,
		"lastGeneratedAt": b.LastGeneratedAt,
	})
}

func (s *Server) handlePatchBriefing(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Time                                *string `json:"time"`
		Timezone                            *string `json:"timezone"`
		InApp                               *bool   `json:"inApp"`
		Telegram                            *bool   `json:"telegram"`
		TelegramPaused                      *bool   `json:"telegramPaused"`
		AskBeforeGenerateWhenTelegramPaused *bool   `json:"askBeforeGenerateWhenTelegramPaused"`
		DefaultContinueWhenPaused           *bool   `json:"defaultContinueWhenPaused"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Time != nil && !prefs.ValidScheduleTime(*req.Time) {
		writeError(w, errors.Validationf("invalid briefing time %q", *req.Time))
		return
	}
	if req.Timezone != nil && !prefs.ValidTimezone(*req.Timezone) {
		writeError(w, errors.Validationf("invalid timezone %q", *req.Timezone))
		return
	}
	doc, err := s.store.Update(func(d *prefs.Document) error {
		if req.Time != nil {
			d.Briefing.Schedule.Time = *req.Time
		}
		if req.Timezone != nil {
			d.Briefing.Schedule.Timezone = *req.Timezone
		}
		if req.InApp != nil {
			d.Briefing.Delivery.InApp = *req.InApp
		}
		if req.Telegram != nil {
			d.Briefing.Delivery.Telegram = *req.Telegram
		}
		if req.TelegramPaused != nil {
			d.Briefing.Delivery.TelegramPaused = *req.TelegramPaused
		}
		if req.AskBeforeGenerateWhenTelegramPaused != nil {
			d.Briefing.Behavior.AskBeforeGenerateWhenTelegramPaused = *req.AskBeforeGenerateWhenTelegramPaused
		}
		if req.DefaultContinueWhenPaused != nil {
			d.Briefing.Behavior.DefaultContinueWhenPaused = *req.DefaultContinueWhenPaused
		}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"schedule": doc.Briefing.Schedule,
		"delivery": doc.Briefing.Delivery,
		"behavior": doc.Briefing.Behavior,
	})
}

func (s *Server) handleGenerateBriefing(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode               string `json:"mode"`
		TemplateID         string `json:"templateId"`
		ContinueWhenPaused *bool  `json:"continueWhenPaused"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	outcome, err := s.gen.Generate(r.Context(), briefing.Options{
		Mode:               req.Mode,
		TemplateID:         req.TemplateID,
		Origin:             "api",
		ContinueWhenPaused: req.ContinueWhenPaused,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "outcome": outcome})
}

func (s *Server) handleBriefingHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"history": s.store.Snapshot().Briefing.History,
	})
}
