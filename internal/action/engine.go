// Package action implements the two-phase mutation queue: proposals are
// validated and parked as pending, then executed on confirmation.
package action

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/harunnryd/trendsniffer/internal/briefing"
	"github.com/harunnryd/trendsniffer/internal/errors"
	"github.com/harunnryd/trendsniffer/internal/prefs"
)

// Engine owns the action lifecycle. All state lives in the preference
// store; the engine is stateless between calls.
type Engine struct {
	store *prefs.Store
	gen   *briefing.Generator
}

func NewEngine(store *prefs.Store, gen *briefing.Generator) *Engine {
	return &Engine{store: store, gen: gen}
}

// AddSourcePayload creates a new RSS source.
type AddSourcePayload struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Category string `json:"category"`
}

// UpdateSourcePayload patches an existing source; nil fields are left
// untouched.
type UpdateSourcePayload struct {
	ID       string  `json:"id"`
	Name     *string `json:"name,omitempty"`
	URL      *string `json:"url,omitempty"`
	Category *string `json:"category,omitempty"`
	Enabled  *bool   `json:"enabled,omitempty"`
}

type RemoveSourcePayload struct {
	ID string `json:"id"`
}

type ApplyPresetPayload struct {
	Pack string `json:"pack"`
}

// UpdateBriefingPayload patches briefing settings; nil fields are left
// untouched.
type UpdateBriefingPayload struct {
	Time                                *string `json:"time,omitempty"`
	Timezone                            *string `json:"timezone,omitempty"`
	InApp                               *bool   `json:"inApp,omitempty"`
	Telegram                            *bool   `json:"telegram,omitempty"`
	AskBeforeGenerateWhenTelegramPaused *bool   `json:"askBeforeGenerateWhenTelegramPaused,omitempty"`
	DefaultContinueWhenPaused           *bool   `json:"defaultContinueWhenPaused,omitempty"`
}

type SetPausePayload struct {
	Paused bool `json:"paused"`
}

type GenerateBriefingPayload struct {
	Mode               string `json:"mode,omitempty"`
	TemplateID         string `json:"templateId,omitempty"`
	ContinueWhenPaused *bool  `json:"continueWhenPaused,omitempty"`
}

// riskFor assigns risk by how hard an action is to undo.
func riskFor(t prefs.ActionType) prefs.ActionRisk {
	switch t {
	case prefs.ActionAddRSSSource, prefs.ActionUpdateRSSSource, prefs.ActionSetTelegramPause:
		return prefs.RiskLow
	default:
		return prefs.RiskMedium
	}
}

// Propose validates a payload and parks a pending action at the head of
// the queue. Validation failures never enqueue anything.
func (e *Engine) Propose(actionType prefs.ActionType, summary string, payload json.RawMessage, origin string) (prefs.Action, error) {
	if !prefs.KnownActionType(actionType) {
		return prefs.Action{}, errors.Validationf("unknown action type %q", actionType)
	}
	if err := e.validate(actionType, payload); err != nil {
		return prefs.Action{}, err
	}
	if origin != prefs.OriginCopilot {
		origin = prefs.OriginManual
	}

	now := time.Now().UTC()
	act := prefs.Action{
		ID:        prefs.NewID("action"),
		Type:      actionType,
		Summary:   summary,
		Risk:      riskFor(actionType),
		Status:    prefs.ActionPending,
		Payload:   payload,
		Origin:    origin,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := e.store.Update(func(d *prefs.Document) error {
		d.Copilot.PendingActions = append([]prefs.Action{act}, d.Copilot.PendingActions...)
		return nil
	})
	if err != nil {
		return prefs.Action{}, err
	}
	slog.Info("Action proposed", "id", act.ID, "type", act.Type, "origin", act.Origin)
	return act, nil
}

func (e *Engine) validate(actionType prefs.ActionType, payload json.RawMessage) error {
	doc := e.store.Snapshot()
	switch actionType {
	case prefs.ActionAddRSSSource:
		var p AddSourcePayload
		if err := decodeStrict(payload, &p); err != nil {
			return err
		}
		if !prefs.ValidFeedURL(p.URL) {
			return errors.Validationf("invalid feed url %q", p.URL)
		}
	case prefs.ActionUpdateRSSSource:
		var p UpdateSourcePayload
		if err := decodeStrict(payload, &p); err != nil {
			return err
		}
		if doc.SourceByID(p.ID) == nil {
			return errors.NotFound(fmt.Sprintf("rss source %q", p.ID))
		}
		if p.URL != nil && !prefs.ValidFeedURL(*p.URL) {
			return errors.Validationf("invalid feed url %q", *p.URL)
		}
	case prefs.ActionRemoveRSSSource:
		var p RemoveSourcePayload
		if err := decodeStrict(payload, &p); err != nil {
			return err
		}
		if doc.SourceByID(p.ID) == nil {
			return errors.NotFound(fmt.Sprintf("rss source %q", p.ID))
		}
	case prefs.ActionApplyPresetPack:
		var p ApplyPresetPayload
		if err := decodeStrict(payload, &p); err != nil {
			return err
		}
		if _, ok := prefs.PresetPackByName(p.Pack); !ok {
			return errors.NotFound(fmt.Sprintf("preset pack %q", p.Pack))
		}
	case prefs.ActionUpdateBriefingSetting:
		var p UpdateBriefingPayload
		if err := decodeStrict(payload, &p); err != nil {
			return err
		}
		if p.Time != nil && !prefs.ValidScheduleTime(*p.Time) {
			return errors.Validationf("invalid briefing time %q", *p.Time)
		}
		if p.Timezone != nil && !prefs.ValidTimezone(*p.Timezone) {
			return errors.Validationf("invalid timezone %q", *p.Timezone)
		}
	case prefs.ActionSetTelegramPause:
		var p SetPausePayload
		if err := decodeStrict(payload, &p); err != nil {
			return err
		}
	case prefs.ActionGenerateBriefing:
		var p GenerateBriefingPayload
		if err := decodeStrict(payload, &p); err != nil {
			return err
		}
	}
	return nil
}

func decodeStrict(payload json.RawMessage, out any) error {
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return errors.Validationf("malformed action payload: %v", err)
	}
	return nil
}

// Confirm executes a pending action. The transition to confirmed (or
// failed, when execution errors) happens in the same store update as the
// mutation itself.
func (e *Engine) Confirm(ctx context.Context, id string) (prefs.Action, error) {
	if err := e.checkPending(id); err != nil {
		return prefs.Action{}, err
	}

	var (
		updated  prefs.Action
		deferred func() // runs after the status flip, for generate_briefing
	)
	_, err := e.store.Update(func(d *prefs.Document) error {
		act := findAction(d, id)
		if act == nil {
			return errors.NotFound(fmt.Sprintf("action %q", id))
		}
		if act.Status != prefs.ActionPending {
			return errors.StateConflict(fmt.Sprintf("action %q is already %s", id, act.Status))
		}

		result, later, execErr := e.execute(ctx, d, *act)
		act.UpdatedAt = time.Now().UTC()
		if execErr != nil {
			act.Status = prefs.ActionFailed
			act.Error = execErr.Error()
		} else {
			act.Status = prefs.ActionConfirmed
			act.Result = result
			deferred = later
		}
		updated = *act
		return nil
	})
	if err != nil {
		return prefs.Action{}, err
	}
	if deferred != nil {
		deferred()
		// The deferred step may have flipped the status again.
		for _, a := range e.store.Snapshot().Copilot.PendingActions {
			if a.ID == id {
				updated = a
				break
			}
		}
	}
	slog.Info("Action resolved", "id", id, "status", updated.Status)
	return updated, nil
}

// Reject marks a pending action rejected.
func (e *Engine) Reject(id string) (prefs.Action, error) {
	if err := e.checkPending(id); err != nil {
		return prefs.Action{}, err
	}
	var updated prefs.Action
	_, err := e.store.Update(func(d *prefs.Document) error {
		act := findAction(d, id)
		if act == nil {
			return errors.NotFound(fmt.Sprintf("action %q", id))
		}
		if act.Status != prefs.ActionPending {
			return errors.StateConflict(fmt.Sprintf("action %q is already %s", id, act.Status))
		}
		act.Status = prefs.ActionRejected
		act.UpdatedAt = time.Now().UTC()
		updated = *act
		return nil
	})
	if err != nil {
		return prefs.Action{}, err
	}
	return updated, nil
}

// checkPending front-runs the common failure modes so callers get a
// taxonomy error without paying for a store update.
func (e *Engine) checkPending(id string) error {
	doc := e.store.Snapshot()
	for _, a := range doc.Copilot.PendingActions {
		if a.ID == id {
			if a.Status != prefs.ActionPending {
				return errors.StateConflict(fmt.Sprintf("action %q is already %s", id, a.Status))
			}
			return nil
		}
	}
	return errors.NotFound(fmt.Sprintf("action %q", id))
}

func findAction(d *prefs.Document, id string) *prefs.Action {
	for i := range d.Copilot.PendingActions {
		if d.Copilot.PendingActions[i].ID == id {
			return &d.Copilot.PendingActions[i]
		}
	}
	return nil
}
