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

// execute applies a confirmed action to the document. Most actions mutate
// d in place; generate_briefing returns a deferred closure instead because
// the generator needs the store lock this update already holds.
func (e *Engine) execute(ctx context.Context, d *prefs.Document, act prefs.Action) (json.RawMessage, func(), error) {
	switch act.Type {
	case prefs.ActionAddRSSSource:
		return e.execAddSource(d, act.Payload)
	case prefs.ActionUpdateRSSSource:
		return e.execUpdateSource(d, act.Payload)
	case prefs.ActionRemoveRSSSource:
		return e.execRemoveSource(d, act.Payload)
	case prefs.ActionApplyPresetPack:
		return e.execApplyPreset(d, act.Payload)
	case prefs.ActionUpdateBriefingSetting:
		return e.execUpdateBriefing(d, act.Payload)
	case prefs.ActionSetTelegramPause:
		return e.execSetPause(d, act.Payload)
	case prefs.ActionGenerateBriefing:
		return e.execGenerate(ctx, act)
	default:
		return nil, nil, errors.Validationf("unknown action type %q", act.Type)
	}
}

func (e *Engine) execAddSource(d *prefs.Document, payload json.RawMessage) (json.RawMessage, func(), error) {
	var p AddSourcePayload
	if err := decodeStrict(payload, &p); err != nil {
		return nil, nil, err
	}
	src, ok := prefs.SanitizeSource(prefs.RSSSource{
		Name:     p.Name,
		URL:      p.URL,
		Category: p.Category,
		Enabled:  true,
	})
	if !ok {
		return nil, nil, errors.Validationf("invalid feed url %q", p.URL)
	}
	key := prefs.CanonicalFeedURL(src.URL)
	for _, existing := range d.RSSSources {
		if prefs.CanonicalFeedURL(existing.URL) == key {
			return nil, nil, errors.StateConflict(fmt.Sprintf("source for %s already exists", existing.URL))
		}
	}
	if len(d.RSSSources) >= prefs.MaxRSSSources {
		return nil, nil, errors.StateConflict("source list is full")
	}
	d.RSSSources = append(d.RSSSources, src)
	return marshalResult(map[string]string{"id": src.ID, "url": src.URL}), nil, nil
}

func (e *Engine) execUpdateSource(d *prefs.Document, payload json.RawMessage) (json.RawMessage, func(), error) {
	var p UpdateSourcePayload
	if err := decodeStrict(payload, &p); err != nil {
		return nil, nil, err
	}
	src := d.SourceByID(p.ID)
	if src == nil {
		return nil, nil, errors.NotFound(fmt.Sprintf("rss source %q", p.ID))
	}
	if p.Name != nil {
		src.Name = *p.Name
	}
	if p.URL != nil {
		if !prefs.ValidFeedURL(*p.URL) {
			return nil, nil, errors.Validationf("invalid feed url %q", *p.URL)
		}
		src.URL = *p.URL
	}
	if p.Category != nil {
		src.Category = *p.Category
	}
	if p.Enabled != nil {
		src.Enabled = *p.Enabled
	}
	return marshalResult(map[string]string{"id": src.ID}), nil, nil
}

func (e *Engine) execRemoveSource(d *prefs.Document, payload json.RawMessage) (json.RawMessage, func(), error) {
	var p RemoveSourcePayload
	if err := decodeStrict(payload, &p); err != nil {
		return nil, nil, err
	}
	kept := d.RSSSources[:0]
	removed := false
	for _, s := range d.RSSSources {
		if s.ID == p.ID {
			removed = true
			continue
		}
		kept = append(kept, s)
	}
	if !removed {
		return nil, nil, errors.NotFound(fmt.Sprintf("rss source %q", p.ID))
	}
	d.RSSSources = kept
	return marshalResult(map[string]string{"id": p.ID}), nil, nil
}

func (e *Engine) execApplyPreset(d *prefs.Document, payload json.RawMessage) (json.RawMessage, func(), error) {
	var p ApplyPresetPayload
	if err := decodeStrict(payload, &p); err != nil {
		return nil, nil, err
	}
	pack, ok := prefs.PresetPackByName(p.Pack)
	if !ok {
		return nil, nil, errors.NotFound(fmt.Sprintf("preset pack %q", p.Pack))
	}
	added := prefs.ApplyPresetPack(d, pack)
	return marshalResult(map[string]int{"added": added}), nil, nil
}

func (e *Engine) execUpdateBriefing(d *prefs.Document, payload json.RawMessage) (json.RawMessage, func(), error) {
	var p UpdateBriefingPayload
	if err := decodeStrict(payload, &p); err != nil {
		return nil, nil, err
	}
	ApplyBriefingPatch(&d.Briefing, p)
	return marshalResult(d.Briefing.Schedule), nil, nil
}

// ApplyBriefingPatch overlays the non-nil fields of a settings patch.
// Invalid time or timezone values are skipped; validation happens at
// propose time.
func ApplyBriefingPatch(b *prefs.BriefingState, p UpdateBriefingPayload) {
	if p.Time != nil && prefs.ValidScheduleTime(*p.Time) {
		b.Schedule.Time = *p.Time
	}
	if p.Timezone != nil && prefs.ValidTimezone(*p.Timezone) {
		b.Schedule.Timezone = *p.Timezone
	}
	if p.InApp != nil {
		b.Delivery.InApp = *p.InApp
	}
	if p.Telegram != nil {
		b.Delivery.Telegram = *p.Telegram
	}
	if p.AskBeforeGenerateWhenTelegramPaused != nil {
		b.Behavior.AskBeforeGenerateWhenTelegramPaused = *p.AskBeforeGenerateWhenTelegramPaused
	}
	if p.DefaultContinueWhenPaused != nil {
		b.Behavior.DefaultContinueWhenPaused = *p.DefaultContinueWhenPaused
	}
}

func (e *Engine) execSetPause(d *prefs.Document, payload json.RawMessage) (json.RawMessage, func(), error) {
	var p SetPausePayload
	if err := decodeStrict(payload, &p); err != nil {
		return nil, nil, err
	}
	d.Briefing.Delivery.TelegramPaused = p.Paused
	return marshalResult(map[string]bool{"paused": p.Paused}), nil, nil
}

// execGenerate defers the actual generation until after the confirming
// update commits: the generator takes the store lock itself, and a
// confirmed-then-failed flip is recorded in a follow-up write.
func (e *Engine) execGenerate(ctx context.Context, act prefs.Action) (json.RawMessage, func(), error) {
	var p GenerateBriefingPayload
	if err := decodeStrict(act.Payload, &p); err != nil {
		return nil, nil, err
	}
	deferred := func() {
		outcome, err := e.gen.Generate(ctx, briefing.Options{
			Mode:               p.Mode,
			TemplateID:         p.TemplateID,
			Origin:             act.Origin,
			ContinueWhenPaused: p.ContinueWhenPaused,
			SuppressPrompt:     true,
		})
		if _, uerr := e.store.Update(func(d *prefs.Document) error {
			a := findAction(d, act.ID)
			if a == nil {
				return nil
			}
			a.UpdatedAt = time.Now().UTC()
			if err != nil {
				a.Status = prefs.ActionFailed
				a.Error = err.Error()
				return nil
			}
			a.Result = marshalResult(outcome)
			return nil
		}); uerr != nil {
			slog.Error("Recording briefing outcome failed", "action", act.ID, "error", uerr)
		}
	}
	return nil, deferred, nil
}

func marshalResult(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
