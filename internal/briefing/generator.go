package briefing

import (
	"context"
	"log/slog"
	"time"

	"github.com/harunnryd/trendsniffer/internal/delivery"
	"github.com/harunnryd/trendsniffer/internal/errors"
	"github.com/harunnryd/trendsniffer/internal/feed"
	"github.com/harunnryd/trendsniffer/internal/prefs"
	"github.com/harunnryd/trendsniffer/internal/reconcile"
)

// Outcome statuses for a generation attempt.
const (
	StatusGenerated          = "generated"
	StatusSkipped            = "skipped"
	StatusCancelled          = "cancelled"
	StatusConfirmationNeeded = "confirmation-needed"
)

// SkipReasonNoNew is returned when a "new"-mode generation finds nothing
// to report.
const SkipReasonNoNew = "No new watchlist-matching items yet."

// Options controls one generation attempt. ContinueWhenPaused is the
// caller's answer to the pause prompt: nil means no answer was given yet.
type Options struct {
	Mode               string
	TemplateID         string
	Origin             string
	ContinueWhenPaused *bool
	// SuppressPrompt makes unattended callers (the scheduler, a confirmed
	// action) fall back to the configured default instead of asking.
	SuppressPrompt bool
}

// Outcome reports what a generation attempt did. DefaultContinueWhenPaused
// is set on confirmation-needed outcomes so clients can show the decision
// that a non-answer would take.
type Outcome struct {
	Status                    string                `json:"status"`
	Reason                    string                `json:"reason,omitempty"`
	Prompt                    string                `json:"prompt,omitempty"`
	Record                    *prefs.BriefingRecord `json:"record,omitempty"`
	Counts                    prefs.BriefingCounts  `json:"counts"`
	DefaultContinueWhenPaused *bool                 `json:"defaultContinueWhenPaused,omitempty"`
	GeneratedAt               time.Time             `json:"generatedAt"`
}

// PausePrompt is shown when Telegram delivery is paused and the behavior
// settings ask before generating.
const PausePrompt = "Telegram delivery is paused. Generate this briefing anyway?"

var errNoDeliverer = errors.Collaborator(nil, "no delivery channel configured")

// Fetcher is the snapshot source the generator depends on.
type Fetcher interface {
	Fetch(ctx context.Context, doc prefs.Document) feed.Snapshot
}

// Generator produces briefings: fetch, render, deliver, commit seen state
// and history in one pass.
type Generator struct {
	store      *prefs.Store
	fetcher    Fetcher
	deliverers []delivery.Deliverer
}

func NewGenerator(store *prefs.Store, fetcher Fetcher, deliverers ...delivery.Deliverer) *Generator {
	return &Generator{store: store, fetcher: fetcher, deliverers: deliverers}
}

// Generate runs one briefing attempt. The pause prompt branch fetches a
// snapshot so the prompt can report counts, but commits no seen state or
// history, so answering "no" costs nothing.
func (g *Generator) Generate(ctx context.Context, opts Options) (Outcome, error) {
	doc := g.store.Snapshot()
	mode := NormalizeMode(opts.Mode)

	wantTelegram := doc.Briefing.Delivery.Telegram
	paused := doc.Briefing.Delivery.TelegramPaused
	// Telegram is unreachable when the pause flag is set or delivery is
	// switched off; both forms gate on the ask-first behavior.
	blocked := !wantTelegram || paused

	if blocked && doc.Briefing.Behavior.AskBeforeGenerateWhenTelegramPaused {
		answer := opts.ContinueWhenPaused
		if answer == nil && opts.SuppressPrompt {
			def := doc.Briefing.Behavior.DefaultContinueWhenPaused
			answer = &def
		}
		if answer == nil {
			snap := g.fetcher.Fetch(ctx, doc)
			digest := BuildDigest(doc, snap, opts.TemplateID, mode)
			def := doc.Briefing.Behavior.DefaultContinueWhenPaused
			return Outcome{
				Status:                    StatusConfirmationNeeded,
				Prompt:                    PausePrompt,
				Counts:                    digest.Counts,
				DefaultContinueWhenPaused: &def,
				GeneratedAt:               snap.FetchedAt,
			}, nil
		}
		if !*answer {
			return Outcome{
				Status: StatusCancelled,
				Reason: "Briefing cancelled while Telegram is paused.",
			}, nil
		}
	}

	snap := g.fetcher.Fetch(ctx, doc)
	digest := BuildDigest(doc, snap, opts.TemplateID, mode)

	if mode == ModeNew && digest.Counts.Total == 0 {
		return Outcome{
			Status:      StatusSkipped,
			Reason:      SkipReasonNoNew,
			Counts:      digest.Counts,
			GeneratedAt: snap.FetchedAt,
		}, nil
	}

	sent := false
	note := ""
	if wantTelegram && !paused {
		var sendErr error
		sent, sendErr = g.deliver(ctx, digest.Text)
		if sendErr != nil {
			note = "Delivery failed: " + sendErr.Error()
			slog.Warn("Briefing delivery failed", "origin", opts.Origin, "error", sendErr)
		}
	} else if wantTelegram && paused {
		note = "Telegram paused; generated in-app only."
	}

	record := prefs.BriefingRecord{
		ID:             prefs.NewID("briefing"),
		GeneratedAt:    snap.FetchedAt,
		Mode:           mode,
		Counts:         digest.Counts,
		SentToTelegram: sent,
		Note:           note,
		Text:           digest.Text,
	}

	_, err := g.store.Update(func(d *prefs.Document) error {
		markAllSeen(d, snap)
		generatedAt := record.GeneratedAt
		d.Briefing.LastGeneratedAt = &generatedAt
		d.Briefing.History = append([]prefs.BriefingRecord{record}, d.Briefing.History...)
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}

	slog.Info("Briefing generated",
		"mode", mode,
		"origin", opts.Origin,
		"total", digest.Counts.Total,
		"sent", sent,
	)
	return Outcome{
		Status:      StatusGenerated,
		Record:      &record,
		Counts:      digest.Counts,
		GeneratedAt: snap.FetchedAt,
	}, nil
}

// AcknowledgeAll fetches the current snapshot and marks every item seen.
func (g *Generator) AcknowledgeAll(ctx context.Context) error {
	doc := g.store.Snapshot()
	snap := g.fetcher.Fetch(ctx, doc)
	_, err := g.store.Update(func(d *prefs.Document) error {
		markAllSeen(d, snap)
		return nil
	})
	return err
}

// Preview renders a digest without delivering or mutating anything.
func (g *Generator) Preview(ctx context.Context, templateID, mode string) (Digest, feed.Snapshot) {
	doc := g.store.Snapshot()
	snap := g.fetcher.Fetch(ctx, doc)
	return BuildDigest(doc, snap, templateID, mode), snap
}

// Deliver sends free-form text through the first configured adapter.
func (g *Generator) Deliver(ctx context.Context, text string) error {
	sent, err := g.deliver(ctx, text)
	if err != nil {
		return err
	}
	if !sent {
		return errNoDeliverer
	}
	return nil
}

func (g *Generator) deliver(ctx context.Context, text string) (bool, error) {
	for _, d := range g.deliverers {
		if !d.Configured() {
			continue
		}
		if err := d.Send(ctx, text); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

func markAllSeen(d *prefs.Document, snap feed.Snapshot) {
	now := time.Now().UnixMilli()
	for _, collection := range []string{
		prefs.CollectionSignals, prefs.CollectionSearches, prefs.CollectionVideos,
	} {
		m := d.Seen.Collection(collection)
		for _, id := range reconcile.IDs(snap, collection) {
			m[id] = now
		}
	}
}
