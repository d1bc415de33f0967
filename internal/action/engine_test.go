package action

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/harunnryd/trendsniffer/internal/briefing"
	"github.com/harunnryd/trendsniffer/internal/errors"
	"github.com/harunnryd/trendsniffer/internal/feed"
	"github.com/harunnryd/trendsniffer/internal/prefs"

	"github.com/stretchr/testify/require"
)

type fixedFetcher struct{ snap feed.Snapshot }

func (f fixedFetcher) Fetch(_ context.Context, _ prefs.Document) feed.Snapshot { return f.snap }

func testEngine(t *testing.T) (*Engine, *prefs.Store) {
	t.Helper()
	store, err := prefs.Open(filepath.Join(t.TempDir(), "store.json"), prefs.DefaultLockConfig())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	gen := briefing.NewGenerator(store, fixedFetcher{snap: feed.Snapshot{
		FetchedAt: time.Now().UTC(),
		Signals:   []feed.Signal{{ID: "s1", Title: "AI news", Link: "https://example.com"}},
	}})
	return NewEngine(store, gen), store
}

func payload(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestProposeAndConfirmAddSource(t *testing.T) {
	engine, store := testEngine(t)

	act, err := engine.Propose(prefs.ActionAddRSSSource, "Add Example feed",
		payload(t, AddSourcePayload{Name: "Example", URL: "https://example.com/feed.xml"}), prefs.OriginManual)
	require.NoError(t, err)
	require.Equal(t, prefs.ActionPending, act.Status)
	require.Equal(t, prefs.RiskLow, act.Risk)

	queue := store.Snapshot().Copilot.PendingActions
	require.Len(t, queue, 1)
	require.Equal(t, act.ID, queue[0].ID)

	confirmed, err := engine.Confirm(context.Background(), act.ID)
	require.NoError(t, err)
	require.Equal(t, prefs.ActionConfirmed, confirmed.Status, confirmed.Error)

	found := false
	for _, s := range store.Snapshot().RSSSources {
		if s.URL == "https://example.com/feed.xml" {
			found = true
		}
	}
	require.True(t, found, "confirmed source missing from document")
}

func TestProposeValidationRejectsBadURL(t *testing.T) {
	engine, store := testEngine(t)
	_, err := engine.Propose(prefs.ActionAddRSSSource, "bad",
		payload(t, AddSourcePayload{URL: "not a url"}), prefs.OriginManual)
	require.True(t, errors.IsCategory(err, errors.ErrValidation), "got %v", err)
	require.Empty(t, store.Snapshot().Copilot.PendingActions, "invalid proposal must not enqueue")
}

func TestConfirmTwiceConflicts(t *testing.T) {
	engine, _ := testEngine(t)
	act, err := engine.Propose(prefs.ActionSetTelegramPause, "Pause",
		payload(t, SetPausePayload{Paused: true}), prefs.OriginManual)
	require.NoError(t, err)

	_, err = engine.Confirm(context.Background(), act.ID)
	require.NoError(t, err)

	_, err = engine.Confirm(context.Background(), act.ID)
	require.True(t, errors.IsCategory(err, errors.ErrStateConflict), "got %v", err)
}

func TestRejectThenConfirmConflicts(t *testing.T) {
	engine, _ := testEngine(t)
	act, err := engine.Propose(prefs.ActionSetTelegramPause, "Pause",
		payload(t, SetPausePayload{Paused: true}), prefs.OriginManual)
	require.NoError(t, err)

	rejected, err := engine.Reject(act.ID)
	require.NoError(t, err)
	require.Equal(t, prefs.ActionRejected, rejected.Status)

	_, err = engine.Confirm(context.Background(), act.ID)
	require.True(t, errors.IsCategory(err, errors.ErrStateConflict), "got %v", err)
}

func TestConfirmUnknownActionNotFound(t *testing.T) {
	engine, _ := testEngine(t)
	_, err := engine.Confirm(context.Background(), "action-missing")
	require.True(t, errors.IsCategory(err, errors.ErrNotFound), "got %v", err)
}

func TestExecFailureMarksFailed(t *testing.T) {
	engine, store := testEngine(t)
	existing := store.Snapshot().RSSSources[0]

	// Duplicate URL passes propose-time validation but fails execution.
	act, err := engine.Propose(prefs.ActionAddRSSSource, "dup",
		payload(t, AddSourcePayload{Name: "Dup", URL: existing.URL}), prefs.OriginManual)
	require.NoError(t, err)

	result, err := engine.Confirm(context.Background(), act.ID)
	require.NoError(t, err, "confirm itself must not error")
	require.Equal(t, prefs.ActionFailed, result.Status)
	require.NotEmpty(t, result.Error)
}

func TestRemoveSource(t *testing.T) {
	engine, store := testEngine(t)
	target := store.Snapshot().RSSSources[0]

	act, err := engine.Propose(prefs.ActionRemoveRSSSource, "Remove "+target.Name,
		payload(t, RemoveSourcePayload{ID: target.ID}), prefs.OriginManual)
	require.NoError(t, err)
	require.Equal(t, prefs.RiskMedium, act.Risk)

	_, err = engine.Confirm(context.Background(), act.ID)
	require.NoError(t, err)
	snap := store.Snapshot()
	require.Nil(t, snap.SourceByID(target.ID), "source still present after removal")
}

func TestApplyPresetPackRestores(t *testing.T) {
	engine, store := testEngine(t)
	_, err := store.Update(func(d *prefs.Document) error {
		d.RSSSources = d.RSSSources[:1]
		return nil
	})
	require.NoError(t, err)

	act, err := engine.Propose(prefs.ActionApplyPresetPack, "Apply technology-core",
		payload(t, ApplyPresetPayload{Pack: "technology-core"}), prefs.OriginCopilot)
	require.NoError(t, err)

	confirmed, err := engine.Confirm(context.Background(), act.ID)
	require.NoError(t, err)

	var result map[string]int
	require.NoError(t, json.Unmarshal(confirmed.Result, &result))
	require.Equal(t, 5, result["added"])
	require.Len(t, store.Snapshot().RSSSources, 6)
}

func TestUpdateBriefingSettings(t *testing.T) {
	engine, store := testEngine(t)
	tm, tz := "07:15", "Europe/Berlin"
	act, err := engine.Propose(prefs.ActionUpdateBriefingSetting, "Reschedule",
		payload(t, UpdateBriefingPayload{Time: &tm, Timezone: &tz}), prefs.OriginManual)
	require.NoError(t, err)

	_, err = engine.Confirm(context.Background(), act.ID)
	require.NoError(t, err)

	schedule := store.Snapshot().Briefing.Schedule
	require.Equal(t, tm, schedule.Time)
	require.Equal(t, tz, schedule.Timezone)
}

func TestGenerateBriefingAction(t *testing.T) {
	engine, store := testEngine(t)
	act, err := engine.Propose(prefs.ActionGenerateBriefing, "Generate now",
		payload(t, GenerateBriefingPayload{Mode: "new"}), prefs.OriginCopilot)
	require.NoError(t, err)

	confirmed, err := engine.Confirm(context.Background(), act.ID)
	require.NoError(t, err)
	require.Equal(t, prefs.ActionConfirmed, confirmed.Status, confirmed.Error)

	require.Len(t, store.Snapshot().Briefing.History, 1)

	var outcome briefing.Outcome
	require.NoError(t, json.Unmarshal(confirmed.Result, &outcome))
	require.Equal(t, briefing.StatusGenerated, outcome.Status)
}
