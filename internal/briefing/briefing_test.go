package briefing

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harunnryd/trendsniffer/internal/feed"
	"github.com/harunnryd/trendsniffer/internal/prefs"
)

type stubFetcher struct {
	snap feed.Snapshot
}

func (s stubFetcher) Fetch(_ context.Context, _ prefs.Document) feed.Snapshot {
	return s.snap
}

type stubDeliverer struct {
	configured bool
	err        error
	sent       []string
}

func (s *stubDeliverer) Name() string     { return "stub" }
func (s *stubDeliverer) Configured() bool { return s.configured }
func (s *stubDeliverer) Send(_ context.Context, text string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, text)
	return nil
}

func testStore(t *testing.T) *prefs.Store {
	t.Helper()
	s, err := prefs.Open(filepath.Join(t.TempDir(), "store.json"), prefs.DefaultLockConfig())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func matchingSnapshot() feed.Snapshot {
	return feed.Snapshot{
		FetchedAt: time.Now().UTC(),
		Signals: []feed.Signal{
			{ID: "s1", Title: "AI breakthrough", Link: "https://example.com/a"},
		},
		Challenges: feed.Challenges{Opportunities: []feed.Opportunity{
			{Category: "AI Integration Cost", SuggestedSolution: "Build a guardrail dashboard."},
		}},
	}
}

func TestBuildDigestContext(t *testing.T) {
	doc := prefs.DefaultDocument()
	snap := matchingSnapshot()
	digest := BuildDigest(doc, snap, "", ModeNew)

	if digest.Counts.Signals != 1 || digest.Counts.Total != 1 {
		t.Fatalf("counts = %+v", digest.Counts)
	}
	for _, want := range []string{
		"Watch Topics: ai, cybersecurity",
		"Watch Channels: all channels",
		"New Signals (1)",
		"1. AI breakthrough\nhttps://example.com/a",
		"No search updates.",
		"No video updates.",
		"AI Integration Cost: Build a guardrail dashboard.",
	} {
		if !strings.Contains(digest.Text, want) {
			t.Errorf("digest missing %q\n---\n%s", want, digest.Text)
		}
	}
}

func TestBuildDigestFullModeIgnoresSeen(t *testing.T) {
	doc := prefs.DefaultDocument()
	doc.Seen.Signals["s1"] = 1
	digest := BuildDigest(doc, matchingSnapshot(), "", ModeFull)
	if digest.Counts.Signals != 1 {
		t.Fatalf("full mode should include seen items, counts = %+v", digest.Counts)
	}
}

func TestGenerateSkipsWhenNothingNew(t *testing.T) {
	store := testStore(t)
	gen := NewGenerator(store, stubFetcher{snap: feed.Snapshot{FetchedAt: time.Now()}})

	out, err := gen.Generate(context.Background(), Options{Mode: ModeNew, Origin: "test"})
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != StatusSkipped || out.Reason != SkipReasonNoNew {
		t.Fatalf("outcome = %+v", out)
	}
	if len(store.Snapshot().Briefing.History) != 0 {
		t.Fatal("skip must not record history")
	}
}

func TestGenerateSendsAndCommits(t *testing.T) {
	store := testStore(t)
	d := &stubDeliverer{configured: true}
	gen := NewGenerator(store, stubFetcher{snap: matchingSnapshot()}, d)

	out, err := gen.Generate(context.Background(), Options{Mode: ModeNew, Origin: "test"})
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != StatusGenerated {
		t.Fatalf("status = %q", out.Status)
	}
	if len(d.sent) != 1 {
		t.Fatalf("sent %d messages", len(d.sent))
	}

	doc := store.Snapshot()
	if !doc.Seen.IsSeen(prefs.CollectionSignals, "s1") {
		t.Fatal("generated briefing must mark snapshot items seen")
	}
	if len(doc.Briefing.History) != 1 || !doc.Briefing.History[0].SentToTelegram {
		t.Fatalf("history = %+v", doc.Briefing.History)
	}
	if doc.Briefing.LastGeneratedAt == nil {
		t.Fatal("lastGeneratedAt not set")
	}

	// The next "new" run sees nothing new.
	out, err = gen.Generate(context.Background(), Options{Mode: ModeNew, Origin: "test"})
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != StatusSkipped {
		t.Fatalf("second run status = %q", out.Status)
	}
}

func TestGenerateDeliveryFailureStillRecords(t *testing.T) {
	store := testStore(t)
	d := &stubDeliverer{configured: true, err: errors.New("boom")}
	gen := NewGenerator(store, stubFetcher{snap: matchingSnapshot()}, d)

	out, err := gen.Generate(context.Background(), Options{Mode: ModeNew, Origin: "test"})
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != StatusGenerated {
		t.Fatalf("status = %q", out.Status)
	}
	rec := store.Snapshot().Briefing.History[0]
	if rec.SentToTelegram {
		t.Fatal("failed send recorded as delivered")
	}
	if !strings.Contains(rec.Note, "Delivery failed") {
		t.Fatalf("note = %q", rec.Note)
	}
}

func pausedStore(t *testing.T) *prefs.Store {
	store := testStore(t)
	if _, err := store.Update(func(d *prefs.Document) error {
		d.Briefing.Delivery.TelegramPaused = true
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	return store
}

func TestGeneratePausePromptBranches(t *testing.T) {
	store := pausedStore(t)
	d := &stubDeliverer{configured: true}
	gen := NewGenerator(store, stubFetcher{snap: matchingSnapshot()}, d)
	ctx := context.Background()

	// No answer yet: ask, commit nothing. The prompt carries the computed
	// counts and the decision an unattended run would take.
	out, err := gen.Generate(ctx, Options{Mode: ModeNew})
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != StatusConfirmationNeeded || out.Prompt != PausePrompt {
		t.Fatalf("outcome = %+v", out)
	}
	if out.Counts.Total != 1 {
		t.Fatalf("prompt outcome counts = %+v", out.Counts)
	}
	if out.DefaultContinueWhenPaused == nil || !*out.DefaultContinueWhenPaused {
		t.Fatalf("prompt outcome default = %v", out.DefaultContinueWhenPaused)
	}
	snap := store.Snapshot()
	if snap.Seen.IsSeen(prefs.CollectionSignals, "s1") {
		t.Fatal("prompt branch must not mutate seen state")
	}

	// Declined.
	no := false
	out, err = gen.Generate(ctx, Options{Mode: ModeNew, ContinueWhenPaused: &no})
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != StatusCancelled {
		t.Fatalf("status = %q", out.Status)
	}

	// Accepted: generated in-app, nothing sent while paused.
	yes := true
	out, err = gen.Generate(ctx, Options{Mode: ModeNew, ContinueWhenPaused: &yes})
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != StatusGenerated {
		t.Fatalf("status = %q", out.Status)
	}
	if len(d.sent) != 0 {
		t.Fatal("paused delivery must not send")
	}
	rec := store.Snapshot().Briefing.History[0]
	if rec.SentToTelegram || !strings.Contains(rec.Note, "paused") {
		t.Fatalf("record = %+v", rec)
	}
}

func TestGenerateDisabledDeliveryAlsoPrompts(t *testing.T) {
	store := testStore(t)
	if _, err := store.Update(func(d *prefs.Document) error {
		d.Briefing.Delivery.Telegram = false
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	gen := NewGenerator(store, stubFetcher{snap: matchingSnapshot()})

	// Telegram switched off entirely counts as unreachable, same as paused.
	out, err := gen.Generate(context.Background(), Options{Mode: ModeNew})
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != StatusConfirmationNeeded {
		t.Fatalf("status = %q", out.Status)
	}
	snap := store.Snapshot()
	if snap.Seen.IsSeen(prefs.CollectionSignals, "s1") {
		t.Fatal("prompt branch must not mutate seen state")
	}
}

func TestGenerateRefreshesSeenTimestamps(t *testing.T) {
	store := testStore(t)
	if _, err := store.Update(func(d *prefs.Document) error {
		d.Seen.Signals["s1"] = 1000
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	gen := NewGenerator(store, stubFetcher{snap: matchingSnapshot()})

	out, err := gen.Generate(context.Background(), Options{Mode: ModeFull, SuppressPrompt: true})
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != StatusGenerated {
		t.Fatalf("status = %q", out.Status)
	}
	if store.Snapshot().Seen.Signals["s1"] == 1000 {
		t.Fatal("re-marking a seen item must refresh its timestamp")
	}
}

func TestGenerateSuppressedPromptUsesDefault(t *testing.T) {
	store := pausedStore(t)
	gen := NewGenerator(store, stubFetcher{snap: matchingSnapshot()})

	// defaultContinueWhenPaused is true, so an unattended run proceeds.
	out, err := gen.Generate(context.Background(), Options{Mode: ModeNew, SuppressPrompt: true})
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != StatusGenerated {
		t.Fatalf("status = %q", out.Status)
	}

	if _, err := store.Update(func(d *prefs.Document) error {
		d.Briefing.Behavior.DefaultContinueWhenPaused = false
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	out, err = gen.Generate(context.Background(), Options{Mode: ModeNew, SuppressPrompt: true})
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != StatusCancelled {
		t.Fatalf("status = %q", out.Status)
	}
}

func TestCronSpec(t *testing.T) {
	spec, err := cronSpec("08:30")
	if err != nil {
		t.Fatal(err)
	}
	if spec != "30 8 * * *" {
		t.Fatalf("spec = %q", spec)
	}
	if _, err := cronSpec("25:00"); err == nil {
		t.Fatal("expected error for invalid time")
	}
}
