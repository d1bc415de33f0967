package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harunnryd/trendsniffer/internal/action"
	"github.com/harunnryd/trendsniffer/internal/briefing"
	"github.com/harunnryd/trendsniffer/internal/copilot"
	"github.com/harunnryd/trendsniffer/internal/feed"
	"github.com/harunnryd/trendsniffer/internal/prefs"
)

type stubFetcher struct{ snap feed.Snapshot }

func (s stubFetcher) Fetch(_ context.Context, _ prefs.Document) feed.Snapshot { return s.snap }

func testServer(t *testing.T) (*Server, *prefs.Store) {
	t.Helper()
	store, err := prefs.Open(filepath.Join(t.TempDir(), "store.json"), prefs.DefaultLockConfig())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	fetcher := stubFetcher{snap: feed.Snapshot{
		FetchedAt: time.Now().UTC(),
		Signals:   []feed.Signal{{ID: "s1", Title: "AI news", Link: "https://example.com/a"}},
	}}
	gen := briefing.NewGenerator(store, fetcher)
	engine := action.NewEngine(store, gen)
	cp := copilot.New(store, engine)
	return New(store, fetcher, gen, engine, cp), store
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v\n%s", err, rec.Body.String())
	}
	return out
}

func TestHealth(t *testing.T) {
	s, _ := testServer(t)
	rec := doRequest(t, s, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestDashboard(t *testing.T) {
	s, _ := testServer(t)
	rec := doRequest(t, s, http.MethodGet, "/api/dashboard", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	pending, ok := body["pendingNew"].(map[string]any)
	if !ok {
		t.Fatalf("pendingNew missing: %v", body)
	}
	if pending["total"].(float64) != 1 {
		t.Fatalf("pendingNew = %v", pending)
	}
}

func TestPreferencesRoundTrip(t *testing.T) {
	s, store := testServer(t)
	rec := doRequest(t, s, http.MethodPut, "/api/preferences",
		`{"watchlist": {"topics": ["Go", "go"]}, "seen": {"signals": {"x": 1}}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	doc := store.Snapshot()
	if len(doc.Watchlist.Topics) != 1 || doc.Watchlist.Topics[0] != "go" {
		t.Fatalf("topics = %v", doc.Watchlist.Topics)
	}
	if doc.Seen.IsSeen(prefs.CollectionSignals, "x") {
		t.Fatal("seen must not be writable through preferences")
	}

	rec = doRequest(t, s, http.MethodGet, "/api/preferences", "")
	body := decode(t, rec)
	if _, ok := body["seen"]; ok {
		t.Fatal("seen state leaked into public preferences")
	}
}

func TestPutPreferencesRejectsMalformed(t *testing.T) {
	s, _ := testServer(t)
	rec := doRequest(t, s, http.MethodPut, "/api/preferences", "not json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestPreviewDoesNotMutate(t *testing.T) {
	s, store := testServer(t)
	rec := doRequest(t, s, http.MethodPost, "/api/notify/telegram/preview", `{"mode": "new"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["text"].(string) == "" {
		t.Fatal("preview text empty")
	}
	snap := store.Snapshot()
	if snap.Seen.IsSeen(prefs.CollectionSignals, "s1") {
		t.Fatal("preview must not mark items seen")
	}
}

func TestAcknowledgeMarksAllSeen(t *testing.T) {
	s, store := testServer(t)
	rec := doRequest(t, s, http.MethodPost, "/api/alerts/acknowledge", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	snap := store.Snapshot()
	if !snap.Seen.IsSeen(prefs.CollectionSignals, "s1") {
		t.Fatal("acknowledge did not mark the snapshot seen")
	}
}

func TestSourceLifecycle(t *testing.T) {
	s, store := testServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/rss-sources",
		`{"name": "Example", "url": "https://example.com/feed.xml", "category": "Testing"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add status = %d: %s", rec.Code, rec.Body.String())
	}

	var id string
	for _, src := range store.Snapshot().RSSSources {
		if src.URL == "https://example.com/feed.xml" {
			id = src.ID
		}
	}
	if id == "" {
		t.Fatal("added source not found")
	}

	rec = doRequest(t, s, http.MethodPut, "/api/rss-sources/"+id, `{"enabled": false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}
	snapAfterUpdate := store.Snapshot()
	if snapAfterUpdate.SourceByID(id).Enabled {
		t.Fatal("source still enabled")
	}

	rec = doRequest(t, s, http.MethodDelete, "/api/rss-sources/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	snapAfterDelete := store.Snapshot()
	if snapAfterDelete.SourceByID(id) != nil {
		t.Fatal("source still present")
	}

	rec = doRequest(t, s, http.MethodDelete, "/api/rss-sources/"+id, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", rec.Code)
	}
}

func TestAddSourceInvalidURL(t *testing.T) {
	s, _ := testServer(t)
	rec := doRequest(t, s, http.MethodPost, "/api/rss-sources", `{"url": "nope"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestActionQueueOverHTTP(t *testing.T) {
	s, _ := testServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/copilot/actions",
		`{"type": "set_telegram_pause", "summary": "Pause", "payload": {"paused": true}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("propose status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	id := body["action"].(map[string]any)["id"].(string)

	rec = doRequest(t, s, http.MethodPost, "/api/copilot/actions/"+id+"/confirm", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, s, http.MethodPost, "/api/copilot/actions/"+id+"/confirm", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("second confirm status = %d", rec.Code)
	}

	rec = doRequest(t, s, http.MethodPost, "/api/copilot/actions/action-missing/reject", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("reject missing status = %d", rec.Code)
	}
}

func TestChatEndpoint(t *testing.T) {
	s, _ := testServer(t)
	rec := doRequest(t, s, http.MethodPost, "/api/copilot/chat", `{"message": "pause telegram"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	reply := body["reply"].(map[string]any)
	if actions := reply["actions"].([]any); len(actions) != 1 {
		t.Fatalf("actions = %v", actions)
	}

	rec = doRequest(t, s, http.MethodPost, "/api/copilot/chat", `{"message": ""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty message status = %d", rec.Code)
	}
}

func TestBriefingSettingsPatch(t *testing.T) {
	s, store := testServer(t)

	rec := doRequest(t, s, http.MethodPatch, "/api/briefing/settings",
		`{"time": "06:45", "timezone": "Asia/Jakarta", "telegramPaused": true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	b := store.Snapshot().Briefing
	if b.Schedule.Time != "06:45" || b.Schedule.Timezone != "Asia/Jakarta" || !b.Delivery.TelegramPaused {
		t.Fatalf("briefing = %+v", b)
	}

	rec = doRequest(t, s, http.MethodPatch, "/api/briefing/settings", `{"time": "26:00"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid time status = %d", rec.Code)
	}
}

func TestGenerateBriefingPausePrompt(t *testing.T) {
	s, store := testServer(t)
	if _, err := store.Update(func(d *prefs.Document) error {
		d.Briefing.Delivery.TelegramPaused = true
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	rec := doRequest(t, s, http.MethodPost, "/api/briefing/generate", `{"mode": "new"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	outcome := decode(t, rec)["outcome"].(map[string]any)
	if outcome["status"] != briefing.StatusConfirmationNeeded {
		t.Fatalf("outcome = %v", outcome)
	}

	rec = doRequest(t, s, http.MethodPost, "/api/briefing/generate",
		`{"mode": "new", "continueWhenPaused": true}`)
	outcome = decode(t, rec)["outcome"].(map[string]any)
	if outcome["status"] != briefing.StatusGenerated {
		t.Fatalf("outcome = %v", outcome)
	}
	if len(store.Snapshot().Briefing.History) != 1 {
		t.Fatal("history not recorded")
	}
}
