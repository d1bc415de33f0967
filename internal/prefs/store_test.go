package prefs

import (
	"os"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.json")
	s, err := Open(path, DefaultLockConfig())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesDefaults(t *testing.T) {
	s := openTestStore(t)
	doc := s.Snapshot()
	if len(doc.Watchlist.Topics) != 2 {
		t.Fatalf("fresh store topics = %v", doc.Watchlist.Topics)
	}
	if _, err := os.Stat(s.Path()); err != nil {
		t.Fatalf("store file not written: %v", err)
	}
}

func TestOpenCorruptFileFailsOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	if err := os.WriteFile(path, []byte("{{{{"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Open(path, DefaultLockConfig())
	if err != nil {
		t.Fatalf("corrupt file must not fail open: %v", err)
	}
	defer s.Close()
	if got := len(s.Snapshot().RSSSources); got != 6 {
		t.Fatalf("expected default document, got %d sources", got)
	}
}

func TestUpdateNormalizesAndPersists(t *testing.T) {
	s := openTestStore(t)
	doc, err := s.Update(func(d *Document) error {
		d.Watchlist.Topics = append(d.Watchlist.Topics, "  Kubernetes ")
		d.Settings.CardsPerPage = 1
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if doc.Watchlist.Topics[len(doc.Watchlist.Topics)-1] != "kubernetes" {
		t.Fatalf("topic not sanitized: %v", doc.Watchlist.Topics)
	}
	if doc.Settings.CardsPerPage != MinCardsPerPage {
		t.Fatalf("cardsPerPage = %d", doc.Settings.CardsPerPage)
	}

	// Re-open from disk to confirm persistence.
	s.Close()
	s2, err := Open(s.Path(), DefaultLockConfig())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	reloaded := s2.Snapshot()
	if reloaded.Settings.CardsPerPage != MinCardsPerPage {
		t.Fatal("update did not reach disk")
	}
}

func TestUpdateErrorLeavesDocumentAlone(t *testing.T) {
	s := openTestStore(t)
	before := s.Snapshot()
	_, err := s.Update(func(d *Document) error {
		d.Watchlist.Topics = nil
		return os.ErrInvalid
	})
	if err == nil {
		t.Fatal("expected error from update fn")
	}
	after := s.Snapshot()
	if len(after.Watchlist.Topics) != len(before.Watchlist.Topics) {
		t.Fatal("failed update mutated the document")
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := openTestStore(t)
	snap := s.Snapshot()
	snap.Watchlist.Topics[0] = "mutated"
	snap.Seen.Signals["rogue"] = 1
	fresh := s.Snapshot()
	if fresh.Watchlist.Topics[0] == "mutated" {
		t.Fatal("snapshot shares topic slice with store")
	}
	if _, ok := fresh.Seen.Signals["rogue"]; ok {
		t.Fatal("snapshot shares seen map with store")
	}
}

func TestMarkSeen(t *testing.T) {
	s := openTestStore(t)
	doc, err := s.MarkSeen(CollectionSignals, []string{"a", "b", "", "a"})
	if err != nil {
		t.Fatalf("mark seen: %v", err)
	}
	if len(doc.Seen.Signals) != 2 {
		t.Fatalf("seen signals = %v", doc.Seen.Signals)
	}
	if !doc.Seen.IsSeen(CollectionSignals, "a") {
		t.Fatal("id a not marked")
	}
	if doc.Seen.IsSeen(CollectionVideos, "a") {
		t.Fatal("collections must be independent")
	}

	// Last write wins: eviction keeps the most recently marked entries, so
	// re-marking an id must refresh its timestamp.
	if _, err := s.Update(func(d *Document) error {
		d.Seen.Signals["a"] = 1000
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	doc, err = s.MarkSeen(CollectionSignals, []string{"a"})
	if err != nil {
		t.Fatal(err)
	}
	if doc.Seen.Signals["a"] == 1000 {
		t.Fatal("re-marking must overwrite the stored timestamp")
	}
}

func TestOnPersistFires(t *testing.T) {
	s := openTestStore(t)
	var got []int
	s.OnPersist(func(d Document) {
		got = append(got, d.Settings.CardsPerPage)
	})
	if _, err := s.Update(func(d *Document) error {
		d.Settings.CardsPerPage = 20
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != 20 {
		t.Fatalf("persist callback got %v", got)
	}
}

func TestReplaceRejectsBadJSON(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Replace([]byte("nope")); err == nil {
		t.Fatal("expected validation error for malformed payload")
	}
}
