package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/harunnryd/trendsniffer/internal/prefs"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>Example Tech News</title>
<item>
  <title>&lt;b&gt;Big&lt;/b&gt; launch day</title>
  <link>https://example.com/a</link>
  <guid>guid-a</guid>
  <description>An &lt;i&gt;exciting&lt;/i&gt; release</description>
  <pubDate>Mon, 24 Aug 2026 10:00:00 GMT</pubDate>
</item>
<item>
  <title>Second story</title>
  <link>https://example.com/b</link>
  <pubDate>Sun, 23 Aug 2026 10:00:00 GMT</pubDate>
</item>
<item>
  <title></title>
  <link>https://example.com/untitled</link>
</item>
</channel></rss>`

func TestSignalsFromRSS(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleRSS)
	}))
	defer srv.Close()

	f := NewFetcher(Options{})
	signals := f.Signals(context.Background(), []prefs.RSSSource{
		{ID: "s1", Name: "Tech", URL: srv.URL, Enabled: true},
		{ID: "s2", Name: "Disabled", URL: srv.URL, Enabled: false},
	})

	if len(signals) != 2 {
		t.Fatalf("expected 2 signals from the enabled source, got %d", len(signals))
	}
	first := signals[0]
	if first.Title != "Big launch day" {
		t.Fatalf("title not stripped: %q", first.Title)
	}
	if first.Summary != "An exciting release" {
		t.Fatalf("summary = %q", first.Summary)
	}
	if first.Topic != "Tech" || first.Source != "Example Tech News" {
		t.Fatalf("topic/source = %q/%q", first.Topic, first.Source)
	}
	if !first.PublishedAt.After(signals[1].PublishedAt) {
		t.Fatal("signals not sorted newest first")
	}
}

func TestSignalsFeedFailureYieldsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewFetcher(Options{})
	signals := f.Signals(context.Background(), []prefs.RSSSource{
		{ID: "s1", Name: "Broken", URL: srv.URL, Enabled: true},
	})
	if len(signals) != 0 {
		t.Fatalf("failed feed must contribute nothing, got %d", len(signals))
	}
}

func TestClassifyChallenge(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"Why does my OpenAI prompt hallucinate?", "AI Integration Cost"},
		{"OAuth callback loops forever", "Authentication Friction"},
		{"Kubernetes pod stuck in CrashLoopBackOff", "Deployment & DevOps"},
		{"React hydration mismatch on first render", "Frontend Reliability"},
		{"Slow SQL query with missing index", "Data & Performance"},
		{"Completely unrelated mystery bug", "Debugging Complexity"},
	}
	for _, tc := range cases {
		if got := classifyChallenge(tc.title).key; got != tc.want {
			t.Errorf("classifyChallenge(%q) = %q, want %q", tc.title, got, tc.want)
		}
	}
}

func TestSparkLine(t *testing.T) {
	empty := SparkLine(Challenges{})
	if empty != "No challenge spark available yet. Pull fresh data and try again." {
		t.Fatalf("empty spark = %q", empty)
	}
	spark := SparkLine(Challenges{Opportunities: []Opportunity{
		{Category: "Data & Performance", SuggestedSolution: "Build a query optimization copilot."},
	}})
	if spark != "Data & Performance: Build a query optimization copilot." {
		t.Fatalf("spark = %q", spark)
	}
}

func TestSourceMixTopSix(t *testing.T) {
	var signals []Signal
	for topic, n := range map[string]int{"a": 1, "b": 2, "c": 3, "d": 4, "e": 5, "f": 6, "g": 7} {
		for i := 0; i < n; i++ {
			signals = append(signals, Signal{Topic: topic})
		}
	}
	signals = append(signals, Signal{}) // empty topic folds into Other
	mix := SourceMix(signals)
	if len(mix) != 6 {
		t.Fatalf("mix size = %d", len(mix))
	}
	if mix[0].Name != "g" || mix[0].Count != 7 {
		t.Fatalf("top entry = %+v", mix[0])
	}
	for _, stat := range mix {
		if stat.Name == "a" {
			t.Fatal("smallest topic should have been cut at six")
		}
	}
}

func TestVideoChannelsDedupe(t *testing.T) {
	channels := VideoChannels([]prefs.WatchChannel{
		{Label: "Fireship Again", ID: "UCsBjURrPoezykLs9EqgamOA"},
		{Label: "Custom", ID: "UCcustomchannel0001"},
		{Label: "No ID"},
	})
	base := len(BaseVideoChannels())
	if len(channels) != base+1 {
		t.Fatalf("expected %d channels, got %d: %+v", base+1, len(channels), channels)
	}
	// The base entry wins over the watchlist duplicate.
	for _, ch := range channels {
		if ch.ID == "UCsBjURrPoezykLs9EqgamOA" && ch.Name != "Fireship" {
			t.Fatalf("duplicate channel replaced the base entry: %+v", ch)
		}
	}
}
