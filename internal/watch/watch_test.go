package watch

import (
	"testing"

	"github.com/harunnryd/trendsniffer/internal/feed"
	"github.com/harunnryd/trendsniffer/internal/prefs"
)

func TestEmptyTermsMatchEverything(t *testing.T) {
	terms := FromWatchlist(prefs.Watchlist{})
	if !terms.MatchesSignal(feed.Signal{Title: "anything"}) {
		t.Fatal("empty watchlist must match every signal")
	}
	if !terms.MatchesSearch(feed.Search{Query: "anything"}) {
		t.Fatal("empty watchlist must match every search")
	}
	if !terms.MatchesVideo(feed.Video{Title: "anything"}) {
		t.Fatal("empty watchlist must match every video")
	}
}

func TestSignalHaystack(t *testing.T) {
	terms := FromWatchlist(prefs.Watchlist{Topics: []string{"ai"}})

	cases := []struct {
		name string
		sig  feed.Signal
		want bool
	}{
		{"in title", feed.Signal{Title: "New AI breakthrough"}, true},
		{"in summary", feed.Signal{Title: "News", Summary: "covers AI agents"}, true},
		{"in topic", feed.Signal{Title: "News", Topic: "AI & Robotics"}, true},
		{"in source", feed.Signal{Title: "News", Source: "AI Weekly"}, true},
		{"substring of a word", feed.Signal{Title: "Painting tips"}, true},
		{"no match", feed.Signal{Title: "Gardening", Summary: "tomatoes"}, false},
	}
	for _, tc := range cases {
		if got := terms.MatchesSignal(tc.sig); got != tc.want {
			t.Errorf("%s: match = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestSearchHaystackIncludesRelated(t *testing.T) {
	terms := FromWatchlist(prefs.Watchlist{Topics: []string{"cybersecurity"}})
	s := feed.Search{
		Query: "celebrity gossip",
		Related: []feed.RelatedQuery{
			{Title: "Cybersecurity firm breached", Source: "Example News"},
		},
	}
	if !terms.MatchesSearch(s) {
		t.Fatal("related headline should count toward the match")
	}
	s.Related = nil
	if terms.MatchesSearch(s) {
		t.Fatal("query alone should not match")
	}
}

func TestVideoMatchesChannelLabel(t *testing.T) {
	terms := FromWatchlist(prefs.Watchlist{
		Channels: []prefs.WatchChannel{{Label: "Fireship", ID: "UCsBjURrPoezykLs9EqgamOA"}},
	})
	if !terms.MatchesVideo(feed.Video{Title: "Go in 100 seconds", Channel: "Fireship"}) {
		t.Fatal("channel label should match")
	}
	if terms.MatchesVideo(feed.Video{Title: "Unrelated", Channel: "Other"}) {
		t.Fatal("unexpected match")
	}
}

func TestChannelIDIsNotAMatchTerm(t *testing.T) {
	terms := FromWatchlist(prefs.Watchlist{
		Channels: []prefs.WatchChannel{{Label: "Fireship", ID: "UCsBjURrPoezykLs9EqgamOA"}},
	})
	if terms.MatchesVideo(feed.Video{Title: "about ucsbjurrpoezykls9eqgamoa", Channel: "Other"}) {
		t.Fatal("a channel id appearing in text must not count as a match")
	}
}
