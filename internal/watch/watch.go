// Package watch implements the watchlist matcher: case-insensitive
// substring tests of watch terms against per-kind haystacks.
package watch

import (
	"strings"

	"github.com/harunnryd/trendsniffer/internal/feed"
	"github.com/harunnryd/trendsniffer/internal/prefs"
)

// Terms is the flattened, lowercased watchlist. An empty term set matches
// everything, so a user with no watchlist still gets a full digest.
type Terms []string

// FromWatchlist flattens topics plus channel labels into match terms.
// Channel ids address feeds to fetch, not text to match, so they are not
// terms. Topics are already lowercase; labels are folded here.
func FromWatchlist(wl prefs.Watchlist) Terms {
	terms := make(Terms, 0, len(wl.Topics)+len(wl.Channels))
	for _, t := range wl.Topics {
		if t != "" {
			terms = append(terms, strings.ToLower(t))
		}
	}
	for _, c := range wl.Channels {
		if c.Label != "" {
			terms = append(terms, strings.ToLower(c.Label))
		}
	}
	return terms
}

func (t Terms) matches(haystack string) bool {
	if len(t) == 0 {
		return true
	}
	for _, term := range t {
		if strings.Contains(haystack, term) {
			return true
		}
	}
	return false
}

// MatchesSignal tests title, summary, topic and source.
func (t Terms) MatchesSignal(s feed.Signal) bool {
	var b strings.Builder
	b.WriteString(s.Title)
	b.WriteByte(' ')
	b.WriteString(s.Summary)
	b.WriteByte(' ')
	b.WriteString(s.Topic)
	b.WriteByte(' ')
	b.WriteString(s.Source)
	return t.matches(strings.ToLower(b.String()))
}

// MatchesSearch tests the query, traffic figure and related headlines.
func (t Terms) MatchesSearch(s feed.Search) bool {
	var b strings.Builder
	b.WriteString(s.Query)
	b.WriteByte(' ')
	b.WriteString(s.ApproxTraffic)
	for _, r := range s.Related {
		b.WriteByte(' ')
		b.WriteString(r.Title)
		b.WriteByte(' ')
		b.WriteString(r.Source)
	}
	return t.matches(strings.ToLower(b.String()))
}

// MatchesVideo tests title and channel name.
func (t Terms) MatchesVideo(v feed.Video) bool {
	return t.matches(strings.ToLower(v.Title + " " + v.Channel))
}
