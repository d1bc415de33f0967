// Package reconcile computes what a digest should contain: items that are
// both unseen and watchlist-matching.
package reconcile

import (
	"github.com/harunnryd/trendsniffer/internal/feed"
	"github.com/harunnryd/trendsniffer/internal/prefs"
	"github.com/harunnryd/trendsniffer/internal/watch"
)

// Result carries the intersection per kind, plus the raw unseen count so
// callers can tell "nothing new" apart from "new but filtered out".
type Result struct {
	Signals        []feed.Signal `json:"signals"`
	Searches       []feed.Search `json:"searches"`
	Videos         []feed.Video  `json:"videos"`
	Total          int           `json:"total"`
	RawUnseenTotal int           `json:"rawUnseenTotal"`
}

// PendingNew filters a snapshot down to items the user has not seen that
// also match the watchlist.
func PendingNew(doc prefs.Document, snap feed.Snapshot) Result {
	terms := watch.FromWatchlist(doc.Watchlist)
	res := Result{
		Signals:  []feed.Signal{},
		Searches: []feed.Search{},
		Videos:   []feed.Video{},
	}

	for _, s := range snap.Signals {
		if doc.Seen.IsSeen(prefs.CollectionSignals, s.ID) {
			continue
		}
		res.RawUnseenTotal++
		if terms.MatchesSignal(s) {
			res.Signals = append(res.Signals, s)
		}
	}
	for _, s := range snap.Searches {
		if doc.Seen.IsSeen(prefs.CollectionSearches, s.ID) {
			continue
		}
		res.RawUnseenTotal++
		if terms.MatchesSearch(s) {
			res.Searches = append(res.Searches, s)
		}
	}
	for _, v := range snap.Videos {
		if doc.Seen.IsSeen(prefs.CollectionVideos, v.ID) {
			continue
		}
		res.RawUnseenTotal++
		if terms.MatchesVideo(v) {
			res.Videos = append(res.Videos, v)
		}
	}

	res.Total = len(res.Signals) + len(res.Searches) + len(res.Videos)
	return res
}

// IDs lists every item id in the snapshot for a collection, the set a
// mark-all-seen acknowledges.
func IDs(snap feed.Snapshot, collection string) []string {
	switch collection {
	case prefs.CollectionSignals:
		out := make([]string, len(snap.Signals))
		for i, s := range snap.Signals {
			out[i] = s.ID
		}
		return out
	case prefs.CollectionSearches:
		out := make([]string, len(snap.Searches))
		for i, s := range snap.Searches {
			out[i] = s.ID
		}
		return out
	case prefs.CollectionVideos:
		out := make([]string, len(snap.Videos))
		for i, v := range snap.Videos {
			out[i] = v.ID
		}
		return out
	default:
		return nil
	}
}
