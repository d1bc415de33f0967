package briefing

import (
	"fmt"
	"strconv"

	"github.com/harunnryd/trendsniffer/internal/feed"
	"github.com/harunnryd/trendsniffer/internal/prefs"
	"github.com/harunnryd/trendsniffer/internal/reconcile"
	"github.com/harunnryd/trendsniffer/internal/render"
)

// Digest modes: "new" renders only unseen watchlist matches, "full"
// renders the top of every panel regardless of seen state.
const (
	ModeNew  = "new"
	ModeFull = "full"
)

// NormalizeMode folds anything that is not explicitly "full" to "new".
func NormalizeMode(mode string) string {
	if mode == ModeFull {
		return ModeFull
	}
	return ModeNew
}

// Digest is rendered, truncated message text plus the counts that went
// into it.
type Digest struct {
	Text            string               `json:"text"`
	Counts          prefs.BriefingCounts `json:"counts"`
	RawPendingTotal int                  `json:"rawPendingTotal"`
}

// BuildDigest renders the selected template against a snapshot.
func BuildDigest(doc prefs.Document, snap feed.Snapshot, templateID, mode string) Digest {
	mode = NormalizeMode(mode)
	pending := reconcile.PendingNew(doc, snap)
	tpl := doc.ActiveTemplate(templateID)

	signals := pending.Signals
	searches := pending.Searches
	videos := pending.Videos
	if mode == ModeFull {
		signals = topSignals(snap.Signals, 5)
		searches = topSearches(snap.Searches, 5)
		videos = topVideos(snap.Videos, 5)
	}

	context := map[string]string{
		"generatedAt":      snap.FetchedAt.Local().Format("2006-01-02 15:04"),
		"watchTopics":      render.JoinOr(doc.Watchlist.Topics, "all topics"),
		"watchChannels":    render.JoinOr(channelLabels(doc.Watchlist.Channels), "all channels"),
		"newSignalsCount":  strconv.Itoa(len(signals)),
		"newSearchesCount": strconv.Itoa(len(searches)),
		"newVideosCount":   strconv.Itoa(len(videos)),
		"signalsList": render.ListText(signals, func(s feed.Signal) string {
			return s.Title + "\n" + s.Link
		}, "No signal updates."),
		"searchesList": render.ListText(searches, func(s feed.Search) string {
			return fmt.Sprintf("%s (%s)\n%s", s.Query, s.ApproxTraffic, s.Link)
		}, "No search updates."),
		"videosList": render.ListText(videos, func(v feed.Video) string {
			return v.Title + " - " + v.Channel + "\n" + v.Link
		}, "No video updates."),
		"sparkLine": feed.SparkLine(snap.Challenges),
	}

	return Digest{
		Text: render.Truncate(render.Render(tpl.Body, context)),
		Counts: prefs.BriefingCounts{
			Signals:  len(signals),
			Searches: len(searches),
			Videos:   len(videos),
			Total:    len(signals) + len(searches) + len(videos),
		},
		RawPendingTotal: pending.Total,
	}
}

func channelLabels(channels []prefs.WatchChannel) []string {
	out := make([]string, 0, len(channels))
	for _, c := range channels {
		label := c.Label
		if label == "" {
			label = c.ID
		}
		if label != "" {
			out = append(out, label)
		}
	}
	return out
}

func topSignals(in []feed.Signal, n int) []feed.Signal {
	if len(in) > n {
		return in[:n]
	}
	return in
}

func topSearches(in []feed.Search, n int) []feed.Search {
	if len(in) > n {
		return in[:n]
	}
	return in
}

func topVideos(in []feed.Video, n int) []feed.Video {
	if len(in) > n {
		return in[:n]
	}
	return in
}
