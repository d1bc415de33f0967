package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/mmcdole/gofeed"

	"github.com/harunnryd/trendsniffer/internal/prefs"
	"github.com/harunnryd/trendsniffer/internal/textutil"
)

const videoFeedURL = "https://www.youtube.com/feeds/videos.xml?channel_id=%s"

const itemsPerChannel = 6

// VideoChannels merges the base channels with watchlist channels that
// carry an id, deduplicated by id in first-occurrence order.
func VideoChannels(watched []prefs.WatchChannel) []ChannelRef {
	merged := BaseVideoChannels()
	for _, c := range watched {
		if c.ID == "" {
			continue
		}
		merged = append(merged, ChannelRef{Name: c.Label, ID: c.ID})
	}
	seen := map[string]bool{}
	out := merged[:0]
	for _, ref := range merged {
		if seen[ref.ID] {
			continue
		}
		seen[ref.ID] = true
		out = append(out, ref)
	}
	return out
}

// Videos polls each channel's upload feed, keeping the newest six per
// channel and the newest MaxVideos overall.
func (f *Fetcher) Videos(ctx context.Context, watched []prefs.WatchChannel) []Video {
	channels := VideoChannels(watched)

	var (
		mu  sync.Mutex
		all []Video
		wg  sync.WaitGroup
	)
	for _, ch := range channels {
		wg.Add(1)
		go func(ch ChannelRef) {
			defer wg.Done()
			items := f.fetchChannel(ctx, ch)
			mu.Lock()
			all = append(all, items...)
			mu.Unlock()
		}(ch)
	}
	wg.Wait()

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].PublishedAt.After(all[j].PublishedAt)
	})
	if len(all) > f.opts.MaxVideos {
		all = all[:f.opts.MaxVideos]
	}
	return all
}

func (f *Fetcher) fetchChannel(ctx context.Context, ch ChannelRef) []Video {
	parsed, err := f.parseURL(ctx, fmt.Sprintf(videoFeedURL, ch.ID))
	if err != nil {
		slog.Warn("Video feed failed", "channel", ch.Name, "id", ch.ID, "error", err)
		return nil
	}

	out := make([]Video, 0, itemsPerChannel)
	for i, item := range parsed.Items {
		if i >= itemsPerChannel {
			break
		}
		title := textutil.StripTags(item.Title)
		if title == "" || item.Link == "" {
			continue
		}
		out = append(out, Video{
			ID:          ch.ID + "-" + videoID(item),
			Title:       title,
			Channel:     ch.Name,
			ChannelID:   ch.ID,
			Link:        item.Link,
			PublishedAt: publishedOrNow(item),
		})
	}
	return out
}

func videoID(item *gofeed.Item) string {
	if ns, ok := item.Extensions["yt"]; ok {
		if ids := ns["videoId"]; len(ids) > 0 && ids[0].Value != "" {
			return ids[0].Value
		}
	}
	// Atom entry ids look like yt:video:<id>; fall back to the raw GUID.
	return item.GUID
}
