package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/harunnryd/trendsniffer/internal/prefs"
	"github.com/harunnryd/trendsniffer/internal/textutil"
)

// Options tunes the collaborators. Zero values fall back to the defaults
// the daemon ships with.
type Options struct {
	UserAgent        string
	Timeout          time.Duration
	TrendsURL        string
	StackExchangeURL string
	ItemsPerFeed     int
	MaxSignals       int
	MaxSearches      int
	MaxVideos        int
}

func (o *Options) fill() {
	if o.UserAgent == "" {
		o.UserAgent = "TrendSnifferBot/2.0 (+watchlist and new-item alerts)"
	}
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.TrendsURL == "" {
		o.TrendsURL = "https://trends.google.com/trending/rss?geo=US"
	}
	if o.StackExchangeURL == "" {
		o.StackExchangeURL = "https://api.stackexchange.com/2.3/questions"
	}
	if o.ItemsPerFeed <= 0 {
		o.ItemsPerFeed = 12
	}
	if o.MaxSignals <= 0 {
		o.MaxSignals = 40
	}
	if o.MaxSearches <= 0 {
		o.MaxSearches = 20
	}
	if o.MaxVideos <= 0 {
		o.MaxVideos = 24
	}
}

// Fetcher pulls every dashboard collaborator. A collaborator that fails
// contributes an empty slice; a fetch cycle as a whole never errors.
type Fetcher struct {
	opts   Options
	client *http.Client
	parser *gofeed.Parser
}

func NewFetcher(opts Options) *Fetcher {
	opts.fill()
	client := &http.Client{Timeout: opts.Timeout}
	parser := gofeed.NewParser()
	parser.UserAgent = opts.UserAgent
	parser.Client = client
	return &Fetcher{opts: opts, client: client, parser: parser}
}

// Fetch runs every collaborator concurrently and assembles a snapshot.
func (f *Fetcher) Fetch(ctx context.Context, doc prefs.Document) Snapshot {
	snap := Snapshot{FetchedAt: time.Now().UTC()}

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		snap.Signals = f.Signals(ctx, doc.RSSSources)
	}()
	go func() {
		defer wg.Done()
		snap.Searches = f.Searches(ctx)
	}()
	go func() {
		defer wg.Done()
		snap.Videos = f.Videos(ctx, doc.Watchlist.Channels)
	}()
	go func() {
		defer wg.Done()
		snap.Challenges = f.Challenges(ctx)
	}()
	wg.Wait()

	snap.SourceMix = SourceMix(snap.Signals)
	return snap
}

// Signals fetches every enabled source in parallel, keeps the newest
// ItemsPerFeed entries per feed and the newest MaxSignals overall.
func (f *Fetcher) Signals(ctx context.Context, sources []prefs.RSSSource) []Signal {
	var (
		mu  sync.Mutex
		all []Signal
		wg  sync.WaitGroup
	)
	for _, src := range sources {
		if !src.Enabled {
			continue
		}
		wg.Add(1)
		go func(src prefs.RSSSource) {
			defer wg.Done()
			items := f.fetchSource(ctx, src)
			mu.Lock()
			all = append(all, items...)
			mu.Unlock()
		}(src)
	}
	wg.Wait()

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].PublishedAt.After(all[j].PublishedAt)
	})
	if len(all) > f.opts.MaxSignals {
		all = all[:f.opts.MaxSignals]
	}
	return all
}

func (f *Fetcher) fetchSource(ctx context.Context, src prefs.RSSSource) []Signal {
	parsed, err := f.parseURL(ctx, src.URL)
	if err != nil {
		slog.Warn("Signal feed failed", "source", src.Name, "url", src.URL, "error", err)
		return nil
	}

	sourceName := textutil.StripTags(parsed.Title)
	if sourceName == "" {
		sourceName = src.Name
	}

	out := make([]Signal, 0, f.opts.ItemsPerFeed)
	for i, item := range parsed.Items {
		if i >= f.opts.ItemsPerFeed {
			break
		}
		title := textutil.StripTags(item.Title)
		if title == "" || item.Link == "" {
			continue
		}
		key := item.GUID
		if key == "" {
			key = item.Link
		}
		if key == "" {
			key = title
		}
		summary := item.Description
		if summary == "" {
			summary = item.Content
		}
		out = append(out, Signal{
			ID:          fmt.Sprintf("%s-%d-%s", src.Name, i, key),
			Title:       title,
			Link:        item.Link,
			Summary:     textutil.StripTags(summary),
			Topic:       src.Name,
			Source:      sourceName,
			PublishedAt: publishedOrNow(item),
		})
	}
	return out
}

func (f *Fetcher) parseURL(ctx context.Context, url string) (*gofeed.Feed, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()
	return f.parser.ParseURLWithContext(url, ctx)
}

func publishedOrNow(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC()
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.UTC()
	}
	return time.Now().UTC()
}

// SourceMix returns the six busiest topics by signal count.
func SourceMix(signals []Signal) []SourceStat {
	counts := map[string]int{}
	order := []string{}
	for _, s := range signals {
		topic := s.Topic
		if topic == "" {
			topic = "Other"
		}
		if _, ok := counts[topic]; !ok {
			order = append(order, topic)
		}
		counts[topic]++
	}
	stats := make([]SourceStat, 0, len(order))
	for _, name := range order {
		stats = append(stats, SourceStat{Name: name, Count: counts[name]})
	}
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].Count > stats[j].Count
	})
	if len(stats) > 6 {
		stats = stats[:6]
	}
	return stats
}
