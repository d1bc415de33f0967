package feed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/harunnryd/trendsniffer/internal/textutil"
)

// Searches pulls the trending-searches RSS feed. The interesting parts
// live in the "ht" extension namespace: approximate traffic and the
// related news headlines attached to each query.
func (f *Fetcher) Searches(ctx context.Context) []Search {
	parsed, err := f.parseURL(ctx, f.opts.TrendsURL)
	if err != nil {
		slog.Warn("Trends feed failed", "url", f.opts.TrendsURL, "error", err)
		return nil
	}

	out := make([]Search, 0, f.opts.MaxSearches)
	for i, item := range parsed.Items {
		if i >= f.opts.MaxSearches {
			break
		}
		query := textutil.StripTags(item.Title)
		if query == "" {
			continue
		}
		out = append(out, Search{
			ID:            fmt.Sprintf("trend-%d-%s", i, query),
			Query:         query,
			ApproxTraffic: htValue(item, "approx_traffic", "Not listed"),
			Link:          item.Link,
			PublishedAt:   publishedOrNow(item),
			Related:       relatedNews(item),
		})
	}
	return out
}

func htExtensions(item *gofeed.Item, name string) []ext.Extension {
	ns, ok := item.Extensions["ht"]
	if !ok {
		return nil
	}
	return ns[name]
}

func htValue(item *gofeed.Item, name, fallback string) string {
	exts := htExtensions(item, name)
	if len(exts) == 0 {
		return fallback
	}
	if v := textutil.StripTags(exts[0].Value); v != "" {
		return v
	}
	return fallback
}

func relatedNews(item *gofeed.Item) []RelatedQuery {
	var out []RelatedQuery
	for _, news := range htExtensions(item, "news_item") {
		rq := RelatedQuery{
			Title:  textutil.StripTags(childValue(news, "news_item_title")),
			URL:    childValue(news, "news_item_url"),
			Source: textutil.StripTags(childValue(news, "news_item_source")),
		}
		if rq.Title == "" {
			continue
		}
		out = append(out, rq)
	}
	return out
}

func childValue(e ext.Extension, name string) string {
	children := e.Children[name]
	if len(children) == 0 {
		return ""
	}
	return children[0].Value
}
