package prefs

// PresetPack is a named bundle of curated RSS sources that can be merged
// into a document idempotently.
type PresetPack struct {
	Name        string
	Description string
	Sources     []RSSSource
}

// technologyCore mirrors the default feed mix the dashboard ships with.
func technologyCore() PresetPack {
	return PresetPack{
		Name:        "technology-core",
		Description: "Google News topic searches plus TechCrunch and The Verge",
		Sources: []RSSSource{
			{
				ID:       "preset-google-news-ai-robotics",
				Name:     "AI & Robotics",
				URL:      "https://news.google.com/rss/search?q=artificial+intelligence+OR+robotics&hl=en-US&gl=US&ceid=US:en",
				Category: "Google News",
				Enabled:  true,
				Preset:   true,
			},
			{
				ID:       "preset-google-news-cloud-platform",
				Name:     "Cloud & Platform",
				URL:      "https://news.google.com/rss/search?q=cloud+computing+OR+kubernetes+OR+aws&hl=en-US&gl=US&ceid=US:en",
				Category: "Google News",
				Enabled:  true,
				Preset:   true,
			},
			{
				ID:       "preset-google-news-cybersecurity",
				Name:     "Cybersecurity",
				URL:      "https://news.google.com/rss/search?q=cybersecurity+OR+data+breach&hl=en-US&gl=US&ceid=US:en",
				Category: "Google News",
				Enabled:  true,
				Preset:   true,
			},
			{
				ID:       "preset-google-news-startups-funding",
				Name:     "Startups & Funding",
				URL:      "https://news.google.com/rss/search?q=startup+funding+OR+venture+capital&hl=en-US&gl=US&ceid=US:en",
				Category: "Google News",
				Enabled:  true,
				Preset:   true,
			},
			{
				ID:       "preset-techcrunch",
				Name:     "TechCrunch",
				URL:      "https://techcrunch.com/feed/",
				Category: "Tech Media",
				Enabled:  true,
				Preset:   true,
			},
			{
				ID:       "preset-the-verge",
				Name:     "The Verge",
				URL:      "https://www.theverge.com/rss/index.xml",
				Category: "Tech Media",
				Enabled:  true,
				Preset:   true,
			},
		},
	}
}

// PresetPackByName looks up a pack by its exact name.
func PresetPackByName(name string) (PresetPack, bool) {
	for _, p := range PresetPacks() {
		if p.Name == name {
			return p, true
		}
	}
	return PresetPack{}, false
}

// PresetPacks lists every curated pack.
func PresetPacks() []PresetPack {
	return []PresetPack{technologyCore()}
}

// DefaultPresetPack returns a fresh copy of the sources a new document
// starts with.
func DefaultPresetPack() []RSSSource {
	pack := technologyCore()
	out := make([]RSSSource, len(pack.Sources))
	copy(out, pack.Sources)
	return out
}

// ApplyPresetPack merges a pack into the source list, matching existing
// entries by normalized URL. Matched entries get their name and category
// overwritten and are re-enabled; unmatched pack sources are appended. It
// returns the number of sources actually added.
func ApplyPresetPack(doc *Document, pack PresetPack) int {
	existing := make(map[string]int, len(doc.RSSSources))
	for i, s := range doc.RSSSources {
		existing[normalizeFeedURL(s.URL)] = i
	}
	added := 0
	for _, s := range pack.Sources {
		key := normalizeFeedURL(s.URL)
		if i, ok := existing[key]; ok {
			cur := &doc.RSSSources[i]
			cur.Name = s.Name
			cur.Category = s.Category
			cur.Enabled = true
			cur.Preset = true
			continue
		}
		existing[key] = len(doc.RSSSources)
		doc.RSSSources = append(doc.RSSSources, s)
		added++
	}
	return added
}
