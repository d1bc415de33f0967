package prefs

import (
	"encoding/json"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/harunnryd/trendsniffer/internal/textutil"
)

var channelIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,60}$`)

// rawDocument is the wire shape used for decoding. Booleans that default
// to true are pointers so a missing field and an explicit false stay
// distinguishable until the defaults are applied.
type rawDocument struct {
	Watchlist *struct {
		Topics   []string `json:"topics"`
		Channels []struct {
			Label string `json:"label"`
			ID    string `json:"id"`
		} `json:"channels"`
	} `json:"watchlist"`
	Templates        []Template `json:"templates"`
	ActiveTemplateID string     `json:"activeTemplateId"`
	Seen             *struct {
		Signals  map[string]int64 `json:"signals"`
		Searches map[string]int64 `json:"searches"`
		Videos   map[string]int64 `json:"videos"`
	} `json:"seen"`
	Settings *struct {
		SendOnlyNewItems *bool `json:"sendOnlyNewItems"`
		CardsPerPage     *int  `json:"cardsPerPage"`
	} `json:"settings"`
	RSSSources []struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		URL      string `json:"url"`
		Category string `json:"category"`
		Enabled  *bool  `json:"enabled"`
		Preset   bool   `json:"preset"`
	} `json:"rssSources"`
	Copilot *struct {
		RequireConfirmation *bool      `json:"requireConfirmation"`
		PendingActions      []Action   `json:"pendingActions"`
		History             []ChatTurn `json:"history"`
	} `json:"copilot"`
	Briefing *struct {
		Schedule *struct {
			Time     string `json:"time"`
			Timezone string `json:"timezone"`
		} `json:"schedule"`
		Delivery *struct {
			InApp          *bool `json:"inApp"`
			Telegram       *bool `json:"telegram"`
			TelegramPaused bool  `json:"telegramPaused"`
		} `json:"delivery"`
		Behavior *struct {
			AskBeforeGenerateWhenTelegramPaused *bool `json:"askBeforeGenerateWhenTelegramPaused"`
			DefaultContinueWhenPaused           *bool `json:"defaultContinueWhenPaused"`
		} `json:"behavior"`
		LastGeneratedAt *time.Time       `json:"lastGeneratedAt"`
		History         []BriefingRecord `json:"history"`
	} `json:"briefing"`
}

// DecodeDocument parses raw bytes into a fully normalized Document. It
// never fails: unparseable input yields the default document, and every
// recognizable fragment of partial input is preserved.
func DecodeDocument(data []byte) Document {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return DefaultDocument()
	}
	return normalizeRaw(raw)
}

// NormalizeDocument reapplies every sanitation rule to an in-memory
// document. Normalization is idempotent: a normalized document round-trips
// unchanged.
func NormalizeDocument(doc Document) Document {
	data, err := json.Marshal(doc)
	if err != nil {
		return DefaultDocument()
	}
	return DecodeDocument(data)
}

func normalizeRaw(raw rawDocument) Document {
	doc := Document{}
	doc.Watchlist = normalizeWatchlist(raw)
	doc.Templates, doc.ActiveTemplateID = normalizeTemplates(raw.Templates, raw.ActiveTemplateID)
	doc.Seen = normalizeSeen(raw)
	doc.Settings = normalizeSettings(raw)
	doc.RSSSources = normalizeSources(raw)
	doc.Copilot = normalizeCopilot(raw)
	doc.Briefing = normalizeBriefing(raw)
	return doc
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// SanitizeTopic lowercases and trims a watch topic, clipping to 50 runes.
// Empty results mean the topic is dropped.
func SanitizeTopic(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return clipRunes(s, 50)
}

func clipRunes(s string, max int) string {
	r := []rune(s)
	if len(r) > max {
		return string(r[:max])
	}
	return s
}

func normalizeWatchlist(raw rawDocument) Watchlist {
	wl := Watchlist{Topics: []string{}, Channels: []WatchChannel{}}
	if raw.Watchlist == nil {
		wl.Topics = []string{"ai", "cybersecurity"}
		return wl
	}
	seenTopics := map[string]bool{}
	for _, t := range raw.Watchlist.Topics {
		topic := SanitizeTopic(t)
		if topic == "" || seenTopics[topic] {
			continue
		}
		seenTopics[topic] = true
		wl.Topics = append(wl.Topics, topic)
		if len(wl.Topics) >= MaxWatchTopics {
			break
		}
	}
	seenLabels := map[string]bool{}
	for _, c := range raw.Watchlist.Channels {
		label := clipRunes(strings.TrimSpace(c.Label), 60)
		if label == "" {
			continue
		}
		id := strings.TrimSpace(c.ID)
		if id != "" && !channelIDPattern.MatchString(id) {
			continue
		}
		key := strings.ToLower(label)
		if seenLabels[key] {
			continue
		}
		seenLabels[key] = true
		wl.Channels = append(wl.Channels, WatchChannel{Label: label, ID: id})
		if len(wl.Channels) >= MaxWatchChannels {
			break
		}
	}
	return wl
}

// SanitizeTemplate enforces field limits and strips markup from the body.
// An empty body means the template should be dropped.
func SanitizeTemplate(t Template) Template {
	t.ID = clipRunes(strings.TrimSpace(t.ID), 80)
	if t.ID == "" {
		t.ID = NewID("template")
	}
	t.Name = clipRunes(strings.TrimSpace(t.Name), 60)
	if t.Name == "" {
		t.Name = "Untitled Template"
	}
	body := strings.ReplaceAll(t.Body, "\r", "")
	body = textutil.StripTagsKeepLines(body)
	t.Body = clipRunes(strings.TrimSpace(body), MaxTemplateBody)
	return t
}

func normalizeTemplates(in []Template, activeID string) ([]Template, string) {
	out := []Template{}
	ids := map[string]bool{}
	for _, t := range in {
		t = SanitizeTemplate(t)
		if t.Body == "" || ids[t.ID] {
			continue
		}
		ids[t.ID] = true
		out = append(out, t)
		if len(out) >= MaxTemplates {
			break
		}
	}
	if len(out) == 0 {
		out = []Template{DefaultTemplate()}
	}
	activeID = strings.TrimSpace(activeID)
	if !ids[activeID] {
		activeID = out[0].ID
	}
	return out, activeID
}

func normalizeSeen(raw rawDocument) SeenState {
	seen := SeenState{
		Signals:  map[string]int64{},
		Searches: map[string]int64{},
		Videos:   map[string]int64{},
	}
	if raw.Seen == nil {
		return seen
	}
	seen.Signals = pruneSeen(raw.Seen.Signals)
	seen.Searches = pruneSeen(raw.Seen.Searches)
	seen.Videos = pruneSeen(raw.Seen.Videos)
	return seen
}

// pruneSeen keeps at most MaxSeenIDs entries, preferring the most recently
// marked ones.
func pruneSeen(in map[string]int64) map[string]int64 {
	out := map[string]int64{}
	for id, ts := range in {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		out[id] = ts
	}
	if len(out) <= MaxSeenIDs {
		return out
	}
	type entry struct {
		id string
		ts int64
	}
	entries := make([]entry, 0, len(out))
	for id, ts := range out {
		entries = append(entries, entry{id, ts})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ts != entries[j].ts {
			return entries[i].ts > entries[j].ts
		}
		return entries[i].id < entries[j].id
	})
	pruned := make(map[string]int64, MaxSeenIDs)
	for _, e := range entries[:MaxSeenIDs] {
		pruned[e.id] = e.ts
	}
	return pruned
}

func normalizeSettings(raw rawDocument) Settings {
	s := Settings{SendOnlyNewItems: true, CardsPerPage: 12}
	if raw.Settings == nil {
		return s
	}
	s.SendOnlyNewItems = boolOr(raw.Settings.SendOnlyNewItems, true)
	if raw.Settings.CardsPerPage != nil {
		s.CardsPerPage = clampInt(*raw.Settings.CardsPerPage, MinCardsPerPage, MaxCardsPerPage)
	}
	return s
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CanonicalFeedURL is the dedupe key for a feed URL.
func CanonicalFeedURL(raw string) string {
	return normalizeFeedURL(raw)
}

// normalizeFeedURL canonicalizes a feed URL for dedupe: lowercased scheme
// and host, no trailing slash on the path.
func normalizeFeedURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return strings.ToLower(raw)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}

// ValidFeedURL reports whether raw parses as an absolute http(s) URL.
func ValidFeedURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// SanitizeSource validates and clips a source in place. ok is false when
// the URL is unusable and the source must be dropped.
func SanitizeSource(s RSSSource) (RSSSource, bool) {
	s.URL = strings.TrimSpace(s.URL)
	if !ValidFeedURL(s.URL) {
		return s, false
	}
	s.ID = clipRunes(strings.TrimSpace(s.ID), 80)
	if s.ID == "" {
		s.ID = NewID("source")
	}
	s.Name = clipRunes(strings.TrimSpace(s.Name), 90)
	if s.Name == "" {
		if u, err := url.Parse(s.URL); err == nil && u.Host != "" {
			s.Name = u.Host
		} else {
			s.Name = "Untitled Source"
		}
	}
	s.Category = clipRunes(strings.TrimSpace(s.Category), 40)
	if s.Category == "" {
		s.Category = "General"
	}
	return s, true
}

func normalizeSources(raw rawDocument) []RSSSource {
	// A document stripped of every source gets the default pack back so
	// the dashboard never starts empty.
	if raw.RSSSources == nil {
		return DefaultPresetPack()
	}
	out := []RSSSource{}
	byURL := map[string]bool{}
	ids := map[string]bool{}
	for _, in := range raw.RSSSources {
		src, ok := SanitizeSource(RSSSource{
			ID:       in.ID,
			Name:     in.Name,
			URL:      in.URL,
			Category: in.Category,
			Enabled:  boolOr(in.Enabled, true),
			Preset:   in.Preset,
		})
		if !ok {
			continue
		}
		key := normalizeFeedURL(src.URL)
		if byURL[key] || ids[src.ID] {
			continue
		}
		byURL[key] = true
		ids[src.ID] = true
		out = append(out, src)
		if len(out) >= MaxRSSSources {
			break
		}
	}
	if len(out) == 0 {
		return DefaultPresetPack()
	}
	return out
}

func normalizeCopilot(raw rawDocument) CopilotState {
	c := CopilotState{
		RequireConfirmation: true,
		PendingActions:      []Action{},
		History:             []ChatTurn{},
	}
	if raw.Copilot == nil {
		return c
	}
	c.RequireConfirmation = boolOr(raw.Copilot.RequireConfirmation, true)
	for _, a := range raw.Copilot.PendingActions {
		if a.ID == "" || !KnownActionType(a.Type) {
			continue
		}
		switch a.Status {
		case ActionPending, ActionConfirmed, ActionRejected, ActionFailed:
		default:
			a.Status = ActionPending
		}
		switch a.Risk {
		case RiskLow, RiskMedium, RiskHigh:
		default:
			a.Risk = RiskMedium
		}
		c.PendingActions = append(c.PendingActions, a)
		if len(c.PendingActions) >= MaxPendingActions {
			break
		}
	}
	for _, t := range raw.Copilot.History {
		if t.ID == "" || strings.TrimSpace(t.Text) == "" {
			continue
		}
		if t.Role != "user" && t.Role != "assistant" {
			continue
		}
		c.History = append(c.History, t)
		if len(c.History) >= MaxChatHistory {
			break
		}
	}
	return c
}

var scheduleTimePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ValidScheduleTime reports whether s is a 24-hour HH:mm string.
func ValidScheduleTime(s string) bool {
	return scheduleTimePattern.MatchString(s)
}

// ValidTimezone reports whether name resolves as an IANA zone.
func ValidTimezone(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	_, err := time.LoadLocation(name)
	return err == nil
}

func normalizeBriefing(raw rawDocument) BriefingState {
	b := BriefingState{
		Schedule: BriefingSchedule{Time: "08:30", Timezone: "UTC"},
		Delivery: BriefingDelivery{InApp: true, Telegram: true},
		Behavior: BriefingBehavior{
			AskBeforeGenerateWhenTelegramPaused: true,
			DefaultContinueWhenPaused:           true,
		},
		History: []BriefingRecord{},
	}
	if raw.Briefing == nil {
		return b
	}
	if raw.Briefing.Schedule != nil {
		if t := strings.TrimSpace(raw.Briefing.Schedule.Time); ValidScheduleTime(t) {
			b.Schedule.Time = t
		}
		if tz := strings.TrimSpace(raw.Briefing.Schedule.Timezone); ValidTimezone(tz) {
			b.Schedule.Timezone = tz
		}
	}
	if raw.Briefing.Delivery != nil {
		b.Delivery.InApp = boolOr(raw.Briefing.Delivery.InApp, true)
		b.Delivery.Telegram = boolOr(raw.Briefing.Delivery.Telegram, true)
		b.Delivery.TelegramPaused = raw.Briefing.Delivery.TelegramPaused
	}
	if raw.Briefing.Behavior != nil {
		b.Behavior.AskBeforeGenerateWhenTelegramPaused = boolOr(raw.Briefing.Behavior.AskBeforeGenerateWhenTelegramPaused, true)
		b.Behavior.DefaultContinueWhenPaused = boolOr(raw.Briefing.Behavior.DefaultContinueWhenPaused, true)
	}
	b.LastGeneratedAt = raw.Briefing.LastGeneratedAt
	for _, r := range raw.Briefing.History {
		if r.ID == "" {
			continue
		}
		b.History = append(b.History, r)
		if len(b.History) >= MaxBriefingHist {
			break
		}
	}
	return b
}

// MergeReplace overlays the recognized top-level sections of a partial
// document onto cur, leaving seen-item state untouched. The result still
// needs NormalizeDocument.
func MergeReplace(cur Document, partial []byte) (Document, error) {
	var sections map[string]json.RawMessage
	if err := json.Unmarshal(partial, &sections); err != nil {
		return cur, err
	}
	merged := cur
	if v, ok := sections["watchlist"]; ok {
		merged.Watchlist = Watchlist{}
		if err := json.Unmarshal(v, &merged.Watchlist); err != nil {
			return cur, err
		}
	}
	if v, ok := sections["templates"]; ok {
		merged.Templates = nil
		if err := json.Unmarshal(v, &merged.Templates); err != nil {
			return cur, err
		}
	}
	if v, ok := sections["activeTemplateId"]; ok {
		if err := json.Unmarshal(v, &merged.ActiveTemplateID); err != nil {
			return cur, err
		}
	}
	if v, ok := sections["settings"]; ok {
		if err := json.Unmarshal(v, &merged.Settings); err != nil {
			return cur, err
		}
	}
	if v, ok := sections["rssSources"]; ok {
		merged.RSSSources = nil
		if err := json.Unmarshal(v, &merged.RSSSources); err != nil {
			return cur, err
		}
	}
	if v, ok := sections["copilot"]; ok {
		if err := json.Unmarshal(v, &merged.Copilot); err != nil {
			return cur, err
		}
	}
	if v, ok := sections["briefing"]; ok {
		if err := json.Unmarshal(v, &merged.Briefing); err != nil {
			return cur, err
		}
	}
	// "seen" is deliberately ignored: the tracker only moves through
	// mark-seen operations.
	return merged, nil
}
