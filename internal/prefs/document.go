package prefs

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// Collection names for the seen-item tracker.
const (
	CollectionSignals  = "signals"
	CollectionSearches = "searches"
	CollectionVideos   = "videos"
)

// Limits enforced by normalization.
const (
	MaxSeenIDs        = 1500
	MaxWatchTopics    = 24
	MaxWatchChannels  = 24
	MaxTemplates      = 12
	MaxTemplateBody   = 3600
	MaxRSSSources     = 80
	MaxPendingActions = 120
	MaxChatHistory    = 80
	MaxBriefingHist   = 40
	MinCardsPerPage   = 4
	MaxCardsPerPage   = 30
)

// Document is the root aggregate persisted to disk. The Store is its only
// writer; everything else reads snapshots and requests mutations through
// Store.Update.
type Document struct {
	Watchlist        Watchlist     `json:"watchlist"`
	Templates        []Template    `json:"templates"`
	ActiveTemplateID string        `json:"activeTemplateId"`
	Seen             SeenState     `json:"seen"`
	Settings         Settings      `json:"settings"`
	RSSSources       []RSSSource   `json:"rssSources"`
	Copilot          CopilotState  `json:"copilot"`
	Briefing         BriefingState `json:"briefing"`
}

type Watchlist struct {
	Topics   []string       `json:"topics"`
	Channels []WatchChannel `json:"channels"`
}

// WatchChannel names a video channel to watch. ID is the upstream channel
// identifier and is optional; matching falls back to the label.
type WatchChannel struct {
	Label string `json:"label"`
	ID    string `json:"id,omitempty"`
}

type Template struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Body string `json:"body"`
}

// SeenState holds three independent id -> last-marked (epoch ms) maps.
type SeenState struct {
	Signals  map[string]int64 `json:"signals"`
	Searches map[string]int64 `json:"searches"`
	Videos   map[string]int64 `json:"videos"`
}

// Collection returns the map backing a named collection, nil for unknown
// names.
func (s *SeenState) Collection(name string) map[string]int64 {
	switch name {
	case CollectionSignals:
		return s.Signals
	case CollectionSearches:
		return s.Searches
	case CollectionVideos:
		return s.Videos
	default:
		return nil
	}
}

// IsSeen reports whether an item id was marked in a collection. Unknown
// collections and unknown ids are false.
func (s *SeenState) IsSeen(collection, id string) bool {
	m := s.Collection(collection)
	if m == nil {
		return false
	}
	_, ok := m[id]
	return ok
}

type Settings struct {
	SendOnlyNewItems bool `json:"sendOnlyNewItems"`
	CardsPerPage     int  `json:"cardsPerPage"`
}

type RSSSource struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Category string `json:"category"`
	Enabled  bool   `json:"enabled"`
	Preset   bool   `json:"preset"`
}

type CopilotState struct {
	RequireConfirmation bool       `json:"requireConfirmation"`
	PendingActions      []Action   `json:"pendingActions"`
	History             []ChatTurn `json:"history"`
}

type ChatTurn struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	ActionIDs []string  `json:"actionIds,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ActionType enumerates the mutation kinds the confirmation engine can
// execute.
type ActionType string

const (
	ActionAddRSSSource          ActionType = "add_rss_source"
	ActionUpdateRSSSource       ActionType = "update_rss_source"
	ActionRemoveRSSSource       ActionType = "remove_rss_source"
	ActionApplyPresetPack       ActionType = "apply_preset_pack"
	ActionUpdateBriefingSetting ActionType = "update_briefing_settings"
	ActionSetTelegramPause      ActionType = "set_telegram_pause"
	ActionGenerateBriefing      ActionType = "generate_briefing"
)

// KnownActionType reports whether t is a queueable mutation kind.
func KnownActionType(t ActionType) bool {
	switch t {
	case ActionAddRSSSource, ActionUpdateRSSSource, ActionRemoveRSSSource,
		ActionApplyPresetPack, ActionUpdateBriefingSetting,
		ActionSetTelegramPause, ActionGenerateBriefing:
		return true
	}
	return false
}

type ActionStatus string

const (
	ActionPending   ActionStatus = "pending"
	ActionConfirmed ActionStatus = "confirmed"
	ActionRejected  ActionStatus = "rejected"
	ActionFailed    ActionStatus = "failed"
)

type ActionRisk string

const (
	RiskLow    ActionRisk = "low"
	RiskMedium ActionRisk = "medium"
	RiskHigh   ActionRisk = "high"
)

const (
	OriginManual  = "manual"
	OriginCopilot = "copilot"
)

// Action is a queued mutation proposal. Lifecycle: pending -> confirmed |
// rejected; a confirmed execution that errors lands in failed with the
// error recorded. Terminal states are immutable.
type Action struct {
	ID        string          `json:"id"`
	Type      ActionType      `json:"type"`
	Summary   string          `json:"summary"`
	Risk      ActionRisk      `json:"risk"`
	Status    ActionStatus    `json:"status"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Origin    string          `json:"origin"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
}

type BriefingState struct {
	Schedule        BriefingSchedule `json:"schedule"`
	Delivery        BriefingDelivery `json:"delivery"`
	Behavior        BriefingBehavior `json:"behavior"`
	LastGeneratedAt *time.Time       `json:"lastGeneratedAt"`
	History         []BriefingRecord `json:"history"`
}

type BriefingSchedule struct {
	Time     string `json:"time"`
	Timezone string `json:"timezone"`
}

type BriefingDelivery struct {
	InApp          bool `json:"inApp"`
	Telegram       bool `json:"telegram"`
	TelegramPaused bool `json:"telegramPaused"`
}

type BriefingBehavior struct {
	AskBeforeGenerateWhenTelegramPaused bool `json:"askBeforeGenerateWhenTelegramPaused"`
	DefaultContinueWhenPaused           bool `json:"defaultContinueWhenPaused"`
}

type BriefingCounts struct {
	Signals  int `json:"signals"`
	Searches int `json:"searches"`
	Videos   int `json:"videos"`
	Total    int `json:"total"`
}

// BriefingRecord is an immutable snapshot appended newest-first to
// briefing history.
type BriefingRecord struct {
	ID             string         `json:"id"`
	GeneratedAt    time.Time      `json:"generatedAt"`
	Mode           string         `json:"mode"`
	Counts         BriefingCounts `json:"counts"`
	SentToTelegram bool           `json:"sentToTelegram"`
	Note           string         `json:"note,omitempty"`
	Text           string         `json:"text"`
}

// TemplateByID resolves a template, nil when absent.
func (d *Document) TemplateByID(id string) *Template {
	for i := range d.Templates {
		if d.Templates[i].ID == id {
			return &d.Templates[i]
		}
	}
	return nil
}

// ActiveTemplate resolves templateID, then the active template, then the
// built-in default. Mirrors the template fallback chain used for digests.
func (d *Document) ActiveTemplate(templateID string) Template {
	if t := d.TemplateByID(templateID); t != nil {
		return *t
	}
	if t := d.TemplateByID(d.ActiveTemplateID); t != nil {
		return *t
	}
	return DefaultTemplate()
}

// SourceByID resolves an RSS source, nil when absent.
func (d *Document) SourceByID(id string) *RSSSource {
	for i := range d.RSSSources {
		if d.RSSSources[i].ID == id {
			return &d.RSSSources[i]
		}
	}
	return nil
}

// NewID returns a prefixed ULID, e.g. "action-01J....".
func NewID(prefix string) string {
	return prefix + "-" + ulid.Make().String()
}

// DefaultTemplate is the built-in digest template that normalization falls
// back to when the sanitized template list would be empty.
func DefaultTemplate() Template {
	return Template{
		ID:   "template-default",
		Name: "Concise New Items",
		Body: "Trend Sniffer Alert - {{generatedAt}}\n" +
			"Watch Topics: {{watchTopics}}\n" +
			"Watch Channels: {{watchChannels}}\n" +
			"\n" +
			"New Signals ({{newSignalsCount}})\n" +
			"{{signalsList}}\n" +
			"\n" +
			"New Google Searches ({{newSearchesCount}})\n" +
			"{{searchesList}}\n" +
			"\n" +
			"New Videos ({{newVideosCount}})\n" +
			"{{videosList}}\n" +
			"\n" +
			"Quick Build Spark\n" +
			"{{sparkLine}}",
	}
}

// DefaultDocument is the fresh-install state, also the fail-open fallback
// for a corrupt store file.
func DefaultDocument() Document {
	tpl := DefaultTemplate()
	return Document{
		Watchlist: Watchlist{
			Topics:   []string{"ai", "cybersecurity"},
			Channels: []WatchChannel{},
		},
		Templates:        []Template{tpl},
		ActiveTemplateID: tpl.ID,
		Seen: SeenState{
			Signals:  map[string]int64{},
			Searches: map[string]int64{},
			Videos:   map[string]int64{},
		},
		Settings: Settings{
			SendOnlyNewItems: true,
			CardsPerPage:     12,
		},
		RSSSources: DefaultPresetPack(),
		Copilot: CopilotState{
			RequireConfirmation: true,
			PendingActions:      []Action{},
			History:             []ChatTurn{},
		},
		Briefing: BriefingState{
			Schedule: BriefingSchedule{Time: "08:30", Timezone: "UTC"},
			Delivery: BriefingDelivery{InApp: true, Telegram: true},
			Behavior: BriefingBehavior{
				AskBeforeGenerateWhenTelegramPaused: true,
				DefaultContinueWhenPaused:           true,
			},
			History: []BriefingRecord{},
		},
	}
}
