package feed

import "time"

// Signal is a single RSS/Atom item from a configured source.
type Signal struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Summary     string    `json:"summary"`
	Topic       string    `json:"topic"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"publishedAt"`
}

// RelatedQuery is a secondary headline attached to a trending search.
type RelatedQuery struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Source string `json:"source"`
}

// Search is a trending search query.
type Search struct {
	ID            string         `json:"id"`
	Query         string         `json:"query"`
	ApproxTraffic string         `json:"approxTraffic"`
	Link          string         `json:"link"`
	PublishedAt   time.Time      `json:"publishedAt"`
	Related       []RelatedQuery `json:"related"`
}

// Video is an upload from one of the tracked channels.
type Video struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Channel     string    `json:"channel"`
	ChannelID   string    `json:"channelId"`
	Link        string    `json:"link"`
	PublishedAt time.Time `json:"publishedAt"`
}

// QuestionRef is one Q&A thread cited by a challenge bucket.
type QuestionRef struct {
	Title string   `json:"title"`
	Link  string   `json:"link"`
	Score int      `json:"score"`
	Tags  []string `json:"tags,omitempty"`
}

// Opportunity is a recurring-pain bucket derived from recent questions.
type Opportunity struct {
	Category          string        `json:"category"`
	Challenge         string        `json:"challenge"`
	SuggestedSolution string        `json:"suggestedSolution"`
	Monetization      string        `json:"monetization"`
	References        []QuestionRef `json:"references"`
}

// Challenges is the Q&A panel: ranked opportunities plus provenance.
type Challenges struct {
	Opportunities     []Opportunity `json:"opportunities"`
	Source            string        `json:"source"`
	QuestionsAnalyzed int           `json:"questionsAnalyzed"`
}

// SourceStat counts how many signals each topic contributed.
type SourceStat struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Snapshot is the result of one fetch cycle across every collaborator.
// Failed collaborators contribute empty slices, never errors.
type Snapshot struct {
	FetchedAt  time.Time    `json:"fetchedAt"`
	Signals    []Signal     `json:"signals"`
	Searches   []Search     `json:"searches"`
	Videos     []Video      `json:"videos"`
	Challenges Challenges   `json:"challenges"`
	SourceMix  []SourceStat `json:"sourceMix"`
}

// ChannelRef identifies a video channel feed to poll.
type ChannelRef struct {
	Name string
	ID   string
}

// BaseVideoChannels are polled on every cycle, before watchlist channels
// with ids are merged in.
func BaseVideoChannels() []ChannelRef {
	return []ChannelRef{
		{Name: "OpenAI", ID: "UCXZCJLdBC09xxGZ6gcdrc6A"},
		{Name: "Google Developers", ID: "UC_x5XG1OV2P6uZZ5FSM9Ttw"},
		{Name: "Fireship", ID: "UCsBjURrPoezykLs9EqgamOA"},
		{Name: "freeCodeCamp", ID: "UC8butISFwT-Wl7EV0hUK0BQ"},
	}
}
