package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/harunnryd/trendsniffer/internal/textutil"
)

const challengesSource = "Stack Overflow (Stack Exchange API)"

const (
	questionWindow   = 7 * 24 * time.Hour
	questionPageSize = 80
	questionLimit    = 50
	refsPerBucket    = 5
)

type categoryRule struct {
	key          string
	pattern      *regexp.Regexp
	solution     string
	monetization string
}

var categoryRules = []categoryRule{
	{
		key:          "AI Integration Cost",
		pattern:      regexp.MustCompile(`(?i)(openai|llm|prompt|token|embedding|rag|hallucinat)`),
		solution:     "Build a guardrail + spend dashboard for AI features with evaluation tests and prompt versioning.",
		monetization: "Tiered SaaS by monthly token volume and number of protected model endpoints.",
	},
	{
		key:          "Authentication Friction",
		pattern:      regexp.MustCompile(`(?i)(auth|oauth|jwt|signin|login|session|passport)`),
		solution:     "Build an auth troubleshooting assistant that validates provider config and callback flow in real time.",
		monetization: "Usage-based API for automated auth diagnostics plus team seats for shared debugging.",
	},
	{
		key:          "Deployment & DevOps",
		pattern:      regexp.MustCompile(`(?i)(docker|kubernetes|k8s|deploy|aws|gcp|azure|terraform|ci/cd|pipeline)`),
		solution:     "Build a deployment readiness scanner that checks infra manifests and predicts failure points before release.",
		monetization: "Per-repository subscriptions with premium policy packs for regulated environments.",
	},
	{
		key:          "Frontend Reliability",
		pattern:      regexp.MustCompile(`(?i)(react|next\.js|vue|hydration|render|typescript|state)`),
		solution:     "Build a UI regression radar that catches hydration errors, state drifts, and broken interactions pre-merge.",
		monetization: "Seat-based pricing for frontend teams with CI minutes bundled by plan.",
	},
	{
		key:          "Data & Performance",
		pattern:      regexp.MustCompile(`(?i)(sql|database|query|latency|performance|memory|cache|redis)`),
		solution:     "Build a query optimization copilot that auto-detects bottlenecks from logs and proposes indexed fixes.",
		monetization: "Charge by connected data sources and daily analyzed query volume.",
	},
}

var fallbackRule = categoryRule{
	key:          "Debugging Complexity",
	solution:     "Build a cross-stack incident assistant that reads logs, stack traces, and recent deploys to suggest fixes.",
	monetization: "Per-incident pricing with enterprise annual contracts for unlimited incident automation.",
}

func classifyChallenge(title string) categoryRule {
	for _, rule := range categoryRules {
		if rule.pattern.MatchString(title) {
			return rule
		}
	}
	return fallbackRule
}

type stackQuestion struct {
	Title        string   `json:"title"`
	Link         string   `json:"link"`
	Score        int      `json:"score"`
	Tags         []string `json:"tags"`
	CreationDate int64    `json:"creation_date"`
}

type stackResponse struct {
	Items []stackQuestion `json:"items"`
}

// Challenges groups recent high-vote questions into recurring-pain
// buckets, ranked by the summed score of each bucket's references.
func (f *Fetcher) Challenges(ctx context.Context) Challenges {
	questions, err := f.fetchQuestions(ctx)
	if err != nil {
		slog.Warn("Challenges fetch failed", "error", err)
		return Challenges{Opportunities: []Opportunity{}, Source: challengesSource}
	}

	buckets := map[string]*Opportunity{}
	order := []string{}
	for _, q := range questions {
		rule := classifyChallenge(q.Title)
		opp, ok := buckets[rule.key]
		if !ok {
			opp = &Opportunity{
				Category:          rule.key,
				Challenge:         fmt.Sprintf("Developers are repeatedly blocked by %s issues.", strings.ToLower(rule.key)),
				SuggestedSolution: rule.solution,
				Monetization:      rule.monetization,
			}
			buckets[rule.key] = opp
			order = append(order, rule.key)
		}
		if len(opp.References) < refsPerBucket {
			opp.References = append(opp.References, QuestionRef{
				Title: q.Title,
				Link:  q.Link,
				Score: q.Score,
				Tags:  q.Tags,
			})
		}
	}

	opportunities := make([]Opportunity, 0, len(order))
	for _, key := range order {
		opportunities = append(opportunities, *buckets[key])
	}
	sort.SliceStable(opportunities, func(i, j int) bool {
		return refScore(opportunities[i]) > refScore(opportunities[j])
	})

	return Challenges{
		Opportunities:     opportunities,
		Source:            challengesSource,
		QuestionsAnalyzed: len(questions),
	}
}

// SparkLine turns the top opportunity into a one-line build idea.
func SparkLine(c Challenges) string {
	if len(c.Opportunities) == 0 {
		return "No challenge spark available yet. Pull fresh data and try again."
	}
	top := c.Opportunities[0]
	return top.Category + ": " + top.SuggestedSolution
}

func refScore(o Opportunity) int {
	sum := 0
	for _, ref := range o.References {
		sum += ref.Score
	}
	return sum
}

func (f *Fetcher) fetchQuestions(ctx context.Context) ([]stackQuestion, error) {
	since := time.Now().Add(-questionWindow).Unix()
	params := url.Values{
		"order":    {"desc"},
		"sort":     {"votes"},
		"site":     {"stackoverflow"},
		"pagesize": {fmt.Sprint(questionPageSize)},
		"fromdate": {fmt.Sprint(since)},
	}

	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.opts.StackExchangeURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("questions request returned %d", resp.StatusCode)
	}

	var body stackResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	out := make([]stackQuestion, 0, questionLimit)
	for _, q := range body.Items {
		if q.Title == "" || q.Link == "" {
			continue
		}
		q.Title = textutil.StripTags(q.Title)
		out = append(out, q)
		if len(out) >= questionLimit {
			break
		}
	}
	return out, nil
}
