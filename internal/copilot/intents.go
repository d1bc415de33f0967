// Package copilot turns chat messages into action proposals with plain
// heuristics: keyword and pattern matching, no language model involved.
package copilot

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/shlex"

	"github.com/harunnryd/trendsniffer/internal/prefs"
)

// MaxProposalsPerMessage caps how many actions one chat message can spawn.
const MaxProposalsPerMessage = 3

// Intent is a parsed action candidate.
type Intent struct {
	Type    prefs.ActionType
	Summary string
	Payload json.RawMessage
}

var (
	urlPattern      = regexp.MustCompile(`https?://[^\s"'<>]+`)
	timePattern     = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)
	timezonePattern = regexp.MustCompile(`\b[A-Z][A-Za-z_]+/[A-Z][A-Za-z_]+(?:/[A-Z][A-Za-z_]+)?\b`)
)

// ParseIntents extracts at most MaxProposalsPerMessage intents from a chat
// message. Heuristics run in priority order; a message that matches
// nothing yields no intents and the reply explains the vocabulary.
func ParseIntents(message string) []Intent {
	var intents []Intent
	add := func(in Intent) bool {
		if len(intents) >= MaxProposalsPerMessage {
			return false
		}
		intents = append(intents, in)
		return true
	}

	lower := strings.ToLower(message)

	for _, rawURL := range urlPattern.FindAllString(message, MaxProposalsPerMessage) {
		rawURL = strings.TrimRight(rawURL, ".,;:)")
		if !prefs.ValidFeedURL(rawURL) {
			continue
		}
		name := quotedName(message)
		payload, _ := json.Marshal(map[string]string{"name": name, "url": rawURL})
		summary := "Add RSS source " + rawURL
		if name != "" {
			summary = fmt.Sprintf("Add RSS source %q (%s)", name, rawURL)
		}
		if !add(Intent{Type: prefs.ActionAddRSSSource, Summary: summary, Payload: payload}) {
			break
		}
	}

	if mentionsTelegram(lower) {
		if strings.Contains(lower, "pause") || strings.Contains(lower, "stop") || strings.Contains(lower, "mute") {
			payload, _ := json.Marshal(map[string]bool{"paused": true})
			add(Intent{Type: prefs.ActionSetTelegramPause, Summary: "Pause Telegram delivery", Payload: payload})
		} else if strings.Contains(lower, "resume") || strings.Contains(lower, "unpause") || strings.Contains(lower, "unmute") {
			payload, _ := json.Marshal(map[string]bool{"paused": false})
			add(Intent{Type: prefs.ActionSetTelegramPause, Summary: "Resume Telegram delivery", Payload: payload})
		}
	}

	if t, tz, ok := scheduleMention(message); ok {
		fields := map[string]string{"time": t}
		summary := "Move the briefing to " + t
		if tz != "" {
			fields["timezone"] = tz
			summary += " " + tz
		}
		payload, _ := json.Marshal(fields)
		add(Intent{Type: prefs.ActionUpdateBriefingSetting, Summary: summary, Payload: payload})
	}

	for _, pack := range prefs.PresetPacks() {
		if strings.Contains(lower, pack.Name) {
			payload, _ := json.Marshal(map[string]string{"pack": pack.Name})
			add(Intent{
				Type:    prefs.ActionApplyPresetPack,
				Summary: "Apply the " + pack.Name + " preset pack",
				Payload: payload,
			})
		}
	}

	if wantsBriefing(lower) {
		mode := "new"
		if strings.Contains(lower, "full") || strings.Contains(lower, "everything") {
			mode = "full"
		}
		payload, _ := json.Marshal(map[string]string{"mode": mode})
		add(Intent{
			Type:    prefs.ActionGenerateBriefing,
			Summary: "Generate a " + mode + " briefing now",
			Payload: payload,
		})
	}

	return intents
}

func mentionsTelegram(lower string) bool {
	return strings.Contains(lower, "telegram") ||
		strings.Contains(lower, "delivery") ||
		strings.Contains(lower, "notifications")
}

func wantsBriefing(lower string) bool {
	if !strings.Contains(lower, "briefing") && !strings.Contains(lower, "digest") {
		return false
	}
	for _, verb := range []string{"generate", "send", "run", "build", "give", "make"} {
		if strings.Contains(lower, verb) {
			return true
		}
	}
	return false
}

// quotedName pulls the first quoted token out of a message, e.g. the name
// in `add https://x.com/rss as "Example Feed"`. Tokenizing with shlex
// keeps multi-word quoted names intact.
func quotedName(message string) string {
	if !strings.ContainsAny(message, `"'`) {
		return ""
	}
	tokens, err := shlex.Split(message)
	if err != nil {
		return ""
	}
	for _, tok := range tokens {
		if strings.Contains(tok, " ") {
			return tok
		}
	}
	return ""
}

// scheduleMention finds an HH:mm time, plus an IANA zone name when one is
// written next to it, in a message that talks about the schedule.
func scheduleMention(message string) (string, string, bool) {
	lower := strings.ToLower(message)
	if !strings.Contains(lower, "briefing") && !strings.Contains(lower, "schedule") {
		return "", "", false
	}
	m := timePattern.FindStringSubmatch(message)
	if m == nil {
		return "", "", false
	}
	hhmm := m[0]
	if len(m[1]) == 1 {
		hhmm = "0" + hhmm
	}
	tz := ""
	if z := timezonePattern.FindString(message); z != "" && prefs.ValidTimezone(z) {
		tz = z
	}
	return hhmm, tz, true
}
