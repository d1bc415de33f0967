package copilot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/harunnryd/trendsniffer/internal/action"
	"github.com/harunnryd/trendsniffer/internal/errors"
	"github.com/harunnryd/trendsniffer/internal/prefs"
)

const helpReply = "I can add RSS sources (paste a feed URL, optionally with a name in quotes), " +
	"pause or resume Telegram delivery, move the briefing schedule (e.g. \"briefing at 07:30 Europe/Berlin\"), " +
	"apply preset packs, and generate a briefing on demand."

// Copilot handles chat turns: parse intents, propose actions and write
// both sides of the exchange into chat history.
type Copilot struct {
	store  *prefs.Store
	engine *action.Engine
}

func New(store *prefs.Store, engine *action.Engine) *Copilot {
	return &Copilot{store: store, engine: engine}
}

// Reply is the assistant's side of one chat exchange.
type Reply struct {
	Text    string         `json:"text"`
	Actions []prefs.Action `json:"actions"`
}

// Chat processes one user message. When confirmation is not required the
// proposed actions are executed immediately.
func (c *Copilot) Chat(ctx context.Context, message string) (Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{}, errors.Validation("message cannot be empty")
	}

	intents := ParseIntents(message)

	var (
		actions []prefs.Action
		failed  []string
	)
	for _, in := range intents {
		act, err := c.engine.Propose(in.Type, in.Summary, in.Payload, prefs.OriginCopilot)
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s (%v)", in.Summary, err))
			continue
		}
		actions = append(actions, act)
	}

	autoConfirm := !c.store.Snapshot().Copilot.RequireConfirmation
	if autoConfirm {
		for i, act := range actions {
			resolved, err := c.engine.Confirm(ctx, act.ID)
			if err != nil {
				slog.Warn("Auto-confirm failed", "action", act.ID, "error", err)
				continue
			}
			actions[i] = resolved
		}
	}

	reply := Reply{
		Text:    replyText(actions, failed, autoConfirm),
		Actions: actions,
	}

	actionIDs := make([]string, len(actions))
	for i, a := range actions {
		actionIDs[i] = a.ID
	}
	now := time.Now().UTC()
	_, err := c.store.Update(func(d *prefs.Document) error {
		turns := []prefs.ChatTurn{
			{
				ID:        prefs.NewID("turn"),
				Role:      "assistant",
				Text:      reply.Text,
				ActionIDs: actionIDs,
				CreatedAt: now,
			},
			{
				ID:        prefs.NewID("turn"),
				Role:      "user",
				Text:      message,
				CreatedAt: now,
			},
		}
		d.Copilot.History = append(turns, d.Copilot.History...)
		return nil
	})
	if err != nil {
		return Reply{}, err
	}
	return reply, nil
}

func replyText(actions []prefs.Action, failed []string, autoConfirm bool) string {
	if len(actions) == 0 && len(failed) == 0 {
		return helpReply
	}

	var b strings.Builder
	if len(actions) > 0 {
		if autoConfirm {
			b.WriteString("Done:\n")
		} else {
			b.WriteString("I queued these for your confirmation:\n")
		}
		for i, a := range actions {
			fmt.Fprintf(&b, "%d. %s", i+1, a.Summary)
			if autoConfirm {
				fmt.Fprintf(&b, " [%s]", a.Status)
			} else {
				fmt.Fprintf(&b, " (risk: %s)", a.Risk)
			}
			b.WriteByte('\n')
		}
	}
	if len(failed) > 0 {
		b.WriteString("I could not propose:\n")
		for _, f := range failed {
			b.WriteString("- " + f + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
