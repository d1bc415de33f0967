package delivery

import (
	"context"
	"log/slog"

	"github.com/slack-go/slack"

	"github.com/harunnryd/trendsniffer/internal/errors"
)

// Slack posts digests to a channel, a secondary delivery target next to
// Telegram.
type Slack struct {
	client  *slack.Client
	channel string
}

func NewSlack(token, channel string) *Slack {
	if token == "" || channel == "" {
		return &Slack{}
	}
	slog.Info("Slack adapter ready", "channel", channel)
	return &Slack{client: slack.New(token), channel: channel}
}

func (s *Slack) Name() string { return "slack" }

func (s *Slack) Configured() bool { return s.client != nil }

func (s *Slack) Send(ctx context.Context, text string) error {
	if !s.Configured() {
		return errors.Collaborator(nil, "slack is not configured")
	}
	_, _, err := s.client.PostMessageContext(ctx, s.channel, slack.MsgOptionText(text, false))
	if err != nil {
		return errors.Collaborator(err, "slack post failed")
	}
	return nil
}
