package notify

import (
	"fmt"
	"log"
	"strings"

	slackapi "github.com/slack-go/slack"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// SlackSink posts notifications to a Slack channel.
type SlackSink struct {
	client    slackClient
	channelID string
}

// SlackOpts holds parameters for creating a SlackSink.
type SlackOpts struct {
	BotToken  string // xoxb-... Slack bot token
	ChannelID string
	// For testing: inject a mock client instead of the real Slack API.
	Client slackClient
}

// NewSlack creates a Slack notification sink.
func NewSlack(opts SlackOpts) (*SlackSink, error) {
	if opts.Client == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("notify: slack bot token is required")
	}
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("notify: slack channel is required")
	}
	client := opts.Client
	if client == nil {
		client = slackapi.New(opts.BotToken)
	}
	return &SlackSink{client: client, channelID: opts.ChannelID}, nil
}

func (s *SlackSink) Notify(ev Event) {
	s.post(formatEvent(ev))
}

func (s *SlackSink) NotifyOrganization(ev Event) {
	s.post("[org] " + formatEvent(ev))
}

func (s *SlackSink) post(text string) {
	_, _, err := s.client.PostMessage(s.channelID, slackapi.MsgOptionText(text, false))
	if err != nil {
		log.Printf("notify: slack post failed: %v", err)
	}
}

// formatEvent renders an event as a single chat line.
func formatEvent(ev Event) string {
	var b strings.Builder
	b.WriteString(ev.Text)
	if len(ev.Recipients) > 0 {
		b.WriteString(" (to: ")
		b.WriteString(strings.Join(ev.Recipients, ", "))
		b.WriteString(")")
	}
	if ev.DeepLink != "" {
		b.WriteString(" ")
		b.WriteString(ev.DeepLink)
	}
	return b.String()
}
