package notify

import (
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	slackapi "github.com/slack-go/slack"
)

type mockSlackClient struct {
	channels []string
	texts    []string
	err      error
}

func (m *mockSlackClient) PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error) {
	m.channels = append(m.channels, channelID)
	m.texts = append(m.texts, fmt.Sprintf("%d options", len(options)))
	return "", "", m.err
}

type mockDiscordClient struct {
	channels []string
	contents []string
	err      error
}

func (m *mockDiscordClient) ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.channels = append(m.channels, channelID)
	m.contents = append(m.contents, content)
	return nil, m.err
}

func TestFormatEvent(t *testing.T) {
	got := formatEvent(Event{
		Recipients: []string{"bob", "carol"},
		Text:       "Task has been assigned to you",
		DeepLink:   "/user/task/my/task-abc12/detail",
	})
	want := "Task has been assigned to you (to: bob, carol) /user/task/my/task-abc12/detail"
	if got != want {
		t.Errorf("formatEvent = %q, want %q", got, want)
	}
}

func TestFormatEvent_Minimal(t *testing.T) {
	got := formatEvent(Event{Text: "Recurrence run finished"})
	if got != "Recurrence run finished" {
		t.Errorf("formatEvent = %q", got)
	}
}

func TestNewSlack_Validation(t *testing.T) {
	if _, err := NewSlack(SlackOpts{ChannelID: "C1"}); err == nil {
		t.Error("expected error without token or client")
	}
	if _, err := NewSlack(SlackOpts{BotToken: "xoxb-x"}); err == nil {
		t.Error("expected error without channel")
	}
}

func TestSlackSink_Notify(t *testing.T) {
	mock := &mockSlackClient{}
	sink, err := NewSlack(SlackOpts{ChannelID: "C0TASKS", Client: mock})
	if err != nil {
		t.Fatalf("NewSlack: %v", err)
	}

	sink.Notify(Event{Recipients: []string{"bob"}, Text: "Scored"})
	sink.NotifyOrganization(Event{Text: "Forwarded to HR"})

	if len(mock.channels) != 2 {
		t.Fatalf("got %d posts, want 2", len(mock.channels))
	}
	if mock.channels[0] != "C0TASKS" {
		t.Errorf("channel = %q, want %q", mock.channels[0], "C0TASKS")
	}
}

func TestSlackSink_DeliveryFailureDoesNotPanic(t *testing.T) {
	mock := &mockSlackClient{err: fmt.Errorf("rate limited")}
	sink, err := NewSlack(SlackOpts{ChannelID: "C0TASKS", Client: mock})
	if err != nil {
		t.Fatalf("NewSlack: %v", err)
	}
	sink.Notify(Event{Text: "best effort"})
}

func TestNewDiscord_Validation(t *testing.T) {
	if _, err := NewDiscord(DiscordOpts{ChannelID: "123"}); err == nil {
		t.Error("expected error without token or client")
	}
	if _, err := NewDiscord(DiscordOpts{Token: "abc"}); err == nil {
		t.Error("expected error without channel")
	}
}

func TestDiscordSink_Notify(t *testing.T) {
	mock := &mockDiscordClient{}
	sink, err := NewDiscord(DiscordOpts{ChannelID: "123456", Client: mock})
	if err != nil {
		t.Fatalf("NewDiscord: %v", err)
	}

	sink.Notify(Event{Recipients: []string{"bob"}, Text: "Scored"})
	sink.NotifyOrganization(Event{Text: "Forwarded to HR"})

	if len(mock.contents) != 2 {
		t.Fatalf("got %d posts, want 2", len(mock.contents))
	}
	if !strings.Contains(mock.contents[0], "Scored") {
		t.Errorf("content = %q, want to contain %q", mock.contents[0], "Scored")
	}
	if !strings.HasPrefix(mock.contents[1], "[org] ") {
		t.Errorf("org content = %q, want [org] prefix", mock.contents[1])
	}
}

func TestMulti_FansOut(t *testing.T) {
	slackMock := &mockSlackClient{}
	discordMock := &mockDiscordClient{}

	slackSink, err := NewSlack(SlackOpts{ChannelID: "C1", Client: slackMock})
	if err != nil {
		t.Fatalf("NewSlack: %v", err)
	}
	discordSink, err := NewDiscord(DiscordOpts{ChannelID: "123", Client: discordMock})
	if err != nil {
		t.Fatalf("NewDiscord: %v", err)
	}

	m := Multi{slackSink, discordSink}
	m.Notify(Event{Text: "fan out"})

	if len(slackMock.channels) != 1 || len(discordMock.channels) != 1 {
		t.Errorf("slack posts = %d, discord posts = %d, want 1 each",
			len(slackMock.channels), len(discordMock.channels))
	}
}
