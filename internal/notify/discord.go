package notify

import (
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
)

// discordClient abstracts the Discord API methods we use, enabling test mocks.
type discordClient interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordSink posts notifications to a Discord channel.
type DiscordSink struct {
	client    discordClient
	channelID string
}

// DiscordOpts holds parameters for creating a DiscordSink.
type DiscordOpts struct {
	Token     string // bot token
	ChannelID string
	// For testing: inject a mock client instead of a real Discord session.
	Client discordClient
}

// NewDiscord creates a Discord notification sink.
func NewDiscord(opts DiscordOpts) (*DiscordSink, error) {
	if opts.Client == nil && opts.Token == "" {
		return nil, fmt.Errorf("notify: discord token is required")
	}
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("notify: discord channel is required")
	}
	client := opts.Client
	if client == nil {
		session, err := discordgo.New("Bot " + opts.Token)
		if err != nil {
			return nil, fmt.Errorf("notify: discord session: %w", err)
		}
		client = session
	}
	return &DiscordSink{client: client, channelID: opts.ChannelID}, nil
}

func (d *DiscordSink) Notify(ev Event) {
	d.post(formatEvent(ev))
}

func (d *DiscordSink) NotifyOrganization(ev Event) {
	d.post("[org] " + formatEvent(ev))
}

func (d *DiscordSink) post(text string) {
	if _, err := d.client.ChannelMessageSend(d.channelID, text); err != nil {
		log.Printf("notify: discord post failed: %v", err)
	}
}
