// Package discord is the chat side of the bridge: it caches guild text
// channels, posts announcements, and turns guild messages into commands.
package discord

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jamesprial/mumblebot/internal/command"
	"github.com/jamesprial/mumblebot/internal/safety"
)

const defaultCommandTimeout = 30 * time.Second

// CommandHandler runs chat commands. *command.Router satisfies it.
type CommandHandler interface {
	Handle(ctx context.Context, inv command.Invocation) (reply string, handled bool)
}

var _ CommandHandler = (*command.Router)(nil)

// Session wraps a discordgo.Session, keeps the channel cache fresh, and
// routes guild messages from allowed channels to the command handler.
type Session struct {
	dg       *discordgo.Session
	client   DiscordClient
	channels *ChannelCache
	commands CommandHandler
	// filter restricts which channels may issue commands. Nil allows all.
	filter  *safety.Filter
	timeout time.Duration
	logger  *slog.Logger

	readyOnce sync.Once
	ready     chan struct{}
}

// NewFromSession wraps an existing *discordgo.Session, registering event
// handlers and configuring the required gateway intents. The guild ID is
// read from the channel cache. A nil filter allows all channels; a nil
// logger defaults to slog.Default().
//
// Intents enabled:
//   - IntentGuilds
//   - IntentGuildMessages
//   - IntentMessageContent
func NewFromSession(
	dg *discordgo.Session,
	channels *ChannelCache,
	commands CommandHandler,
	filter *safety.Filter,
	logger *slog.Logger,
) *Session {
	s := newSession(dg, channels, commands, filter, logger)

	dg.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMessages |
		discordgo.IntentMessageContent

	dg.AddHandler(s.onReady)
	dg.AddHandler(s.onChannelCreate)
	dg.AddHandler(s.onChannelDelete)
	dg.AddHandler(s.onMessageCreate)

	return s
}

func newSession(
	client DiscordClient,
	channels *ChannelCache,
	commands CommandHandler,
	filter *safety.Filter,
	logger *slog.Logger,
) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		client:   client,
		channels: channels,
		commands: commands,
		filter:   filter,
		timeout:  defaultCommandTimeout,
		logger:   logger,
		ready:    make(chan struct{}),
	}
	if dg, ok := client.(*discordgo.Session); ok {
		s.dg = dg
	}
	return s
}

// Open establishes the WebSocket connection to the Discord gateway.
func (s *Session) Open() error {
	return s.dg.Open()
}

// Close gracefully closes the WebSocket connection to the Discord gateway.
// It is safe to call Close multiple times.
func (s *Session) Close() error {
	return s.dg.Close()
}

// Ready is closed once the first gateway Ready event has been handled and
// the channel cache refresh attempted.
func (s *Session) Ready() <-chan struct{} {
	return s.ready
}

// onReady logs the bot's identity and fills the channel cache.
func (s *Session) onReady(_ *discordgo.Session, event *discordgo.Ready) {
	s.logger.Info("discord connected", "username", event.User.Username)
	s.refresh()
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *Session) onChannelCreate(_ *discordgo.Session, event *discordgo.ChannelCreate) {
	if event.GuildID == s.channels.GuildID() {
		s.refresh()
	}
}

func (s *Session) onChannelDelete(_ *discordgo.Session, event *discordgo.ChannelDelete) {
	if event.GuildID == s.channels.GuildID() {
		s.refresh()
	}
}

func (s *Session) refresh() {
	if err := s.channels.Refresh(); err != nil {
		s.logger.Warn("channel cache refresh failed", "error", err)
	}
}

// onMessageCreate ignores bots, other guilds, and filtered channels, then
// hands the message to the command handler and replies with its output.
func (s *Session) onMessageCreate(_ *discordgo.Session, event *discordgo.MessageCreate) {
	if event.Author == nil || event.Author.Bot {
		return
	}
	if event.GuildID != s.channels.GuildID() {
		return
	}

	channelName := s.channels.ChannelName(event.ChannelID)
	if !s.filter.IsAllowed(channelName) {
		s.logger.Debug("message filtered by channel deny", "channel", channelName, "author", event.Author.Username)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	reply, handled := s.commands.Handle(ctx, command.Invocation{
		Author:  event.Author.Username,
		Channel: "#" + channelName,
		Content: event.Content,
	})
	if !handled {
		return
	}

	_, err := s.client.ChannelMessageSendComplex(event.ChannelID, &discordgo.MessageSend{
		Content:         reply,
		Reference:       event.Reference(),
		AllowedMentions: noMentions(),
	})
	if err != nil {
		s.logger.Warn("command reply failed", "channel", channelName, "error", err)
		return
	}
	s.logger.Debug("command replied", "channel", channelName, "author", event.Author.Username)
}
