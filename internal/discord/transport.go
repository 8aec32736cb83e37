package discord

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jamesprial/mumblebot/internal/dispatch"
	"github.com/jamesprial/mumblebot/internal/queue"
)

var _ dispatch.Broadcaster = (*Transport)(nil)

const defaultPollTimeout = 30 * time.Second

// Transport posts broadcast text to guild channels. Broadcast only enqueues;
// Run performs the Discord calls so a slow API never stalls the caller.
type Transport struct {
	client      DiscordClient
	channels    *ChannelCache
	queue       *queue.Queue
	pollTimeout time.Duration
	logger      *slog.Logger
}

// NewTransport constructs a Transport. A nil logger defaults to
// slog.Default().
func NewTransport(client DiscordClient, channels *ChannelCache, q *queue.Queue, logger *slog.Logger) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{
		client:      client,
		channels:    channels,
		queue:       q,
		pollTimeout: defaultPollTimeout,
		logger:      logger,
	}
}

// Broadcast enqueues text once per target channel. An empty target list
// means every cached text channel. Unknown targets are logged and skipped.
func (t *Transport) Broadcast(targets []string, text string) {
	ids := make([]string, 0, len(targets))
	if len(targets) == 0 {
		ids = t.channels.IDs()
	}
	for _, target := range targets {
		id, err := t.channels.ChannelID(target)
		if err != nil {
			t.logger.Warn("announce target not found", "target", target, "error", err)
			continue
		}
		ids = append(ids, id)
	}

	now := time.Now()
	for _, id := range ids {
		t.queue.Enqueue(queue.OutboundMessage{
			ChannelID:   id,
			ChannelName: t.channels.ChannelName(id),
			Content:     text,
			Enqueued:    now,
		})
	}
}

// Run delivers queued messages until ctx is cancelled. Send failures are
// logged and the message is not retried.
func (t *Transport) Run(ctx context.Context) {
	for ctx.Err() == nil {
		for _, msg := range t.queue.Poll(ctx, t.pollTimeout, 0) {
			t.deliver(msg)
		}
	}
}

func (t *Transport) deliver(msg queue.OutboundMessage) {
	_, err := t.client.ChannelMessageSendComplex(msg.ChannelID, &discordgo.MessageSend{
		Content:         msg.Content,
		AllowedMentions: noMentions(),
	})
	if err != nil {
		t.logger.Warn("message delivery failed", "message", msg.Formatted(), "error", err)
		return
	}
	t.logger.Debug("message delivered", "message", msg.Formatted())
}
