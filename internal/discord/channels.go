package discord

import (
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/jamesprial/mumblebot/internal/tools"
)

var _ tools.ChannelResolver = (*ChannelCache)(nil)

// ChannelCache maintains an in-memory bidirectional cache of text channel
// IDs and names for a single guild. Name lookups ignore case. It is safe for
// concurrent use.
type ChannelCache struct {
	client  DiscordClient
	guildID string
	mu      sync.RWMutex
	byID    map[string]string // channel ID -> name
	byName  map[string]string // lowercased channel name -> ID
	ids     []string          // text channel IDs in guild order
}

// NewChannelCache constructs a ChannelCache for the given guild. The cache
// is empty until Refresh is called.
func NewChannelCache(client DiscordClient, guildID string) *ChannelCache {
	return &ChannelCache{
		client:  client,
		guildID: guildID,
		byID:    make(map[string]string),
		byName:  make(map[string]string),
	}
}

// GuildID returns the guild ID this cache was constructed with.
func (c *ChannelCache) GuildID() string {
	return c.guildID
}

// ChannelName returns the name for the channel with the given ID. Unknown
// IDs are returned unchanged so callers always get a printable value.
func (c *ChannelCache) ChannelName(id string) string {
	c.mu.RLock()
	name, ok := c.byID[id]
	c.mu.RUnlock()
	if !ok {
		return id
	}
	return name
}

// ChannelID resolves a channel name or ID. A leading "#" is stripped and
// all-digit strings are treated as IDs without consulting the cache.
func (c *ChannelCache) ChannelID(channel string) (string, error) {
	channel = strings.TrimPrefix(channel, "#")
	if isSnowflake(channel) {
		return channel, nil
	}

	c.mu.RLock()
	id, ok := c.byName[strings.ToLower(channel)]
	c.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("discord: channel %q not found", channel)
	}
	return id, nil
}

// IDs returns every cached text channel ID.
func (c *ChannelCache) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.ids...)
}

// Refresh fetches the guild's channel list and replaces the cache. Only text
// channels are indexed. The write lock is held only for the swap.
func (c *ChannelCache) Refresh() error {
	channels, err := c.client.GuildChannels(c.guildID)
	if err != nil {
		return fmt.Errorf("discord: failed to fetch guild channels: %w", err)
	}

	newByID := make(map[string]string, len(channels))
	newByName := make(map[string]string, len(channels))
	newIDs := make([]string, 0, len(channels))

	for _, ch := range channels {
		if ch.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		newByID[ch.ID] = ch.Name
		// First channel wins on a case-insensitive name clash.
		if _, dup := newByName[strings.ToLower(ch.Name)]; !dup {
			newByName[strings.ToLower(ch.Name)] = ch.ID
		}
		newIDs = append(newIDs, ch.ID)
	}

	c.mu.Lock()
	c.byID = newByID
	c.byName = newByName
	c.ids = newIDs
	c.mu.Unlock()

	return nil
}

func isSnowflake(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
