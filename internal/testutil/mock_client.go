package testutil

import (
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/jamesprial/mumblebot/internal/discord"
)

// Compile-time assertion: *MockDiscordClient satisfies discord.DiscordClient.
var _ discord.DiscordClient = (*MockDiscordClient)(nil)

// Standard test channels returned by the mocks.
const (
	GeneralChannelID = "1001"
	RandomChannelID  = "1002"
	VoiceChannelID   = "1003"
)

// MockChannels returns the standard guild channel list: two text channels
// and one voice channel.
func MockChannels() []*discordgo.Channel {
	return []*discordgo.Channel{
		{ID: GeneralChannelID, Name: "general", Type: discordgo.ChannelTypeGuildText},
		{ID: RandomChannelID, Name: "Random", Type: discordgo.ChannelTypeGuildText},
		{ID: VoiceChannelID, Name: "Lounge", Type: discordgo.ChannelTypeGuildVoice},
	}
}

// SentMessage records one ChannelMessageSendComplex call.
type SentMessage struct {
	ChannelID string
	Data      *discordgo.MessageSend
}

// MockDiscordClient implements discord.DiscordClient using configurable
// function fields. When a field is nil the method records the call and
// returns a default matching NewMockDiscordSession's HTTP handlers.
type MockDiscordClient struct {
	ChannelMessageSendComplexFunc func(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	GuildChannelsFunc             func(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)

	mu   sync.Mutex
	sent []SentMessage
}

func (m *MockDiscordClient) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	m.sent = append(m.sent, SentMessage{ChannelID: channelID, Data: data})
	m.mu.Unlock()

	if m.ChannelMessageSendComplexFunc != nil {
		return m.ChannelMessageSendComplexFunc(channelID, data, options...)
	}
	return &discordgo.Message{
		ID:        "mock-msg-001",
		ChannelID: channelID,
		Content:   data.Content,
	}, nil
}

func (m *MockDiscordClient) GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error) {
	if m.GuildChannelsFunc != nil {
		return m.GuildChannelsFunc(guildID, options...)
	}
	return MockChannels(), nil
}

// Sent returns every message passed to ChannelMessageSendComplex, in order.
func (m *MockDiscordClient) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMessage(nil), m.sent...)
}
