package discord

import "github.com/bwmarrin/discordgo"

// DiscordClient defines the subset of the Discord REST API the bridge uses.
// The concrete *discordgo.Session type satisfies this interface.
type DiscordClient interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
}

// Compile-time assertion: *discordgo.Session satisfies DiscordClient.
var _ DiscordClient = (*discordgo.Session)(nil)

// noMentions disables every mention type. An explicit empty parse list is
// required; a null list falls back to Discord's default parsing.
func noMentions() *discordgo.MessageAllowedMentions {
	return &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}}
}
