package tools

import (
	"fmt"

	"github.com/jamesprial/mumblebot/internal/safety"
)

// ChannelResolver maps a chat channel reference (name, "#name" or ID) to a
// guild text channel. *discord.ChannelCache satisfies it.
type ChannelResolver interface {
	ChannelID(channel string) (string, error)
	ChannelName(id string) string
}

// ChannelDeniedError reports a channel rejected by the safety filter.
type ChannelDeniedError struct {
	Channel string
}

func (e *ChannelDeniedError) Error() string {
	return fmt.Sprintf("access to channel %q is not allowed", e.Channel)
}

// ResolveAndFilterChannel resolves channel to a known guild text channel and
// checks the filter against the channel's name, so an ID cannot slip past a
// name pattern. IDs the resolver does not know are rejected.
func ResolveAndFilterChannel(r ChannelResolver, filter *safety.Filter, channel string) (id, name string, err error) {
	id, err = r.ChannelID(channel)
	if err != nil {
		return "", "", err
	}
	name = r.ChannelName(id)
	if name == id {
		return "", "", fmt.Errorf("channel %q is not a text channel in this guild", channel)
	}
	if !filter.IsAllowed(name) {
		return "", "", &ChannelDeniedError{Channel: name}
	}
	return id, name, nil
}
