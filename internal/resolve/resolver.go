// Package resolve turns a free-form destination string into a voice server
// channel or connected user.
package resolve

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jamesprial/mumblebot/internal/mumble"
	"github.com/samber/lo"
)

// DefaultIncludeTree is used when a caller does not say whether a channel
// send should reach subchannels.
const DefaultIncludeTree = true

// Kind tags the variant held by a Destination.
type Kind int

const (
	KindUnresolved Kind = iota
	KindChannel
	KindUser
)

func (k Kind) String() string {
	switch k {
	case KindChannel:
		return "channel"
	case KindUser:
		return "user"
	default:
		return "unresolved"
	}
}

// Destination is the result of resolving one destination string. Only the
// fields relevant to Kind are set; Raw always holds the input.
type Destination struct {
	Kind        Kind
	ChannelID   int
	Session     int
	Name        string
	IncludeTree bool
	Raw         string
}

// IsRoot reports whether d addresses the root channel because no
// destination was given.
func (d Destination) IsRoot() bool {
	return d.Kind == KindChannel && d.ChannelID == mumble.RootChannelID && d.Raw == ""
}

// Resolver resolves destinations against fresh channel and roster queries.
// It holds no state between calls.
type Resolver struct {
	facade mumble.ServerFacade
}

// New constructs a Resolver backed by facade.
func New(facade mumble.ServerFacade) *Resolver {
	return &Resolver{facade: facade}
}

// Resolve applies the lookup policy in order:
//
//  1. An empty text addresses the root channel; no query is made.
//  2. A channel whose ID (decimal) equals text or whose name equals text
//     ignoring case. The first match in fetch order wins.
//  3. A connected user whose name equals text ignoring case. The first
//     match in fetch order wins.
//  4. Otherwise the destination is unresolved.
//
// Query failures are returned as errors, never as an unresolved result.
func (r *Resolver) Resolve(ctx context.Context, text string, includeTree bool) (Destination, error) {
	if text == "" {
		return Destination{Kind: KindChannel, ChannelID: mumble.RootChannelID, IncludeTree: includeTree}, nil
	}

	channels, err := r.facade.Channels(ctx)
	if err != nil {
		return Destination{}, fmt.Errorf("resolve: fetch channels: %w", err)
	}
	if ch, ok := lo.Find(channels, func(c mumble.Channel) bool {
		return strconv.Itoa(c.ID) == text || strings.EqualFold(c.Name, text)
	}); ok {
		return Destination{Kind: KindChannel, ChannelID: ch.ID, Name: ch.Name, IncludeTree: includeTree, Raw: text}, nil
	}

	users, err := r.facade.Users(ctx)
	if err != nil {
		return Destination{}, fmt.Errorf("resolve: fetch users: %w", err)
	}
	if u, ok := lo.Find(users, func(u mumble.User) bool {
		return strings.EqualFold(u.Name, text)
	}); ok {
		return Destination{Kind: KindUser, Session: u.Session, Name: u.Name, Raw: text}, nil
	}

	return Destination{Kind: KindUnresolved, Raw: text}, nil
}
