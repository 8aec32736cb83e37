// Package mumble describes the administrative interface of a Murmur voice
// server and provides an HTTP client for a Murmur admin REST gateway.
package mumble

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RootChannelID is the ID of the root channel on every Murmur server.
const RootChannelID = 0

// User is a connected client as reported by a single roster query.
type User struct {
	Session int    `json:"session"`
	Name    string `json:"name"`
}

// Channel is a node of the server's channel tree as reported by a single
// channel query. Channels are never cached; the tree may change between calls.
type Channel struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	ParentID    int    `json:"parent"`
	Description string `json:"description"`
	Temporary   bool   `json:"temporary"`
	Links       []int  `json:"links"`
	Position    int    `json:"position"`
}

// ServerFacade is the subset of the voice server's administrative RPC
// interface used by the bridge. Implementations are synchronous; callers
// bound each call through ctx.
type ServerFacade interface {
	Users(ctx context.Context) ([]User, error)
	Channels(ctx context.Context) ([]Channel, error)
	SendToChannel(ctx context.Context, channelID int, tree bool, text string) error
	SendToUser(ctx context.Context, session int, text string) error
	Uptime(ctx context.Context) (time.Duration, error)
	IsRunning(ctx context.Context) (bool, error)
}

// Compile-time assertion: *Client satisfies ServerFacade.
var _ ServerFacade = (*Client)(nil)

// TransportError reports a failure to reach or talk to the voice server.
// The bridge never retries these itself.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("mumble: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err wraps a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
