// Package dispatch routes outbound text to the voice server and presence
// announcements to the chat transport.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jamesprial/mumblebot/internal/mumble"
	"github.com/jamesprial/mumblebot/internal/presence"
	"github.com/jamesprial/mumblebot/internal/resolve"
	"github.com/samber/lo"
)

// Broadcaster is the chat transport. Broadcast is fire-and-forget; an empty
// channel list means every channel the transport can reach.
type Broadcaster interface {
	Broadcast(channels []string, text string)
}

// SendResult describes what a Send did, for reporting back to the user.
type SendResult struct {
	Kind        resolve.Kind
	Name        string
	Raw         string
	IncludeTree bool
	Root        bool
}

func (r SendResult) String() string {
	switch {
	case r.Kind == resolve.KindChannel && r.Root:
		return "Message sent to root channel"
	case r.Kind == resolve.KindChannel:
		msg := fmt.Sprintf("Message sent to mumble channel '%s'", r.Name)
		if r.IncludeTree {
			msg += " and subchannels"
		}
		return msg
	case r.Kind == resolve.KindUser:
		return fmt.Sprintf("Message sent to mumble user '%s'", r.Name)
	default:
		return fmt.Sprintf("Unknown channel or user '%s'", r.Raw)
	}
}

// Sent reports whether an outbound message was delivered to the server.
func (r SendResult) Sent() bool {
	return r.Kind != resolve.KindUnresolved
}

// Status is the voice server's running state.
type Status struct {
	Running bool
	Uptime  time.Duration
}

func (s Status) String() string {
	if s.Running {
		return "The server is online and running for " + FormatUptime(s.Uptime)
	}
	return "The server is offline and has been running for " + FormatUptime(s.Uptime)
}

// Dispatcher issues outbound messages and presence announcements.
type Dispatcher struct {
	facade    mumble.ServerFacade
	resolver  resolve.DestinationResolver
	transport Broadcaster
	targets   []string
	logger    *slog.Logger
}

// New constructs a Dispatcher. targets lists the chat channels presence
// announcements go to; nil means all of them. A nil logger defaults to
// slog.Default().
func New(
	facade mumble.ServerFacade,
	resolver resolve.DestinationResolver,
	transport Broadcaster,
	targets []string,
	logger *slog.Logger,
) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		facade:    facade,
		resolver:  resolver,
		transport: transport,
		targets:   append([]string(nil), targets...),
		logger:    logger,
	}
}

// Send resolves destination and delivers text with at most one send call.
// An empty destination addresses the root channel. Unresolved destinations
// are not errors: the result reports them and nothing is sent.
func (d *Dispatcher) Send(ctx context.Context, destination, text string, includeTree bool) (SendResult, error) {
	dest, err := d.resolver.Resolve(ctx, destination, includeTree)
	if err != nil {
		return SendResult{}, err
	}

	result := SendResult{Kind: dest.Kind, Name: dest.Name, Raw: dest.Raw, IncludeTree: dest.IncludeTree, Root: dest.IsRoot()}

	switch dest.Kind {
	case resolve.KindChannel:
		if err := d.facade.SendToChannel(ctx, dest.ChannelID, dest.IncludeTree, text); err != nil {
			return SendResult{}, fmt.Errorf("dispatch: send to channel %d: %w", dest.ChannelID, err)
		}
		d.logger.Debug("message sent to channel", "channelID", dest.ChannelID, "tree", dest.IncludeTree)
	case resolve.KindUser:
		if err := d.facade.SendToUser(ctx, dest.Session, text); err != nil {
			return SendResult{}, fmt.Errorf("dispatch: send to user %q: %w", dest.Name, err)
		}
		d.logger.Debug("message sent to user", "user", dest.Name, "session", dest.Session)
	default:
		d.logger.Debug("destination unresolved", "destination", destination)
	}

	return result, nil
}

// Announce broadcasts one message per event, in the order given.
func (d *Dispatcher) Announce(events []presence.Event) {
	for _, e := range events {
		d.transport.Broadcast(d.targets, e.String())
	}
}

// AnnounceSummary broadcasts a one-line roster summary.
func (d *Dispatcher) AnnounceSummary(names []string) {
	d.transport.Broadcast(d.targets, presence.Summary(names))
}

// Status queries the server's running state and uptime.
func (d *Dispatcher) Status(ctx context.Context) (Status, error) {
	running, err := d.facade.IsRunning(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("dispatch: running state: %w", err)
	}
	uptime, err := d.facade.Uptime(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("dispatch: uptime: %w", err)
	}
	return Status{Running: running, Uptime: uptime}, nil
}

// Names returns the distinct names on the live roster in server order. It
// always queries the server and never consults the presence snapshot.
func (d *Dispatcher) Names(ctx context.Context) ([]string, error) {
	users, err := d.facade.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("dispatch: fetch users: %w", err)
	}
	return lo.Uniq(lo.Map(users, func(u mumble.User, _ int) string { return u.Name })), nil
}

// Users returns a one-line summary of the live roster.
func (d *Dispatcher) Users(ctx context.Context) (string, error) {
	names, err := d.Names(ctx)
	if err != nil {
		return "", err
	}
	return presence.Summary(names), nil
}

// FormatUptime renders d as H:MM:SS, prefixed with a day count once it
// exceeds a day ("2 days, 3:04:05").
func FormatUptime(d time.Duration) string {
	total := int64(d / time.Second)
	if total < 0 {
		total = 0
	}
	days := total / 86400
	rem := total % 86400
	clock := fmt.Sprintf("%d:%02d:%02d", rem/3600, (rem%3600)/60, rem%60)
	switch days {
	case 0:
		return clock
	case 1:
		return "1 day, " + clock
	default:
		return fmt.Sprintf("%d days, %s", days, clock)
	}
}
