// Package presence tracks the voice server's roster between polls and turns
// the difference between successive snapshots into join and leave events.
package presence

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jamesprial/mumblebot/internal/mumble"
	"github.com/samber/lo"
)

// EventKind distinguishes joins from leaves.
type EventKind int

const (
	EventJoined EventKind = iota + 1
	EventLeft
)

// Event is a single presence transition observed by a Tick.
type Event struct {
	Kind EventKind
	Name string
}

// Joined returns a join event for name.
func Joined(name string) Event { return Event{Kind: EventJoined, Name: name} }

// Left returns a leave event for name.
func Left(name string) Event { return Event{Kind: EventLeft, Name: name} }

func (e Event) String() string {
	switch e.Kind {
	case EventJoined:
		return e.Name + " has joined"
	case EventLeft:
		return e.Name + " has left"
	default:
		return fmt.Sprintf("%s: unknown event %d", e.Name, e.Kind)
	}
}

// Summary formats a roster for display, using a distinct message when
// nobody is connected.
func Summary(names []string) string {
	if len(names) == 0 {
		return "No users in mumble"
	}
	return "Users in mumble: " + strings.Join(names, ",")
}

// Monitor owns the last completed roster snapshot. The snapshot keeps names
// in the order they were first seen so Left events are emitted
// deterministically. Only Tick and Prime touch it.
type Monitor struct {
	facade mumble.ServerFacade

	mu    sync.Mutex
	names []string
	set   map[string]struct{}
}

// NewMonitor constructs a Monitor with an empty snapshot.
func NewMonitor(facade mumble.ServerFacade) *Monitor {
	return &Monitor{
		facade: facade,
		set:    make(map[string]struct{}),
	}
}

// Tick fetches the current roster and returns the transitions since the
// previous completed Tick: every Joined in fetch order, then every Left in
// snapshot order. On fetch failure it returns the error and leaves the
// snapshot untouched. Concurrent calls are serialized.
func (m *Monitor) Tick(ctx context.Context) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.fetch(ctx)
	if err != nil {
		return nil, err
	}

	currentSet := toSet(current)
	var events []Event
	for _, name := range current {
		if _, ok := m.set[name]; !ok {
			events = append(events, Joined(name))
		}
	}
	for _, name := range m.names {
		if _, ok := currentSet[name]; !ok {
			events = append(events, Left(name))
		}
	}

	m.replace(current, currentSet)
	return events, nil
}

// Prime adopts the current roster as the snapshot without emitting events
// and returns it. It has the same failure contract as Tick.
func (m *Monitor) Prime(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.fetch(ctx)
	if err != nil {
		return nil, err
	}
	m.replace(current, toSet(current))
	return append([]string(nil), current...), nil
}

// Names returns a copy of the snapshot.
func (m *Monitor) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.names...)
}

// fetch returns the deduplicated roster names in fetch order.
func (m *Monitor) fetch(ctx context.Context) ([]string, error) {
	users, err := m.facade.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("presence: fetch roster: %w", err)
	}
	names := lo.Map(users, func(u mumble.User, _ int) string { return u.Name })
	return lo.Uniq(names), nil
}

// replace swaps in the new snapshot. Names already known keep their
// position; new names are appended in fetch order.
func (m *Monitor) replace(current []string, currentSet map[string]struct{}) {
	kept := lo.Filter(m.names, func(name string, _ int) bool {
		_, ok := currentSet[name]
		return ok
	})
	added := lo.Filter(current, func(name string, _ int) bool {
		_, ok := m.set[name]
		return !ok
	})
	m.names = append(kept, added...)
	m.set = currentSet
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
