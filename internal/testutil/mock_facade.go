package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/jamesprial/mumblebot/internal/mumble"
)

// Compile-time assertion: *MockFacade satisfies mumble.ServerFacade.
var _ mumble.ServerFacade = (*MockFacade)(nil)

// ChannelSend records one SendToChannel call.
type ChannelSend struct {
	ChannelID int
	Tree      bool
	Text      string
}

// UserSend records one SendToUser call.
type UserSend struct {
	Session int
	Text    string
}

// MockFacade implements mumble.ServerFacade using configurable function
// fields. When a field is nil the method returns the corresponding static
// field (UserList, ChannelList, ...). Every call is counted and send calls
// are recorded; it is safe for concurrent use.
type MockFacade struct {
	UsersFunc         func(ctx context.Context) ([]mumble.User, error)
	ChannelsFunc      func(ctx context.Context) ([]mumble.Channel, error)
	SendToChannelFunc func(ctx context.Context, channelID int, tree bool, text string) error
	SendToUserFunc    func(ctx context.Context, session int, text string) error

	UserList    []mumble.User
	ChannelList []mumble.Channel
	UptimeValue time.Duration
	Running     bool
	// StatusErr, when set, is returned by Uptime and IsRunning.
	StatusErr error

	mu           sync.Mutex
	calls        map[string]int
	channelSends []ChannelSend
	userSends    []UserSend
}

func (m *MockFacade) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[name]++
}

// Calls returns how many times the named method was invoked.
func (m *MockFacade) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

// SendCalls returns the total number of SendToChannel and SendToUser calls.
func (m *MockFacade) SendCalls() int {
	return m.Calls("SendToChannel") + m.Calls("SendToUser")
}

// ChannelSends returns a copy of the recorded SendToChannel calls.
func (m *MockFacade) ChannelSends() []ChannelSend {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ChannelSend(nil), m.channelSends...)
}

// UserSends returns a copy of the recorded SendToUser calls.
func (m *MockFacade) UserSends() []UserSend {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]UserSend(nil), m.userSends...)
}

func (m *MockFacade) Users(ctx context.Context) ([]mumble.User, error) {
	m.record("Users")
	if m.UsersFunc != nil {
		return m.UsersFunc(ctx)
	}
	return m.UserList, nil
}

func (m *MockFacade) Channels(ctx context.Context) ([]mumble.Channel, error) {
	m.record("Channels")
	if m.ChannelsFunc != nil {
		return m.ChannelsFunc(ctx)
	}
	return m.ChannelList, nil
}

func (m *MockFacade) SendToChannel(ctx context.Context, channelID int, tree bool, text string) error {
	m.record("SendToChannel")
	m.mu.Lock()
	m.channelSends = append(m.channelSends, ChannelSend{ChannelID: channelID, Tree: tree, Text: text})
	m.mu.Unlock()
	if m.SendToChannelFunc != nil {
		return m.SendToChannelFunc(ctx, channelID, tree, text)
	}
	return nil
}

func (m *MockFacade) SendToUser(ctx context.Context, session int, text string) error {
	m.record("SendToUser")
	m.mu.Lock()
	m.userSends = append(m.userSends, UserSend{Session: session, Text: text})
	m.mu.Unlock()
	if m.SendToUserFunc != nil {
		return m.SendToUserFunc(ctx, session, text)
	}
	return nil
}

func (m *MockFacade) Uptime(ctx context.Context) (time.Duration, error) {
	m.record("Uptime")
	if m.StatusErr != nil {
		return 0, m.StatusErr
	}
	return m.UptimeValue, nil
}

func (m *MockFacade) IsRunning(ctx context.Context) (bool, error) {
	m.record("IsRunning")
	if m.StatusErr != nil {
		return false, m.StatusErr
	}
	return m.Running, nil
}

// RosterSequence returns a UsersFunc that yields one roster per call, built
// from plain names with sessions assigned in order. Once the sequence is
// exhausted the last roster is repeated.
func RosterSequence(rosters ...[]string) func(ctx context.Context) ([]mumble.User, error) {
	var (
		mu sync.Mutex
		i  int
	)
	return func(ctx context.Context) ([]mumble.User, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(rosters) == 0 {
			return nil, nil
		}
		names := rosters[i]
		if i < len(rosters)-1 {
			i++
		}
		users := make([]mumble.User, len(names))
		for j, n := range names {
			users[j] = mumble.User{Session: j + 1, Name: n}
		}
		return users, nil
	}
}

// RecordingBroadcaster captures every Broadcast call in order.
type RecordingBroadcaster struct {
	mu       sync.Mutex
	Messages []Broadcast
}

// Broadcast is one recorded call to RecordingBroadcaster.Broadcast.
type Broadcast struct {
	Channels []string
	Text     string
}

func (b *RecordingBroadcaster) Broadcast(channels []string, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Messages = append(b.Messages, Broadcast{Channels: append([]string(nil), channels...), Text: text})
}

// Texts returns the text of every recorded broadcast in order.
func (b *RecordingBroadcaster) Texts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.Messages))
	for i, m := range b.Messages {
		out[i] = m.Text
	}
	return out
}
