// Package testutil provides shared test infrastructure for mumblebot tests.
//
// NewMockDiscordSession starts an httptest.Server that simulates the Discord
// REST endpoints the bridge calls and returns a *discordgo.Session pointing
// to it. MockFacade stands in for the voice server.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
)

// MockDiscord bundles the test server and discordgo session together so callers
// can register additional handlers or inspect request state.
type MockDiscord struct {
	Server  *httptest.Server
	Session *discordgo.Session
	Mux     *http.ServeMux

	mu     sync.Mutex
	posted []SentMessage
}

// Close shuts down the test server. It should be called via t.Cleanup.
func (m *MockDiscord) Close() {
	m.Server.Close()
}

// Posted returns every message POSTed to a channel, in arrival order.
func (m *MockDiscord) Posted() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMessage(nil), m.posted...)
}

// NewMockDiscordSession starts an httptest.Server with handlers that simulate
// Discord's REST API and returns a MockDiscord that wraps both the server and
// a discordgo.Session pointed at it. discordgo's endpoint variables are
// package globals, so tests using this helper must not run in parallel.
// They are restored when the test finishes.
//
//	md := testutil.NewMockDiscordSession(t)
//	t.Cleanup(md.Close)
func NewMockDiscordSession(t *testing.T) *MockDiscord {
	t.Helper()

	md := &MockDiscord{Mux: http.NewServeMux()}

	// POST /api/v9/channels/{cID}/messages
	md.Mux.HandleFunc("/api/v9/channels/", func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/v9/channels/")
		parts := strings.Split(path, "/")

		if r.Method != http.MethodPost || len(parts) != 2 || parts[1] != "messages" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		var body discordgo.MessageSend
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		md.mu.Lock()
		md.posted = append(md.posted, SentMessage{ChannelID: parts[0], Data: &body})
		md.mu.Unlock()

		writeJSON(w, &discordgo.Message{
			ID:        "mock-msg-001",
			ChannelID: parts[0],
			Content:   body.Content,
		})
	})

	// GET /api/v9/guilds/{gID}/channels
	md.Mux.HandleFunc("/api/v9/guilds/", func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/v9/guilds/")
		parts := strings.Split(path, "/")

		if r.Method != http.MethodGet || len(parts) != 2 || parts[1] != "channels" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		writeJSON(w, MockChannels())
	})

	md.Server = httptest.NewServer(md.Mux)

	origDiscord := discordgo.EndpointDiscord
	origAPI := discordgo.EndpointAPI
	origGuilds := discordgo.EndpointGuilds
	origChannels := discordgo.EndpointChannels
	t.Cleanup(func() {
		discordgo.EndpointDiscord = origDiscord
		discordgo.EndpointAPI = origAPI
		discordgo.EndpointGuilds = origGuilds
		discordgo.EndpointChannels = origChannels
	})

	// Override discordgo's endpoint variables so the session talks to our mock.
	discordgo.EndpointDiscord = md.Server.URL + "/"
	discordgo.EndpointAPI = discordgo.EndpointDiscord + "api/v" + discordgo.APIVersion + "/"
	discordgo.EndpointGuilds = discordgo.EndpointAPI + "guilds/"
	discordgo.EndpointChannels = discordgo.EndpointAPI + "channels/"

	dg, err := discordgo.New("Bot test-token")
	if err != nil {
		t.Fatalf("testutil: discordgo.New failed: %v", err)
	}
	md.Session = dg

	return md
}

// writeJSON marshals v as JSON and writes it to w with 200 OK.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
