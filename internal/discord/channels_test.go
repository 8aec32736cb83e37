package discord_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/jamesprial/mumblebot/internal/discord"
	"github.com/jamesprial/mumblebot/internal/testutil"
)

func newCache(t *testing.T) *discord.ChannelCache {
	t.Helper()
	c := discord.NewChannelCache(&testutil.MockDiscordClient{}, "guild-1")
	if err := c.Refresh(); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	return c
}

// ---------------------------------------------------------------------------
// Refresh
// ---------------------------------------------------------------------------

func Test_ChannelCache_Refresh_IndexesTextChannelsOnly(t *testing.T) {
	t.Parallel()
	c := newCache(t)

	want := []string{testutil.GeneralChannelID, testutil.RandomChannelID}
	if got := c.IDs(); !slices.Equal(got, want) {
		t.Errorf("IDs() = %v, want %v", got, want)
	}
	if _, err := c.ChannelID("Lounge"); err == nil {
		t.Error("ChannelID(Lounge) should fail for a voice channel")
	}
}

func Test_ChannelCache_Refresh_ErrorKeepsPreviousCache(t *testing.T) {
	t.Parallel()
	fail := false
	client := &testutil.MockDiscordClient{
		GuildChannelsFunc: func(string, ...discordgo.RequestOption) ([]*discordgo.Channel, error) {
			if fail {
				return nil, errors.New("gateway error")
			}
			return testutil.MockChannels(), nil
		},
	}
	c := discord.NewChannelCache(client, "guild-1")
	if err := c.Refresh(); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	fail = true
	if err := c.Refresh(); err == nil {
		t.Fatal("Refresh() should return the fetch error")
	}
	if got := c.ChannelName(testutil.GeneralChannelID); got != "general" {
		t.Errorf("ChannelName() = %q after failed refresh, want general", got)
	}
}

func Test_ChannelCache_EmptyUntilRefresh(t *testing.T) {
	t.Parallel()
	c := discord.NewChannelCache(&testutil.MockDiscordClient{}, "guild-1")
	if ids := c.IDs(); len(ids) != 0 {
		t.Errorf("IDs() = %v before Refresh, want empty", ids)
	}
	if got := c.GuildID(); got != "guild-1" {
		t.Errorf("GuildID() = %q, want guild-1", got)
	}
}

// ---------------------------------------------------------------------------
// ChannelID / ChannelName
// ---------------------------------------------------------------------------

func Test_ChannelCache_ChannelID_Cases(t *testing.T) {
	t.Parallel()
	c := newCache(t)

	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"general", testutil.GeneralChannelID, false},
		{"#general", testutil.GeneralChannelID, false},
		{"GENERAL", testutil.GeneralChannelID, false},
		{"random", testutil.RandomChannelID, false},
		{"#Random", testutil.RandomChannelID, false},
		{"999", "999", false},
		{"#999", "999", false},
		{"missing", "", true},
		{"", "", true},
		{"#", "", true},
	}
	for _, tt := range tests {
		got, err := c.ChannelID(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ChannelID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ChannelID(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func Test_ChannelCache_ChannelName_UnknownReturnsID(t *testing.T) {
	t.Parallel()
	c := newCache(t)
	if got := c.ChannelName(testutil.RandomChannelID); got != "Random" {
		t.Errorf("ChannelName(%s) = %q, want Random", testutil.RandomChannelID, got)
	}
	if got := c.ChannelName("777"); got != "777" {
		t.Errorf("ChannelName(777) = %q, want 777", got)
	}
}

func Test_ChannelCache_Refresh_RealSession(t *testing.T) {
	md := testutil.NewMockDiscordSession(t)
	t.Cleanup(md.Close)

	c := discord.NewChannelCache(md.Session, "guild-1")
	if err := c.Refresh(); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if id, err := c.ChannelID("general"); err != nil || id != testutil.GeneralChannelID {
		t.Errorf("ChannelID(general) = %q, %v, want %s", id, err, testutil.GeneralChannelID)
	}
}
