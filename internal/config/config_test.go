package config

import (
	"errors"
	"path/filepath"
	"reflect"
	"runtime"
	"slices"
	"testing"
	"time"
)

// testdataDir returns the absolute path to the testdata/config directory.
func testdataDir(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("unable to determine test file path")
	}
	// thisFile is internal/config/config_test.go
	// project root is two levels up
	projectRoot := filepath.Join(filepath.Dir(thisFile), "..", "..")
	return filepath.Join(projectRoot, "testdata", "config")
}

func mustLoad(t *testing.T, name string) *Config {
	t.Helper()
	path := filepath.Join(testdataDir(t), name)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig(%q) unexpected error: %v", path, err)
	}
	if cfg == nil {
		t.Fatalf("LoadConfig(%q) returned nil config", path)
	}
	return cfg
}

// ---------------------------------------------------------------------------
// LoadConfig
// ---------------------------------------------------------------------------

func Test_LoadConfig_ValidYAML(t *testing.T) {
	t.Parallel()
	cfg := mustLoad(t, "valid.yaml")

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.AuthToken != "test-auth-token-123" {
		t.Errorf("Server.AuthToken = %q, want %q", cfg.Server.AuthToken, "test-auth-token-123")
	}

	if cfg.Discord.Token != "discord-bot-token-abc" {
		t.Errorf("Discord.Token = %q, want %q", cfg.Discord.Token, "discord-bot-token-abc")
	}
	if cfg.Discord.GuildID != "123456789" {
		t.Errorf("Discord.GuildID = %q, want %q", cfg.Discord.GuildID, "123456789")
	}
	if cfg.Discord.CommandPrefix != "?" {
		t.Errorf("Discord.CommandPrefix = %q, want %q", cfg.Discord.CommandPrefix, "?")
	}

	if cfg.Mumble.BaseURL != "http://murmur.internal:8081" {
		t.Errorf("Mumble.BaseURL = %q, want %q", cfg.Mumble.BaseURL, "http://murmur.internal:8081")
	}
	if cfg.Mumble.ServerID != 2 {
		t.Errorf("Mumble.ServerID = %d, want 2", cfg.Mumble.ServerID)
	}
	if cfg.Mumble.Secret != "ice-secret" {
		t.Errorf("Mumble.Secret = %q, want %q", cfg.Mumble.Secret, "ice-secret")
	}
	if cfg.Mumble.Timeout != 3*time.Second {
		t.Errorf("Mumble.Timeout = %v, want 3s", cfg.Mumble.Timeout)
	}

	if want := []string{"#voice-log", "general"}; !slices.Equal(cfg.Announce.Channels, want) {
		t.Errorf("Announce.Channels = %v, want %v", cfg.Announce.Channels, want)
	}
	if cfg.Announce.CheckInterval != 10*time.Second {
		t.Errorf("Announce.CheckInterval = %v, want 10s", cfg.Announce.CheckInterval)
	}
	if cfg.Announce.AnnounceOnStart {
		t.Error("Announce.AnnounceOnStart = true, want false")
	}

	if cfg.Queue.MaxSize != 500 {
		t.Errorf("Queue.MaxSize = %d, want 500", cfg.Queue.MaxSize)
	}

	if want := []string{"bot-*", "general"}; !slices.Equal(cfg.Safety.Channels.Allowlist, want) {
		t.Errorf("Safety.Channels.Allowlist = %v, want %v", cfg.Safety.Channels.Allowlist, want)
	}
	if want := []string{"admin"}; !slices.Equal(cfg.Safety.Channels.Denylist, want) {
		t.Errorf("Safety.Channels.Denylist = %v, want %v", cfg.Safety.Channels.Denylist, want)
	}

	if !cfg.Audit.Enabled {
		t.Error("Audit.Enabled = false, want true")
	}
	if cfg.Audit.LogPath != "/tmp/audit.log" {
		t.Errorf("Audit.LogPath = %q, want %q", cfg.Audit.LogPath, "/tmp/audit.log")
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("Validate(valid.yaml) = %v, want nil", err)
	}
}

func Test_LoadConfig_NonexistentFile(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("/nonexistent/path/to/config.yaml")
	if err == nil {
		t.Fatal("LoadConfig with nonexistent file should return error")
	}
	if cfg != nil {
		t.Error("LoadConfig with nonexistent file should return nil config")
	}
}

func Test_LoadConfig_InvalidYAML(t *testing.T) {
	t.Parallel()
	path := filepath.Join(testdataDir(t), "invalid.yaml")
	cfg, err := LoadConfig(path)
	if err == nil {
		t.Fatal("LoadConfig with invalid YAML should return error")
	}
	if cfg != nil {
		t.Error("LoadConfig with invalid YAML should return nil config")
	}
}

func Test_LoadConfig_EmptyFile_YieldsDefaults(t *testing.T) {
	t.Parallel()
	cfg := mustLoad(t, "empty.yaml")
	def := DefaultConfig()

	if cfg.Server.Port != def.Server.Port {
		t.Errorf("Server.Port = %d, want default %d", cfg.Server.Port, def.Server.Port)
	}
	if cfg.Mumble.BaseURL != def.Mumble.BaseURL {
		t.Errorf("Mumble.BaseURL = %q, want default %q", cfg.Mumble.BaseURL, def.Mumble.BaseURL)
	}
	if cfg.Announce.CheckInterval != def.Announce.CheckInterval {
		t.Errorf("Announce.CheckInterval = %v, want default %v", cfg.Announce.CheckInterval, def.Announce.CheckInterval)
	}
	if cfg.Discord.Token != "" {
		t.Errorf("Discord.Token = %q, want empty for empty file", cfg.Discord.Token)
	}
}

func Test_LoadConfig_MinimalYAML_LayersOnDefaults(t *testing.T) {
	t.Parallel()
	cfg := mustLoad(t, "minimal.yaml")

	if cfg.Mumble.BaseURL != "http://localhost:8081" {
		t.Errorf("Mumble.BaseURL = %q, want %q", cfg.Mumble.BaseURL, "http://localhost:8081")
	}
	if cfg.Announce.CheckInterval != 30*time.Second {
		t.Errorf("Announce.CheckInterval = %v, want 30s", cfg.Announce.CheckInterval)
	}
	// Settings not in the file keep their defaults.
	if cfg.Mumble.ServerID != 1 {
		t.Errorf("Mumble.ServerID = %d, want default 1", cfg.Mumble.ServerID)
	}
	if !cfg.Announce.AnnounceOnStart {
		t.Error("Announce.AnnounceOnStart = false, want default true")
	}
	if cfg.Discord.CommandPrefix != "!" {
		t.Errorf("Discord.CommandPrefix = %q, want default %q", cfg.Discord.CommandPrefix, "!")
	}
}

func Test_LoadConfig_UnknownKeysIgnored(t *testing.T) {
	t.Parallel()
	cfg := mustLoad(t, "unknown_keys.yaml")
	if cfg.Server.Port != 4000 {
		t.Errorf("Server.Port = %d, want 4000", cfg.Server.Port)
	}
	if cfg.Server.AuthToken != "uk-token" {
		t.Errorf("Server.AuthToken = %q, want %q", cfg.Server.AuthToken, "uk-token")
	}
}

// ---------------------------------------------------------------------------
// DefaultConfig
// ---------------------------------------------------------------------------

func Test_DefaultConfig_Values(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Discord.CommandPrefix != "!" {
		t.Errorf("Discord.CommandPrefix = %q, want %q", cfg.Discord.CommandPrefix, "!")
	}
	if cfg.Mumble.ServerID != 1 {
		t.Errorf("Mumble.ServerID = %d, want 1", cfg.Mumble.ServerID)
	}
	if cfg.Mumble.Timeout != 10*time.Second {
		t.Errorf("Mumble.Timeout = %v, want 10s", cfg.Mumble.Timeout)
	}
	if cfg.Announce.CheckInterval != 5*time.Second {
		t.Errorf("Announce.CheckInterval = %v, want 5s", cfg.Announce.CheckInterval)
	}
	if !cfg.Announce.AnnounceOnStart {
		t.Error("Announce.AnnounceOnStart = false, want true")
	}
	if cfg.Queue.MaxSize != 1000 {
		t.Errorf("Queue.MaxSize = %d, want 1000", cfg.Queue.MaxSize)
	}
	if !cfg.Audit.Enabled || cfg.Audit.LogPath != "audit.log" {
		t.Errorf("Audit = %+v, want enabled with audit.log", cfg.Audit)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate(DefaultConfig()) = %v, want nil", err)
	}
}

func Test_DefaultConfig_DistinctInstances(t *testing.T) {
	t.Parallel()
	a := DefaultConfig()
	b := DefaultConfig()
	if a == b {
		t.Fatal("DefaultConfig returned the same pointer twice")
	}
	a.Server.Port = 1
	if b.Server.Port != 8080 {
		t.Errorf("mutating one default changed another: Server.Port = %d", b.Server.Port)
	}
}

// ---------------------------------------------------------------------------
// ApplyEnvOverrides
// ---------------------------------------------------------------------------

func Test_ApplyEnvOverrides_AllSet(t *testing.T) {
	t.Setenv("MUMBLEBOT_DISCORD_TOKEN", "env-token")
	t.Setenv("MUMBLEBOT_DISCORD_GUILD_ID", "env-guild")
	t.Setenv("MUMBLEBOT_AUTH_TOKEN", "env-auth")
	t.Setenv("MUMBLEBOT_MUMBLE_URL", "http://env-host:9000")
	t.Setenv("MUMBLEBOT_MUMBLE_SERVER_ID", "7")
	t.Setenv("MUMBLEBOT_MUMBLE_SECRET", "env-secret")
	t.Setenv("MUMBLEBOT_ANNOUNCE_CHANNELS", "general, voice-log")
	t.Setenv("MUMBLEBOT_CHECK_INTERVAL", "10s")
	t.Setenv("MUMBLEBOT_LOG_LEVEL", "warn")

	cfg := DefaultConfig()
	if err := ApplyEnvOverrides(cfg); err != nil {
		t.Fatalf("ApplyEnvOverrides() unexpected error: %v", err)
	}

	if cfg.Discord.Token != "env-token" {
		t.Errorf("Discord.Token = %q, want %q", cfg.Discord.Token, "env-token")
	}
	if cfg.Discord.GuildID != "env-guild" {
		t.Errorf("Discord.GuildID = %q, want %q", cfg.Discord.GuildID, "env-guild")
	}
	if cfg.Server.AuthToken != "env-auth" {
		t.Errorf("Server.AuthToken = %q, want %q", cfg.Server.AuthToken, "env-auth")
	}
	if cfg.Mumble.BaseURL != "http://env-host:9000" {
		t.Errorf("Mumble.BaseURL = %q, want %q", cfg.Mumble.BaseURL, "http://env-host:9000")
	}
	if cfg.Mumble.ServerID != 7 {
		t.Errorf("Mumble.ServerID = %d, want 7", cfg.Mumble.ServerID)
	}
	if cfg.Mumble.Secret != "env-secret" {
		t.Errorf("Mumble.Secret = %q, want %q", cfg.Mumble.Secret, "env-secret")
	}
	if want := []string{"general", "voice-log"}; !slices.Equal(cfg.Announce.Channels, want) {
		t.Errorf("Announce.Channels = %v, want %v", cfg.Announce.Channels, want)
	}
	if cfg.Announce.CheckInterval != 10*time.Second {
		t.Errorf("Announce.CheckInterval = %v, want 10s", cfg.Announce.CheckInterval)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "warn")
	}
}

func Test_ApplyEnvOverrides_UnsetKeepsValues(t *testing.T) {
	t.Setenv("MUMBLEBOT_DISCORD_TOKEN", "")

	cfg := DefaultConfig()
	cfg.Discord.Token = "from-file"
	cfg.Announce.Channels = []string{"general"}
	if err := ApplyEnvOverrides(cfg); err != nil {
		t.Fatalf("ApplyEnvOverrides() unexpected error: %v", err)
	}

	if cfg.Discord.Token != "from-file" {
		t.Errorf("Discord.Token = %q, want %q", cfg.Discord.Token, "from-file")
	}
	if want := []string{"general"}; !slices.Equal(cfg.Announce.Channels, want) {
		t.Errorf("Announce.Channels = %v, want %v", cfg.Announce.Channels, want)
	}
	if cfg.Announce.CheckInterval != 5*time.Second {
		t.Errorf("Announce.CheckInterval = %v, want 5s", cfg.Announce.CheckInterval)
	}
}

func Test_ApplyEnvOverrides_IgnoresUnprefixedNames(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("AUTH_TOKEN", "stray-token")
	t.Setenv("CHECK_INTERVAL", "1h")
	t.Setenv("DISCORD_TOKEN", "stray-discord")
	t.Setenv("MUMBLE_SERVER_ID", "9")
	t.Setenv("ANNOUNCE_CHANNELS", "elsewhere")

	cfg := DefaultConfig()
	if err := ApplyEnvOverrides(cfg); err != nil {
		t.Fatalf("ApplyEnvOverrides() unexpected error: %v", err)
	}

	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("config changed by unprefixed variables: %+v", cfg)
	}
}

func Test_ApplyEnvOverrides_BadDuration(t *testing.T) {
	t.Setenv("MUMBLEBOT_CHECK_INTERVAL", "soon")

	err := ApplyEnvOverrides(DefaultConfig())
	if err == nil {
		t.Fatal("ApplyEnvOverrides with unparseable interval should return error")
	}
	var cerr *ConfigurationError
	if !errors.As(err, &cerr) {
		t.Errorf("error type = %T, want *ConfigurationError", err)
	}
}

// ---------------------------------------------------------------------------
// Validate
// ---------------------------------------------------------------------------

func Test_Validate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"defaults ok", func(*Config) {}, ""},
		{"zero interval", func(c *Config) { c.Announce.CheckInterval = 0 }, "Announce.CheckInterval"},
		{"negative interval", func(c *Config) { c.Announce.CheckInterval = -time.Second }, "Announce.CheckInterval"},
		{"target with space", func(c *Config) { c.Announce.Channels = []string{"voice log"} }, "Announce.Channels[0]"},
		{"empty target", func(c *Config) { c.Announce.Channels = []string{"general", ""} }, "Announce.Channels[1]"},
		{"hash-only target", func(c *Config) { c.Announce.Channels = []string{"#"} }, "Announce.Channels[0]"},
		{"hash target ok", func(c *Config) { c.Announce.Channels = []string{"#general", "123456"} }, ""},
		{"bad url", func(c *Config) { c.Mumble.BaseURL = "not a url" }, "Mumble.BaseURL"},
		{"missing url", func(c *Config) { c.Mumble.BaseURL = "" }, "Mumble.BaseURL"},
		{"server id zero", func(c *Config) { c.Mumble.ServerID = 0 }, "Mumble.ServerID"},
		{"missing prefix", func(c *Config) { c.Discord.CommandPrefix = "" }, "Discord.CommandPrefix"},
		{"audit without path", func(c *Config) { c.Audit.LogPath = "" }, "Audit.LogPath"},
		{"audit disabled without path", func(c *Config) { c.Audit.Enabled = false; c.Audit.LogPath = "" }, ""},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "Logging.Level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var cerr *ConfigurationError
			if !errors.As(err, &cerr) {
				t.Fatalf("Validate() = %v (%T), want *ConfigurationError", err, err)
			}
			if cerr.Field != tt.wantField {
				t.Errorf("ConfigurationError.Field = %q, want %q", cerr.Field, tt.wantField)
			}
			if cerr.Reason == "" {
				t.Error("ConfigurationError.Reason is empty")
			}
		})
	}
}

func Test_Validate_FromFiles(t *testing.T) {
	t.Parallel()
	tests := []struct {
		file      string
		wantField string
	}{
		{"bad_targets.yaml", "Announce.Channels[0]"},
		{"zero_interval.yaml", "Announce.CheckInterval"},
	}
	for _, tt := range tests {
		cfg := mustLoad(t, tt.file)
		var cerr *ConfigurationError
		if err := Validate(cfg); !errors.As(err, &cerr) || cerr.Field != tt.wantField {
			t.Errorf("Validate(%s) = %v, want ConfigurationError on %s", tt.file, err, tt.wantField)
		}
	}
}

func Test_Validate_Nil(t *testing.T) {
	t.Parallel()
	var cerr *ConfigurationError
	if err := Validate(nil); !errors.As(err, &cerr) {
		t.Errorf("Validate(nil) = %v, want *ConfigurationError", err)
	}
}

func Test_ConfigurationError_Error(t *testing.T) {
	t.Parallel()
	e := &ConfigurationError{Field: "Announce.CheckInterval", Reason: "must be positive"}
	if got, want := e.Error(), "config: Announce.CheckInterval: must be positive"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	e = &ConfigurationError{Reason: "missing configuration"}
	if got, want := e.Error(), "config: missing configuration"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
