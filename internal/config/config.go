// Package config provides configuration loading, defaults, and validation
// for the mumblebot bridge.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment variable override.
const EnvPrefix = "MUMBLEBOT"

// ServerConfig holds the MCP HTTP listener settings.
type ServerConfig struct {
	Port      int    `yaml:"port" validate:"gte=0,lte=65535"`
	AuthToken string `yaml:"auth_token"`
}

// DiscordConfig holds Discord bot credentials and guild targeting.
type DiscordConfig struct {
	Token         string `yaml:"token"`
	GuildID       string `yaml:"guild_id"`
	CommandPrefix string `yaml:"command_prefix" validate:"required,max=8"`
}

// MumbleConfig locates the voice server's admin REST gateway.
type MumbleConfig struct {
	BaseURL  string        `yaml:"base_url" validate:"required,url"`
	ServerID int           `yaml:"server_id" validate:"gte=1"`
	Secret   string        `yaml:"secret"`
	Timeout  time.Duration `yaml:"timeout" validate:"gte=0"`
}

// AnnounceConfig controls presence polling and where announcements go.
// An empty Channels list announces to every text channel in the guild.
type AnnounceConfig struct {
	Channels        []string      `yaml:"channels" validate:"dive,announcetarget"`
	CheckInterval   time.Duration `yaml:"check_interval" validate:"gt=0"`
	AnnounceOnStart bool          `yaml:"announce_on_start"`
}

// QueueConfig controls the outbound chat message queue.
type QueueConfig struct {
	MaxSize int `yaml:"max_size" validate:"gte=0"`
}

// ChannelFilter holds allowlist and denylist entries for chat channels that
// may issue commands.
type ChannelFilter struct {
	Allowlist []string `yaml:"allowlist"`
	Denylist  []string `yaml:"denylist"`
}

// SafetyConfig groups channel filters.
type SafetyConfig struct {
	Channels ChannelFilter `yaml:"channels"`
}

// AuditConfig controls audit logging behaviour.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	LogPath string `yaml:"log_path" validate:"required_if=Enabled true"`
}

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// Config is the top-level configuration structure for mumblebot.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Discord  DiscordConfig  `yaml:"discord"`
	Mumble   MumbleConfig   `yaml:"mumble"`
	Announce AnnounceConfig `yaml:"announce"`
	Queue    QueueConfig    `yaml:"queue"`
	Safety   SafetyConfig   `yaml:"safety"`
	Audit    AuditConfig    `yaml:"audit"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ConfigurationError reports configuration that cannot be started with.
// It is fatal at startup.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "config: " + e.Reason
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// LoadConfig reads and parses a YAML configuration file on top of
// DefaultConfig. On error, nil is returned for the config pointer.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a new Config populated with default values.
// Each call returns a distinct instance.
//
// Defaults:
//   - Server.Port = 8080
//   - Discord.CommandPrefix = "!"
//   - Mumble.BaseURL = "http://127.0.0.1:8080", Mumble.ServerID = 1, Mumble.Timeout = 10s
//   - Announce.CheckInterval = 5s, Announce.AnnounceOnStart = true
//   - Queue.MaxSize = 1000
//   - Audit.Enabled = true, Audit.LogPath = "audit.log"
//   - Logging.Level = "info"
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
		},
		Discord: DiscordConfig{
			CommandPrefix: "!",
		},
		Mumble: MumbleConfig{
			BaseURL:  "http://127.0.0.1:8080",
			ServerID: 1,
			Timeout:  10 * time.Second,
		},
		Announce: AnnounceConfig{
			CheckInterval:   5 * time.Second,
			AnnounceOnStart: true,
		},
		Queue: QueueConfig{
			MaxSize: 1000,
		},
		Audit: AuditConfig{
			Enabled: true,
			LogPath: "audit.log",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// envOverrides lists the settings that can be supplied through the
// environment. Keys derive from the field names (DiscordGuildID reads
// MUMBLEBOT_DISCORD_GUILD_ID); explicit envconfig tags are avoided because
// they also match the unprefixed name. Pointer fields distinguish "unset"
// from zero values.
type envOverrides struct {
	DiscordToken     string         `split_words:"true"`
	DiscordGuildID   string         `split_words:"true"`
	AuthToken        string         `split_words:"true"`
	MumbleURL        string         `split_words:"true"`
	MumbleServerID   *int           `split_words:"true"`
	MumbleSecret     string         `split_words:"true"`
	AnnounceChannels []string       `split_words:"true"`
	CheckInterval    *time.Duration `split_words:"true"`
	LogLevel         string         `split_words:"true"`
}

// ApplyEnvOverrides updates cfg in place from MUMBLEBOT_* environment
// variables. Only variables that are set override existing values;
// unprefixed names such as LOG_LEVEL are never consulted.
//
// Recognized variables:
//   - MUMBLEBOT_DISCORD_TOKEN     -> cfg.Discord.Token
//   - MUMBLEBOT_DISCORD_GUILD_ID  -> cfg.Discord.GuildID
//   - MUMBLEBOT_AUTH_TOKEN        -> cfg.Server.AuthToken
//   - MUMBLEBOT_MUMBLE_URL        -> cfg.Mumble.BaseURL
//   - MUMBLEBOT_MUMBLE_SERVER_ID  -> cfg.Mumble.ServerID
//   - MUMBLEBOT_MUMBLE_SECRET     -> cfg.Mumble.Secret
//   - MUMBLEBOT_ANNOUNCE_CHANNELS -> cfg.Announce.Channels (comma separated)
//   - MUMBLEBOT_CHECK_INTERVAL    -> cfg.Announce.CheckInterval
//   - MUMBLEBOT_LOG_LEVEL         -> cfg.Logging.Level
func ApplyEnvOverrides(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return &ConfigurationError{Reason: err.Error()}
	}

	setString(&cfg.Discord.Token, env.DiscordToken)
	setString(&cfg.Discord.GuildID, env.DiscordGuildID)
	setString(&cfg.Server.AuthToken, env.AuthToken)
	setString(&cfg.Mumble.BaseURL, env.MumbleURL)
	setString(&cfg.Mumble.Secret, env.MumbleSecret)
	setString(&cfg.Logging.Level, env.LogLevel)
	if env.MumbleServerID != nil {
		cfg.Mumble.ServerID = *env.MumbleServerID
	}
	if env.AnnounceChannels != nil {
		cfg.Announce.Channels = make([]string, len(env.AnnounceChannels))
		for i, target := range env.AnnounceChannels {
			cfg.Announce.Channels[i] = strings.TrimSpace(target)
		}
	}
	if env.CheckInterval != nil {
		cfg.Announce.CheckInterval = *env.CheckInterval
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// An announce target is a channel name or ID: non-empty with no
	// whitespace or list separators.
	_ = v.RegisterValidation("announcetarget", func(fl validator.FieldLevel) bool {
		s := strings.TrimPrefix(fl.Field().String(), "#")
		return s != "" && !strings.ContainsAny(s, " \t\r\n,;")
	})
	return v
}

// Validate checks cfg and returns the first problem as a
// *ConfigurationError.
func Validate(cfg *Config) error {
	if cfg == nil {
		return &ConfigurationError{Reason: "missing configuration"}
	}
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ConfigurationError{
			Field:  strings.TrimPrefix(fe.Namespace(), "Config."),
			Reason: describe(fe),
		}
	}
	return &ConfigurationError{Reason: err.Error()}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return "must be positive"
	case "announcetarget":
		return fmt.Sprintf("malformed announce target %q", fe.Value())
	case "required", "required_if":
		return "is required"
	case "gte":
		return "must be at least " + fe.Param()
	case "url":
		return fmt.Sprintf("%q is not a valid URL", fe.Value())
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
