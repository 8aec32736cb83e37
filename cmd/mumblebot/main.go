// Command mumblebot bridges a Mumble voice server and a Discord guild: it
// announces voice presence changes, answers chat commands, and exposes the
// voice server to MCP clients.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jamesprial/mumblebot/internal/auth"
	"github.com/jamesprial/mumblebot/internal/command"
	"github.com/jamesprial/mumblebot/internal/config"
	"github.com/jamesprial/mumblebot/internal/discord"
	"github.com/jamesprial/mumblebot/internal/dispatch"
	"github.com/jamesprial/mumblebot/internal/mumble"
	"github.com/jamesprial/mumblebot/internal/presence"
	"github.com/jamesprial/mumblebot/internal/queue"
	"github.com/jamesprial/mumblebot/internal/resolve"
	"github.com/jamesprial/mumblebot/internal/safety"
	"github.com/jamesprial/mumblebot/internal/tools"
	"github.com/jamesprial/mumblebot/internal/voice"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/pflag"
)

const (
	defaultConfigPath = "config.yaml"
	configPathEnv     = "MUMBLEBOT_CONFIG_PATH"
	readyTimeout      = 30 * time.Second
	shutdownTimeout   = 15 * time.Second
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := pflag.StringP("config", "c", configPathFromEnv(), "path to the YAML config file (env "+configPathEnv+")")
	useStdio := pflag.Bool("stdio", false, "serve MCP over stdio instead of HTTP")
	pflag.Parse()

	var level slog.LevelVar
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &level}))
	slog.SetDefault(logger)

	// 1. Load, override, and validate config.
	cfg, err := loadConfig(*configPath, logger)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return 1
	}
	level.Set(parseLevel(cfg.Logging.Level))

	// 2. Open audit log file if enabled.
	var auditLogger *safety.AuditLogger
	if cfg.Audit.Enabled {
		f, err := os.OpenFile(cfg.Audit.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			logger.Warn("could not open audit log, audit logging disabled", "path", cfg.Audit.LogPath, "error", err)
		} else {
			auditLogger = safety.NewAuditLogger(f)
			defer func() { _ = f.Close() }()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Voice server side.
	facade := mumble.NewClient(cfg.Mumble.BaseURL, cfg.Mumble.ServerID,
		mumble.WithSecret(cfg.Mumble.Secret),
		mumble.WithTimeout(cfg.Mumble.Timeout),
	)

	// 4. Chat side.
	dg, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		logger.Error("failed to create Discord session", "error", err)
		return 1
	}
	channels := discord.NewChannelCache(dg, cfg.Discord.GuildID)
	q := queue.New(queue.WithMaxSize(cfg.Queue.MaxSize))
	transport := discord.NewTransport(dg, channels, q, logger)

	dispatcher := dispatch.New(facade, resolve.New(facade), transport, cfg.Announce.Channels, logger)
	router := command.NewRouter(dispatcher, cfg.Discord.CommandPrefix, auditLogger, logger)
	filter := safety.NewFilter(cfg.Safety.Channels.Allowlist, cfg.Safety.Channels.Denylist)
	session := discord.NewFromSession(dg, channels, router, filter, logger)

	if err := session.Open(); err != nil {
		logger.Error("failed to open Discord connection", "error", err)
		return 1
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("discord close error", "error", err)
		}
	}()

	transportDone := make(chan struct{})
	go func() {
		transport.Run(ctx)
		close(transportDone)
	}()

	// 5. Presence loop, started once announce targets can be resolved.
	var loopOpts []presence.LoopOption
	if cfg.Announce.AnnounceOnStart {
		loopOpts = append(loopOpts, presence.WithPrime(dispatcher.AnnounceSummary))
	}
	loop := presence.NewLoop(presence.NewMonitor(facade), cfg.Announce.CheckInterval, dispatcher.Announce, logger, loopOpts...)
	loopStarted := startAfter(ctx, session.Ready(), readyTimeout, loop.Start, logger)
	// Cancel first, then wait for the starter so a Start racing shutdown is
	// always joined by Stop.
	stopLoop := func() {
		stop()
		loopStarted()
		loop.Stop()
	}
	defer stopLoop()

	// 6. MCP server.
	mcpServer := server.NewMCPServer("mumblebot", "1.0.0", server.WithToolCapabilities(false))
	var registrations []tools.Registration
	registrations = append(registrations, voice.VoiceTools(dispatcher, auditLogger, logger)...)
	registrations = append(registrations, voice.AnnounceTools(transport, channels, cfg.Announce.Channels, filter, auditLogger, logger)...)
	tools.RegisterAll(mcpServer, registrations)

	// 7. Serve until stdin closes or a signal arrives.
	if *useStdio {
		logger.Info("starting in stdio mode")
		errLog := slog.NewLogLogger(logger.Handler(), slog.LevelError)
		if err := server.ServeStdio(mcpServer, server.WithErrorLogger(errLog)); err != nil {
			logger.Error("stdio server error", "error", err)
		}
	} else if err := serveHTTP(ctx, mcpServer, cfg, logger); err != nil {
		logger.Error("HTTP server error", "error", err)
	}

	logger.Info("shutting down")
	stopLoop()
	<-transportDone
	logger.Info("server stopped", "undelivered", q.Len(), "dropped", q.Dropped())
	return 0
}

// startAfter calls start once ready is closed or timeout elapses, unless ctx
// ends first. The returned wait blocks until start has returned or been
// skipped.
func startAfter(ctx context.Context, ready <-chan struct{}, timeout time.Duration, start func(context.Context) error, logger *slog.Logger) (wait func()) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-ready:
		case <-timer.C:
			logger.Warn("discord not ready, starting presence loop anyway", "waited", timeout)
		case <-ctx.Done():
			return
		}
		if err := start(ctx); err != nil {
			logger.Error("presence loop not started", "error", err)
		}
	}()
	return func() { <-done }
}

// serveHTTP serves the MCP streamable HTTP transport behind bearer auth
// until ctx is cancelled.
func serveHTTP(ctx context.Context, mcpServer *server.MCPServer, cfg *config.Config, logger *slog.Logger) error {
	handler := auth.NewAuthMiddleware(cfg.Server.AuthToken, logger)(server.NewStreamableHTTPServer(mcpServer))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func configPathFromEnv() string {
	if path := os.Getenv(configPathEnv); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadConfig reads path, falling back to defaults when the file does not
// exist, then applies environment overrides and validates the result.
func loadConfig(path string, logger *slog.Logger) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Warn("config file not found, using defaults", "path", path)
		cfg = config.DefaultConfig()
	case err != nil:
		return nil, &config.ConfigurationError{Reason: err.Error()}
	default:
		logger.Info("loaded config", "path", path)
	}

	if err := config.ApplyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	if cfg.Discord.Token == "" {
		return nil, &config.ConfigurationError{Field: "Discord.Token", Reason: "is required (set MUMBLEBOT_DISCORD_TOKEN)"}
	}
	if cfg.Discord.GuildID == "" {
		return nil, &config.ConfigurationError{Field: "Discord.GuildID", Reason: "is required"}
	}
	return cfg, nil
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}
