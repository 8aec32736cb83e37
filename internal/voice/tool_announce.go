package voice

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jamesprial/mumblebot/internal/dispatch"
	"github.com/jamesprial/mumblebot/internal/safety"
	"github.com/jamesprial/mumblebot/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ToolAnnounce posts text to chat channels through the announcement path.
const ToolAnnounce = "chat_announce"

// AnnounceTools returns the chat_announce registration. targets are the
// configured announce channels used when the caller names none. An
// explicitly named channel must resolve through channels and pass filter.
func AnnounceTools(b dispatch.Broadcaster, channels tools.ChannelResolver, targets []string, filter *safety.Filter, audit *safety.AuditLogger, logger *slog.Logger) []tools.Registration {
	logger = tools.DefaultLogger(logger)
	return []tools.Registration{
		toolAnnounce(b, channels, append([]string(nil), targets...), filter, audit, logger),
	}
}

func toolAnnounce(b dispatch.Broadcaster, channels tools.ChannelResolver, targets []string, filter *safety.Filter, audit *safety.AuditLogger, logger *slog.Logger) tools.Registration {
	tool := mcp.NewTool(ToolAnnounce,
		mcp.WithDescription("Post a message to the chat channels that receive voice presence announcements, or to one named channel."),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Message content to post"),
		),
		mcp.WithString("channel",
			mcp.Description("Channel name or ID (optional, defaults to the announce channels)"),
		),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		content := req.GetString("content", "")
		channel := req.GetString("channel", "")
		params := map[string]any{"channel": channel, "content": content}

		if strings.TrimSpace(content) == "" {
			tools.LogAudit(audit, ToolAnnounce, params, "error: content is required", start)
			return tools.ErrorResult("content is required"), nil
		}

		if channel == "" {
			b.Broadcast(targets, content)
			tools.LogAudit(audit, ToolAnnounce, params, "queued", start)
			if len(targets) == 0 {
				return mcp.NewToolResultText("Message queued for all channels"), nil
			}
			return mcp.NewToolResultText("Message queued for " + strings.Join(targets, ", ")), nil
		}

		id, name, err := tools.ResolveAndFilterChannel(channels, filter, channel)
		var denied *tools.ChannelDeniedError
		if errors.As(err, &denied) {
			logger.Debug("channel access denied", "channel", channel, "name", denied.Channel)
			tools.LogAudit(audit, ToolAnnounce, params, "denied", start)
			return tools.ErrorResult(err.Error()), nil
		}
		if err != nil {
			return tools.AuditErrorResult(audit, ToolAnnounce, params, err, start), nil
		}
		logger.Debug("resolved channel", "input", channel, "channelID", id)

		b.Broadcast([]string{id}, content)

		tools.LogAudit(audit, ToolAnnounce, params, "queued", start)
		return mcp.NewToolResultText("Message queued for #" + name), nil
	}

	return tools.Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}
