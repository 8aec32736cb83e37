// Package voice provides MCP tool handlers for querying and messaging the
// Mumble server.
package voice

import (
	"context"
	"log/slog"
	"time"

	"github.com/jamesprial/mumblebot/internal/dispatch"
	"github.com/jamesprial/mumblebot/internal/resolve"
	"github.com/jamesprial/mumblebot/internal/safety"
	"github.com/jamesprial/mumblebot/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Tool names.
const (
	ToolStatus = "mumble_status"
	ToolUsers  = "mumble_users"
	ToolSend   = "mumble_send"
)

// Service is the subset of *dispatch.Dispatcher the tools call.
type Service interface {
	Send(ctx context.Context, destination, text string, includeTree bool) (dispatch.SendResult, error)
	Status(ctx context.Context) (dispatch.Status, error)
	Names(ctx context.Context) ([]string, error)
}

var _ Service = (*dispatch.Dispatcher)(nil)

// StatusResponse is the response shape returned by mumble_status.
type StatusResponse struct {
	Running       bool   `json:"running"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Uptime        string `json:"uptime"`
	Summary       string `json:"summary"`
}

// UsersResponse is the response shape returned by mumble_users.
type UsersResponse struct {
	Count int      `json:"count"`
	Users []string `json:"users"`
}

// SendResponse is the response shape returned by mumble_send.
type SendResponse struct {
	Sent   bool   `json:"sent"`
	Kind   string `json:"kind"`
	Name   string `json:"name,omitempty"`
	Result string `json:"result"`
}

// VoiceTools returns all tool registrations for the voice server.
func VoiceTools(svc Service, audit *safety.AuditLogger, logger *slog.Logger) []tools.Registration {
	logger = tools.DefaultLogger(logger)
	return []tools.Registration{
		toolStatus(svc, audit, logger),
		toolUsers(svc, audit, logger),
		toolSend(svc, audit, logger),
	}
}

func toolStatus(svc Service, audit *safety.AuditLogger, logger *slog.Logger) tools.Registration {
	tool := mcp.NewTool(ToolStatus,
		mcp.WithDescription("Report whether the Mumble server is running and for how long."),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		params := map[string]any{}

		st, err := svc.Status(ctx)
		if err != nil {
			logger.Warn("status query failed", "error", err)
			return tools.AuditErrorResult(audit, ToolStatus, params, err, start), nil
		}

		tools.LogAudit(audit, ToolStatus, params, "ok", start)
		return tools.JSONResult(StatusResponse{
			Running:       st.Running,
			UptimeSeconds: int64(st.Uptime / time.Second),
			Uptime:        dispatch.FormatUptime(st.Uptime),
			Summary:       st.String(),
		}), nil
	}

	return tools.Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}

func toolUsers(svc Service, audit *safety.AuditLogger, logger *slog.Logger) tools.Registration {
	tool := mcp.NewTool(ToolUsers,
		mcp.WithDescription("List the users currently connected to the Mumble server."),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		params := map[string]any{}

		names, err := svc.Names(ctx)
		if err != nil {
			logger.Warn("roster query failed", "error", err)
			return tools.AuditErrorResult(audit, ToolUsers, params, err, start), nil
		}
		if names == nil {
			names = []string{}
		}

		tools.LogAudit(audit, ToolUsers, params, "ok", start)
		return tools.JSONResult(UsersResponse{Count: len(names), Users: names}), nil
	}

	return tools.Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}

func toolSend(svc Service, audit *safety.AuditLogger, logger *slog.Logger) tools.Registration {
	tool := mcp.NewTool(ToolSend,
		mcp.WithDescription("Send a text message to a Mumble channel or user. Without a destination the message goes to the root channel."),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Message text"),
		),
		mcp.WithString("destination",
			mcp.Description("Channel name, channel ID, or user name (optional, defaults to the root channel)"),
		),
		mcp.WithBoolean("tree",
			mcp.Description("Also deliver to subchannels when the destination is a channel"),
			mcp.DefaultBool(resolve.DefaultIncludeTree),
		),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		text := req.GetString("text", "")
		destination := req.GetString("destination", "")
		tree := req.GetBool("tree", resolve.DefaultIncludeTree)
		params := map[string]any{"destination": destination, "tree": tree, "text": text}

		if text == "" {
			tools.LogAudit(audit, ToolSend, params, "error: text is required", start)
			return tools.ErrorResult("text is required"), nil
		}

		logger.Debug("sending to voice server", "destination", destination, "tree", tree)
		res, err := svc.Send(ctx, destination, text, tree)
		if err != nil {
			return tools.AuditErrorResult(audit, ToolSend, params, err, start), nil
		}

		tools.LogAudit(audit, ToolSend, params, res.String(), start)
		return tools.JSONResult(SendResponse{
			Sent:   res.Sent(),
			Kind:   res.Kind.String(),
			Name:   res.Name,
			Result: res.String(),
		}), nil
	}

	return tools.Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}
