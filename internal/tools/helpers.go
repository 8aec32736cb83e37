// Package tools holds the pieces shared by the MCP tool handlers and the
// chat command router: result builders, audit records and chat channel
// checks.
package tools

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jamesprial/mumblebot/internal/safety"
	"github.com/mark3labs/mcp-go/mcp"
)

// JSONResult renders a tool response struct (status, user list, send
// outcome) as indented JSON text.
func JSONResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("error marshaling result: %v", err))
	}
	return mcp.NewToolResultText(string(data))
}

// ErrorResult returns a tool error with the text "error: <msg>".
func ErrorResult(msg string) *mcp.CallToolResult {
	return mcp.NewToolResultError("error: " + msg)
}

// LogAudit records one invocation. name is the tool name ("mumble_send") or
// the prefixed chat command ("!mumblesend"). A nil audit logger is a no-op.
func LogAudit(audit *safety.AuditLogger, name string, params map[string]any, result string, start time.Time) {
	if audit == nil {
		return
	}
	_ = audit.Log(safety.AuditEntry{
		Timestamp: start,
		Tool:      name,
		Params:    params,
		Result:    result,
		Duration:  time.Since(start),
	})
}

// DefaultLogger returns l, or slog.Default() when l is nil.
func DefaultLogger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

// AuditErrorResult audits err as the outcome and returns it as a tool error.
func AuditErrorResult(audit *safety.AuditLogger, name string, params map[string]any, err error, start time.Time) *mcp.CallToolResult {
	LogAudit(audit, name, params, "error: "+err.Error(), start)
	return ErrorResult(err.Error())
}
