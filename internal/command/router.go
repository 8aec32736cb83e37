// Package command implements the chat commands that query and message the
// voice server.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/jamesprial/mumblebot/internal/dispatch"
	"github.com/jamesprial/mumblebot/internal/mumble"
	"github.com/jamesprial/mumblebot/internal/safety"
	"github.com/jamesprial/mumblebot/internal/tools"
)

// Command names, without the prefix.
const (
	CmdStatus = "mumblestatus"
	CmdUsers  = "mumbleusers"
	CmdSend   = "mumblesend"
)

// Invocation is one chat message that may contain a command.
type Invocation struct {
	Author  string
	Channel string
	Content string
}

// Service is the voice-server side of the commands. *dispatch.Dispatcher
// satisfies it.
type Service interface {
	Send(ctx context.Context, destination, text string, includeTree bool) (dispatch.SendResult, error)
	Status(ctx context.Context) (dispatch.Status, error)
	Users(ctx context.Context) (string, error)
}

var _ Service = (*dispatch.Dispatcher)(nil)

// Router matches prefixed chat messages to commands.
type Router struct {
	svc    Service
	prefix string
	audit  *safety.AuditLogger
	logger *slog.Logger
}

// NewRouter constructs a Router. An empty prefix defaults to "!". A nil
// audit logger disables auditing; a nil logger defaults to slog.Default().
func NewRouter(svc Service, prefix string, audit *safety.AuditLogger, logger *slog.Logger) *Router {
	if prefix == "" {
		prefix = "!"
	}
	return &Router{
		svc:    svc,
		prefix: prefix,
		audit:  audit,
		logger: tools.DefaultLogger(logger),
	}
}

// Handle runs the command in inv, if any. handled is false when the message
// is not a known command; otherwise reply is always non-empty.
func (r *Router) Handle(ctx context.Context, inv Invocation) (reply string, handled bool) {
	body, ok := strings.CutPrefix(strings.TrimSpace(inv.Content), r.prefix)
	if !ok {
		return "", false
	}
	name, rest := cutWord(body)
	name = strings.ToLower(name)

	start := time.Now()
	var err error
	switch name {
	case CmdStatus:
		reply, err = r.status(ctx)
	case CmdUsers:
		reply, err = r.svc.Users(ctx)
	case CmdSend:
		reply, err = r.send(ctx, inv, rest)
	default:
		return "", false
	}

	if err != nil {
		reply = r.failure(name, err)
	}
	tools.LogAudit(r.audit, r.prefix+name, map[string]any{
		"author":  inv.Author,
		"channel": inv.Channel,
		"args":    rest,
	}, reply, start)
	return reply, true
}

func (r *Router) status(ctx context.Context) (string, error) {
	st, err := r.svc.Status(ctx)
	if err != nil {
		return "", err
	}
	return st.String(), nil
}

func (r *Router) send(ctx context.Context, inv Invocation, args string) (string, error) {
	req, err := parseSend(args)
	if err != nil {
		return "", err
	}
	text := fmt.Sprintf("Message from %s in %s: %s", inv.Author, inv.Channel, req.Message)
	res, err := r.svc.Send(ctx, req.Destination, text, req.IncludeTree)
	if err != nil {
		return "", err
	}
	return res.String(), nil
}

func (r *Router) failure(name string, err error) string {
	var uerr *UsageError
	switch {
	case errors.As(err, &uerr):
		r.logger.Debug("command usage error", "command", name, "error", err)
		return fmt.Sprintf("%s Usage: %s%s", uerr.Reason, r.prefix, uerr.Usage)
	case mumble.IsTransportError(err):
		r.logger.Warn("voice server unavailable", "command", name, "error", err)
		return "Voice server unavailable: " + err.Error()
	default:
		r.logger.Error("command failed", "command", name, "error", err)
		return "Error: " + err.Error()
	}
}

// cutWord splits s into its first whitespace-delimited word and the rest.
func cutWord(s string) (word, rest string) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}
