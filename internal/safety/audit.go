package safety

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AuditEntry records one command or tool invocation.
type AuditEntry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Tool      string         `json:"tool"`
	Params    map[string]any `json:"params"`
	Result    string         `json:"result"`
	Duration  time.Duration  `json:"-"`
}

type auditRecord struct {
	AuditEntry
	DurationMS int64 `json:"duration_ms"`
}

// AuditLogger writes audit entries as JSON lines. It is safe for concurrent
// use and a nil *AuditLogger discards everything.
type AuditLogger struct {
	mu sync.Mutex
	w  io.Writer
}

// NewAuditLogger returns an AuditLogger writing to w, or nil when w is nil.
func NewAuditLogger(w io.Writer) *AuditLogger {
	if w == nil {
		return nil
	}
	return &AuditLogger{w: w}
}

// Log writes entry as a single JSON line. Entries without an ID get a
// random UUID.
func (a *AuditLogger) Log(entry AuditEntry) error {
	if a == nil {
		return nil
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	data, err := json.Marshal(auditRecord{AuditEntry: entry, DurationMS: entry.Duration.Milliseconds()})
	if err != nil {
		return fmt.Errorf("safety: marshal audit entry: %w", err)
	}
	data = append(data, '\n')

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := a.w.Write(data); err != nil {
		return fmt.Errorf("safety: write audit entry: %w", err)
	}
	return nil
}
