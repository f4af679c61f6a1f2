package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"error-collector/internal/db"
	"error-collector/internal/schemas"
)

// Notifier forwards a reduced payload for a stored record to the resolve
// service. Strictly best-effort: every failure is logged and swallowed, and
// nothing here ever runs on the ingestion response path.
type Notifier struct {
	Enabled    bool
	URL        string
	Token      string
	Queue      string
	HTTPClient *http.Client
	Log        *zap.Logger
}

// BuildPayload reduces a stored record to what the resolve service consumes.
// The slug is preferred over the display name, the detailed trace over the
// plain one.
func BuildPayload(rec *db.Error, queue string) schemas.ResolvePayload {
	project := deref(rec.ProjectSlug)
	if project == "" {
		project = rec.Project
	}
	stack := deref(rec.StacktraceDetailed)
	if stack == "" {
		stack = deref(rec.Stacktrace)
	}
	return schemas.ResolvePayload{
		ExceptionType:  deref(rec.ExceptionType),
		ExceptionValue: deref(rec.ExceptionValue),
		Message:        rec.Message,
		ProjectName:    project,
		SendToTracker:  true,
		Stacktrace:     stack,
		TrackerQueue:   queue,
	}
}

// Send posts the reduced payload and reports whether it was delivered.
// Skips silently when disabled, when no URL is configured, or when the
// record has no stacktrace at all (the resolve service rejects empty ones).
func (n *Notifier) Send(ctx context.Context, rec *db.Error) bool {
	if !n.Enabled || n.URL == "" {
		return false
	}
	payload := BuildPayload(rec, n.Queue)
	if payload.Stacktrace == "" {
		n.log().Info("skipping resolve notification, record has no stacktrace",
			zap.String("event_id", rec.EventID))
		return false
	}

	body, err := json.Marshal(payload)
	if err != nil {
		n.log().Error("marshal resolve payload", zap.Error(err))
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(body))
	if err != nil {
		n.log().Error("build resolve request", zap.Error(err))
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	if n.Token != "" {
		req.Header.Set("Authorization", "Bearer "+n.Token)
	}

	resp, err := n.client().Do(req)
	if err != nil {
		n.log().Warn("resolve service unreachable",
			zap.String("event_id", rec.EventID), zap.Error(err))
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		n.log().Warn("resolve service rejected payload",
			zap.String("event_id", rec.EventID),
			zap.Int("status", resp.StatusCode))
		return false
	}
	n.log().Info("sent record to resolve service", zap.String("event_id", rec.EventID))
	return true
}

func (n *Notifier) client() *http.Client {
	if n.HTTPClient != nil {
		return n.HTTPClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func (n *Notifier) log() *zap.Logger {
	if n.Log != nil {
		return n.Log
	}
	return zap.NewNop()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
