package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	m "github.com/go-chi/chi/v5/middleware"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"error-collector/internal/config"
	"error-collector/internal/db"
	"error-collector/internal/extract"
	"error-collector/internal/notify"
	"error-collector/internal/schemas"
	"error-collector/internal/storage"
	"error-collector/internal/worker"
)

// ErrorStore is the persistence surface the handlers use. *db.Store is the
// production implementation.
type ErrorStore interface {
	ExistsEvent(ctx context.Context, eventID string) (bool, error)
	Insert(ctx context.Context, rec *db.Error) error
	ByEventID(ctx context.Context, eventID string) (*db.Error, error)
	Latest(ctx context.Context) (*db.Error, error)
	All(ctx context.Context) ([]db.Error, error)
	Ping() error
}

type Server struct {
	Store     ErrorStore
	Sentry    *extract.Sentry
	GlitchTip *extract.GlitchTip
	Notifier  *notify.Notifier
	Asynq     *asynq.Client
	Archive   *storage.Client
	Cfg       config.Config
	Log       *zap.Logger
}

func NewServer(s *Server) *http.Server {
	r := chi.NewRouter()
	r.Use(m.RequestID, m.RealIP, m.Logger, m.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(VerifySignature(s.Cfg.WebhookSecret, s.Log))
		r.Post("/webhook", s.handleWebhook)
		// Vendor-specific paths kept for existing webhook configurations;
		// format detection applies on all of them.
		r.Post("/sentry/webhook", s.handleWebhook)
		r.Post("/glitchtip/webhook", s.handleWebhook)
	})

	r.Get("/errors", s.listErrors)
	r.Get("/errors/latest", s.latestError)
	r.Get("/config", s.showConfig)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := s.Store.Ping(); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "db error"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return &http.Server{Addr: s.Cfg.APIAddr, Handler: r}
}

type errResp struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errResp{"cannot read body"})
		return
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		writeJSON(w, http.StatusBadRequest, errResp{"invalid JSON: " + err.Error()})
		return
	}

	format := extract.Detect(raw)
	s.Log.Info("webhook received",
		zap.String("format", format.String()),
		zap.Int("bytes", len(body)))

	var outcome *extract.Outcome
	switch format {
	case extract.FormatGlitchTip:
		outcome, err = s.GlitchTip.Parse(r.Context(), body, raw)
	default:
		outcome, err = s.Sentry.Parse(body, raw)
	}
	if err != nil {
		s.writeParseError(w, err)
		return
	}
	if outcome.Ignored != "" {
		writeJSON(w, http.StatusOK, schemas.IgnoredResp{Message: outcome.Ignored})
		return
	}

	rec := outcome.Record

	// Dedup gate for the structured shape. Chat-format ids carry a
	// timestamp suffix, so they never hit this path.
	if format == extract.FormatSentry {
		exists, err := s.Store.ExistsEvent(r.Context(), rec.EventID)
		if err != nil {
			s.Log.Error("dedup lookup failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errResp{"failed to process webhook"})
			return
		}
		if exists {
			s.Log.Warn("event already stored", zap.String("event_id", rec.EventID))
			writeJSON(w, http.StatusOK, schemas.IgnoredResp{Message: "Error already exists", EventID: rec.EventID})
			return
		}
	}

	if err := s.Store.Insert(r.Context(), rec); err != nil {
		if errors.Is(err, db.ErrDuplicateEvent) {
			// Concurrent delivery won the race; same no-op semantics.
			writeJSON(w, http.StatusOK, schemas.IgnoredResp{Message: "Error already exists", EventID: rec.EventID})
			return
		}
		s.Log.Error("insert failed", zap.String("event_id", rec.EventID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errResp{"failed to process webhook"})
		return
	}

	s.Log.Info("stored error",
		zap.String("event_id", rec.EventID),
		zap.String("project", rec.Project),
		zap.Int64("id", rec.ID))
	writeJSON(w, http.StatusCreated, schemas.AcceptedResp{
		Message: "Error saved successfully",
		EventID: rec.EventID,
		ID:      rec.ID,
	})

	// Post-commit side effects. The response is already written; nothing
	// below can touch it.
	s.archivePayload(rec.EventID, body)
	s.dispatchNotify(rec)
}

func (s *Server) writeParseError(w http.ResponseWriter, err error) {
	var vErr *extract.ValidationError
	switch {
	case errors.Is(err, extract.ErrMissingData):
		writeJSON(w, http.StatusBadRequest, errResp{err.Error()})
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusUnprocessableEntity, errResp{vErr.Error()})
	default:
		s.Log.Error("webhook processing failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errResp{"failed to process webhook"})
	}
}

// archivePayload copies the raw body to object storage when configured.
// Detached and best-effort.
func (s *Server) archivePayload(eventID string, body []byte) {
	if s.Archive == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if ref, err := s.Archive.PutRaw(ctx, eventID, body); err != nil {
			s.Log.Warn("payload archive failed", zap.String("event_id", eventID), zap.Error(err))
		} else {
			s.Log.Info("payload archived", zap.String("ref", ref))
		}
	}()
}

// dispatchNotify hands the stored record to the resolve-service notifier:
// through the task queue when Redis is configured, else on a detached
// goroutine. Either way the ingestion response never waits on it.
func (s *Server) dispatchNotify(rec *db.Error) {
	if !s.Cfg.ResolveServiceEnabled {
		return
	}
	if s.Asynq != nil {
		task := worker.NewNotifyTask(rec.EventID)
		if _, err := s.Asynq.Enqueue(task, asynq.MaxRetry(0)); err != nil {
			s.Log.Warn("notify enqueue failed", zap.String("event_id", rec.EventID), zap.Error(err))
		}
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.Notifier.Send(ctx, rec)
	}()
}

func (s *Server) latestError(w http.ResponseWriter, r *http.Request) {
	rec, err := s.Store.Latest(r.Context())
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"error": "not_found"})
		return
	}
	writeJSON(w, http.StatusOK, toErrorOut(rec))
}

func (s *Server) listErrors(w http.ResponseWriter, r *http.Request) {
	recs, err := s.Store.All(r.Context())
	if err != nil {
		s.Log.Error("list errors failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errResp{"internal server error"})
		return
	}
	out := make([]schemas.ErrorOut, 0, len(recs))
	for i := range recs {
		out = append(out, toErrorOut(&recs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"project_filter": map[string]any{
			"enabled":  s.Cfg.FilterByProject,
			"expected": s.Cfg.ExpectedProject,
		},
		"signature_verification": s.Cfg.WebhookSecret != "",
		"glitchtip_api":          s.Cfg.GlitchTipAPIToken != "",
		"resolve_service": map[string]any{
			"enabled": s.Cfg.ResolveServiceEnabled,
			"queue":   s.Cfg.TrackerQueue,
		},
		"archive": s.Cfg.ArchiveEnabled(),
	})
}

func toErrorOut(rec *db.Error) schemas.ErrorOut {
	out := schemas.ErrorOut{
		ID:                 rec.ID,
		EventID:            rec.EventID,
		Project:            rec.Project,
		ProjectSlug:        str(rec.ProjectSlug),
		ProjectID:          str(rec.ProjectID),
		Message:            rec.Message,
		ExceptionType:      str(rec.ExceptionType),
		ExceptionValue:     str(rec.ExceptionValue),
		Stacktrace:         str(rec.Stacktrace),
		StacktraceDetailed: str(rec.StacktraceDetailed),
		IssueID:            str(rec.IssueID),
		IssueShortID:       str(rec.IssueShortID),
		IssueTitle:         str(rec.IssueTitle),
		IssueCulprit:       str(rec.IssueCulprit),
		IssuePermalink:     str(rec.IssuePermalink),
		IssueLevel:         str(rec.IssueLevel),
		IssueStatus:        str(rec.IssueStatus),
		IssueLogger:        str(rec.IssueLogger),
		EventPlatform:      str(rec.EventPlatform),
		EventLogger:        str(rec.EventLogger),
		EventLevel:         str(rec.EventLevel),
		Timestamp:          rec.Timestamp,
		CreatedAt:          rec.CreatedAt,
	}
	if rec.StacktraceFiles != nil {
		_ = json.Unmarshal([]byte(*rec.StacktraceFiles), &out.StacktraceFiles)
	}
	if rec.Breadcrumbs != nil {
		_ = json.Unmarshal([]byte(*rec.Breadcrumbs), &out.Breadcrumbs)
	}
	return out
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
