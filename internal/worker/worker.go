package worker

import (
	"context"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"error-collector/internal/db"
	"error-collector/internal/notify"
)

// TaskNotifyResolve carries one stored event id to the resolve-service
// notifier. Enqueued with MaxRetry(0): delivery is best-effort by contract.
const TaskNotifyResolve = "notify:resolve"

func NewNotifyTask(eventID string) *asynq.Task {
	return asynq.NewTask(TaskNotifyResolve, []byte(eventID))
}

// RecordStore is the one lookup the notify handler needs.
type RecordStore interface {
	ByEventID(ctx context.Context, eventID string) (*db.Error, error)
}

type Server struct {
	Store    RecordStore
	Notifier *notify.Notifier
	Log      *zap.Logger
}

func (s *Server) mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskNotifyResolve, s.handleNotify)
	return mux
}

// handleNotify loads the stored record and forwards it. Always returns nil:
// a failed notification is logged, never retried, and never re-queued.
func (s *Server) handleNotify(ctx context.Context, t *asynq.Task) error {
	eventID := string(t.Payload())
	rec, err := s.Store.ByEventID(ctx, eventID)
	if err != nil {
		s.Log.Warn("notify task for unknown event", zap.String("event_id", eventID), zap.Error(err))
		return nil
	}
	s.Notifier.Send(ctx, rec)
	return nil
}

func Run(redisAddr string, store *db.Store, notifier *notify.Notifier, log *zap.Logger) error {
	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: redisAddr}, asynq.Config{Concurrency: 5})
	w := &Server{Store: store, Notifier: notifier, Log: log}
	return srv.Run(w.mux())
}
