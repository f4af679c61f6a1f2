package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// ErrDuplicateEvent is returned by Insert when a record with the same
// event_id already exists. Callers treat it as "already stored", not a fault.
var ErrDuplicateEvent = errors.New("event already stored")

func MustOpen(dsn string) *sqlx.DB {
	return sqlx.MustConnect("pgx", dsn)
}

func WithTx(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Store is the persistence gate: a single-table view of stored errors with
// the dedup index on event_id.
type Store struct {
	DB *sqlx.DB
}

func NewStore(dbx *sqlx.DB) *Store { return &Store{DB: dbx} }

func (s *Store) Ping() error { return s.DB.Ping() }

func (s *Store) ExistsEvent(ctx context.Context, eventID string) (bool, error) {
	var n int
	err := s.DB.GetContext(ctx, &n, `select count(1) from errors where event_id=$1`, eventID)
	return n > 0, err
}

const insertSQL = `
insert into errors (
	event_id, project, project_slug, project_id, message,
	exception_type, exception_value,
	stacktrace, stacktrace_files, stacktrace_detailed, breadcrumbs,
	issue_id, issue_short_id, issue_title, issue_culprit, issue_permalink,
	issue_level, issue_status, issue_logger,
	event_platform, event_logger, event_level,
	timestamp, full_payload
) values (
	:event_id, :project, :project_slug, :project_id, :message,
	:exception_type, :exception_value,
	:stacktrace, :stacktrace_files, :stacktrace_detailed, :breadcrumbs,
	:issue_id, :issue_short_id, :issue_title, :issue_culprit, :issue_permalink,
	:issue_level, :issue_status, :issue_logger,
	:event_platform, :event_logger, :event_level,
	:timestamp, :full_payload
) returning id, created_at`

// Insert stores one record in a single transaction. A unique-index clash on
// event_id (two concurrent deliveries of the same event) surfaces as
// ErrDuplicateEvent; nothing is left behind on any failure.
func (s *Store) Insert(ctx context.Context, rec *Error) error {
	err := WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		rows, err := tx.NamedQuery(insertSQL, rec)
		if err != nil {
			return err
		}
		defer rows.Close()
		if rows.Next() {
			if err := rows.Scan(&rec.ID, &rec.CreatedAt); err != nil {
				return err
			}
		}
		return rows.Err()
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEvent
		}
		return err
	}
	return nil
}

func (s *Store) ByEventID(ctx context.Context, eventID string) (*Error, error) {
	var rec Error
	if err := s.DB.GetContext(ctx, &rec, `select * from errors where event_id=$1`, eventID); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) Latest(ctx context.Context) (*Error, error) {
	var rec Error
	if err := s.DB.GetContext(ctx, &rec, `select * from errors order by created_at desc limit 1`); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) All(ctx context.Context) ([]Error, error) {
	recs := []Error{}
	err := s.DB.SelectContext(ctx, &recs, `select * from errors order by created_at desc`)
	return recs, err
}
