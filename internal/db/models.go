package db

import "time"

// Error is one normalized, stored error record. Written exactly once at
// webhook-acceptance time and never mutated afterwards.
type Error struct {
	ID                 int64     `db:"id"`
	EventID            string    `db:"event_id"`
	Project            string    `db:"project"`
	ProjectSlug        *string   `db:"project_slug"`
	ProjectID          *string   `db:"project_id"`
	Message            string    `db:"message"`
	ExceptionType      *string   `db:"exception_type"`
	ExceptionValue     *string   `db:"exception_value"`
	Stacktrace         *string   `db:"stacktrace"`
	StacktraceFiles    *string   `db:"stacktrace_files"`
	StacktraceDetailed *string   `db:"stacktrace_detailed"`
	Breadcrumbs        *string   `db:"breadcrumbs"`
	IssueID            *string   `db:"issue_id"`
	IssueShortID       *string   `db:"issue_short_id"`
	IssueTitle         *string   `db:"issue_title"`
	IssueCulprit       *string   `db:"issue_culprit"`
	IssuePermalink     *string   `db:"issue_permalink"`
	IssueLevel         *string   `db:"issue_level"`
	IssueStatus        *string   `db:"issue_status"`
	IssueLogger        *string   `db:"issue_logger"`
	EventPlatform      *string   `db:"event_platform"`
	EventLogger        *string   `db:"event_logger"`
	EventLevel         *string   `db:"event_level"`
	Timestamp          time.Time `db:"timestamp"`
	CreatedAt          time.Time `db:"created_at"`
	FullPayload        string    `db:"full_payload"`
}
