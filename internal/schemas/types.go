package schemas

import "time"

// SentryWebhook is the structured issue-event payload ("Shape A"):
// {action, data: {issue, event, project}}. Every field is optional under
// strict typing; extraction falls back to the raw map when typed fields
// come back null, so drift in extra vendor fields does not break ingestion.
type SentryWebhook struct {
	Action string         `json:"action"`
	Data   *SentryData    `json:"data"`
	Actor  map[string]any `json:"actor,omitempty"`
}

type SentryData struct {
	Issue   *SentryIssue   `json:"issue"`
	Event   *SentryEvent   `json:"event"`
	Project *SentryProject `json:"project"`
}

type SentryProject struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

type SentryIssue struct {
	ID        string         `json:"id"`
	ShortID   string         `json:"shortId"`
	Title     string         `json:"title"`
	Culprit   string         `json:"culprit"`
	Permalink string         `json:"permalink"`
	Level     string         `json:"level"`
	Status    string         `json:"status"`
	Logger    string         `json:"logger"`
	Project   map[string]any `json:"project"`
}

type SentryEvent struct {
	EventID     string           `json:"event_id"`
	Message     string           `json:"message"`
	Title       string           `json:"title"`
	Platform    string           `json:"platform"`
	Logger      string           `json:"logger"`
	Level       string           `json:"level"`
	Timestamp   float64          `json:"timestamp"`
	Exception   *ExceptionChain  `json:"exception"`
	Stacktrace  *Stacktrace      `json:"stacktrace"`
	Entries     []map[string]any `json:"entries"`
	Breadcrumbs any              `json:"breadcrumbs"`
}

// ExceptionChain mirrors the vendor's {"values": [...]} wrapper.
type ExceptionChain struct {
	Values []ExceptionValue `json:"values"`
}

type ExceptionValue struct {
	Type       string      `json:"type"`
	Value      string      `json:"value"`
	Module     string      `json:"module"`
	Stacktrace *Stacktrace `json:"stacktrace"`
}

type Stacktrace struct {
	Frames []map[string]any `json:"frames"`
}

// GlitchTipWebhook is the Slack/Teams-compatible payload ("Shape B").
type GlitchTipWebhook struct {
	Alias       string       `json:"alias"`
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments"`
	Sections    []Section    `json:"sections"`
}

type Attachment struct {
	Title     string            `json:"title"`
	TitleLink string            `json:"title_link"`
	Text      string            `json:"text"`
	Color     string            `json:"color"`
	Fields    []AttachmentField `json:"fields"`
}

type AttachmentField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type Section struct {
	ActivityTitle    string `json:"activityTitle"`
	ActivitySubtitle string `json:"activitySubtitle"`
}

// FrameRecord is the structured form of one stack frame.
type FrameRecord struct {
	Filename    string            `json:"filename"`
	AbsPath     string            `json:"abs_path"`
	Line        int               `json:"line"`
	Function    string            `json:"function"`
	ContextLine string            `json:"context_line,omitempty"`
	PreContext  []string          `json:"pre_context,omitempty"`
	PostContext []string          `json:"post_context,omitempty"`
	Vars        map[string]string `json:"vars,omitempty"`
}

// ResolvePayload is the reduced record POSTed to the resolve service.
type ResolvePayload struct {
	ExceptionType  string `json:"exception_type"`
	ExceptionValue string `json:"exception_value"`
	Message        string `json:"message"`
	ProjectName    string `json:"project_name"`
	SendToTracker  bool   `json:"send_to_tracker"`
	Stacktrace     string `json:"stacktrace"`
	TrackerQueue   string `json:"tracker_queue"`
}

type AcceptedResp struct {
	Message string `json:"message"`
	EventID string `json:"event_id"`
	ID      int64  `json:"id"`
}

type IgnoredResp struct {
	Message string `json:"message"`
	EventID string `json:"event_id,omitempty"`
}

type ErrorOut struct {
	ID                 int64            `json:"id"`
	EventID            string           `json:"event_id"`
	Project            string           `json:"project"`
	ProjectSlug        string           `json:"project_slug,omitempty"`
	ProjectID          string           `json:"project_id,omitempty"`
	Message            string           `json:"message"`
	ExceptionType      string           `json:"exception_type,omitempty"`
	ExceptionValue     string           `json:"exception_value,omitempty"`
	Stacktrace         string           `json:"stacktrace,omitempty"`
	StacktraceFiles    []FrameRecord    `json:"stacktrace_files,omitempty"`
	StacktraceDetailed string           `json:"stacktrace_detailed,omitempty"`
	Breadcrumbs        []map[string]any `json:"breadcrumbs,omitempty"`
	IssueID            string           `json:"issue_id,omitempty"`
	IssueShortID       string           `json:"issue_short_id,omitempty"`
	IssueTitle         string           `json:"issue_title,omitempty"`
	IssueCulprit       string           `json:"issue_culprit,omitempty"`
	IssuePermalink     string           `json:"issue_permalink,omitempty"`
	IssueLevel         string           `json:"issue_level,omitempty"`
	IssueStatus        string           `json:"issue_status,omitempty"`
	IssueLogger        string           `json:"issue_logger,omitempty"`
	EventPlatform      string           `json:"event_platform,omitempty"`
	EventLogger        string           `json:"event_logger,omitempty"`
	EventLevel         string           `json:"event_level,omitempty"`
	Timestamp          time.Time        `json:"timestamp"`
	CreatedAt          time.Time        `json:"created_at"`
}
