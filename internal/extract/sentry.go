package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"error-collector/internal/db"
	"error-collector/internal/schemas"
)

// AcceptedAction is the only issue-event action that gets stored. Sentry and
// GlitchTip both emit it for new issues; everything else ("resolved",
// "assigned", "triggered", ...) is acknowledged and dropped.
const AcceptedAction = "created"

// sentryIDPrefix tags event ids synthesized for re-occurrences of a known
// issue, where the vendor supplied no usable per-event identifier.
const sentryIDPrefix = "sentry"

// Sentry maps the structured issue-event payload into a stored record.
type Sentry struct {
	FilterByProject bool
	ExpectedProject string
	Log             *zap.Logger
	Now             func() time.Time
}

// Parse runs the full extraction over one payload. body is the raw request
// body, raw its parsed form. The strict typed parse is attempted first; on a
// type mismatch a relaxed pass re-reads the minimally required fields from
// the raw map so schema drift in optional fields cannot reject an otherwise
// usable event.
func (p *Sentry) Parse(body []byte, raw map[string]any) (*Outcome, error) {
	now := p.now()

	var typed schemas.SentryWebhook
	if err := json.Unmarshal(body, &typed); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return nil, &ValidationError{Path: "body", Reason: err.Error()}
		}
		if _, ok := raw["data"].(map[string]any); !ok {
			return nil, &ValidationError{Path: typeErr.Field, Reason: fmt.Sprintf("cannot unmarshal %s into %s", typeErr.Value, typeErr.Type)}
		}
		p.log().Warn("strict parse failed, falling back to raw extraction",
			zap.String("field", typeErr.Field))
		typed = schemas.SentryWebhook{Action: PickString(raw, "", "action")}
	}

	action := typed.Action
	if action == "" {
		action = PickString(raw, "unknown", "action")
	}
	if action != AcceptedAction {
		return &Outcome{Ignored: fmt.Sprintf("action %q ignored, only %q actions are processed", action, AcceptedAction)}, nil
	}

	dataRaw := PickMap(raw, "data")
	if typed.Data == nil && dataRaw == nil {
		return nil, ErrMissingData
	}

	// Resolve the three sub-objects, preferring the typed parse and falling
	// back to the raw map when strict typing yielded nothing.
	var issue, event, project any
	if typed.Data != nil {
		if typed.Data.Issue != nil {
			issue = typed.Data.Issue
		}
		if typed.Data.Event != nil {
			event = typed.Data.Event
		}
		if typed.Data.Project != nil {
			project = typed.Data.Project
		}
	}
	if issue == nil {
		if m := PickMap(dataRaw, "issue"); m != nil {
			issue = m
		}
	}
	if event == nil {
		if m := PickMap(dataRaw, "event"); m != nil {
			event = m
		}
	}
	if project == nil {
		if m := PickMap(dataRaw, "project"); m != nil {
			project = m
		}
	}

	projectName, projectSlug, projectID := resolveProject(project, issue)
	if p.FilterByProject && p.ExpectedProject != "" && projectName != p.ExpectedProject {
		p.log().Warn("webhook from unexpected project ignored",
			zap.String("project", projectName),
			zap.String("expected", p.ExpectedProject))
		return &Outcome{Ignored: fmt.Sprintf("project %q ignored", projectName)}, nil
	}

	issueID := PickString(issue, "", "id")
	eventID := PickString(event, "", "event_id", "eventID")
	if eventID == "" || eventID == issueID {
		// No per-event identity from the vendor: synthesize one so each
		// re-occurrence of the issue is stored as its own record.
		id := issueID
		if id == "" {
			id = "unknown"
		}
		eventID = fmt.Sprintf("%s-%s-%s", sentryIDPrefix, id, timestampSuffix(now))
	}

	message := PickString(event, "", "message", "title")
	if message == "" {
		message = PickString(issue, "", "title", "culprit")
	}
	if message == "" {
		message = "No message"
	}

	ts := now
	if f, ok := PickFloat(event, "timestamp"); ok && f > 0 {
		sec, frac := math.Modf(f)
		ts = time.Unix(int64(sec), int64(frac*1e9))
	}

	excType, excValue, frames := p.exceptionChain(event)
	trace, files, detailed := FormatFrames(frames)

	rec := &db.Error{
		EventID:            eventID,
		Project:            projectName,
		ProjectSlug:        nullable(projectSlug),
		ProjectID:          nullable(projectID),
		Message:            message,
		ExceptionType:      nullable(excType),
		ExceptionValue:     nullable(excValue),
		Stacktrace:         nullable(trace),
		StacktraceFiles:    marshalFrames(files),
		StacktraceDetailed: nullable(detailed),
		Breadcrumbs:        marshalBreadcrumbs(Pick(event, nil, "breadcrumbs")),
		IssueID:            nullable(issueID),
		IssueShortID:       nullable(PickString(issue, "", "shortId", "short_id")),
		IssueTitle:         nullable(PickString(issue, "", "title")),
		IssueCulprit:       nullable(PickString(issue, "", "culprit")),
		IssuePermalink:     nullable(PickString(issue, "", "permalink")),
		IssueLevel:         nullable(PickString(issue, "", "level")),
		IssueStatus:        nullable(PickString(issue, "", "status")),
		IssueLogger:        nullable(PickString(issue, "", "logger")),
		EventPlatform:      nullable(PickString(event, "", "platform")),
		EventLogger:        nullable(PickString(event, "", "logger")),
		EventLevel:         nullable(PickString(event, "", "level")),
		Timestamp:          ts,
		FullPayload:        string(body),
	}
	return &Outcome{Record: rec}, nil
}

// exceptionChain walks the fallback chain for exception info and frames:
// the exception list's first entry, then the event-level stacktrace, then
// the nested entries array. The first link that produces frames wins.
func (p *Sentry) exceptionChain(event any) (excType, excValue string, frames []any) {
	if values := exceptionValues(event); len(values) > 0 {
		first := values[0]
		excType = PickString(first, "", "type")
		excValue = PickString(first, "", "value")
		frames = frameList(first)
	}
	if frames == nil {
		frames = stacktraceFrames(Pick(event, nil, "stacktrace"))
	}
	if frames == nil {
		entries := listOf(Pick(event, nil, "entries"))
		ef := entriesOf(entries)
		if ef.frames != nil {
			frames = ef.frames
			if excType == "" {
				excType = ef.excType
			}
			if excValue == "" {
				excValue = ef.excValue
			}
		}
	}
	if frames != nil {
		p.log().Debug("extracted stacktrace frames", zap.Int("count", len(frames)))
	}
	return excType, excValue, frames
}

func (p *Sentry) log() *zap.Logger {
	if p.Log != nil {
		return p.Log
	}
	return zap.NewNop()
}

func (p *Sentry) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func resolveProject(project, issue any) (name, slug, id string) {
	if project != nil {
		return PickString(project, "unknown", "slug", "name"),
			PickString(project, "", "slug"),
			PickString(project, "", "id")
	}
	if sub := PickMap(issue, "project"); sub != nil {
		return PickString(sub, "unknown", "slug", "name"),
			PickString(sub, "", "slug"),
			PickString(sub, "", "id")
	}
	return "unknown", "", ""
}

// exceptionValues normalizes the several shapes the exception list arrives
// in: a typed {"values": [...]} chain, the same as a raw map, or a bare list.
func exceptionValues(event any) []any {
	exc := Pick(event, nil, "exception", "exceptions")
	switch t := exc.(type) {
	case *schemas.ExceptionChain:
		out := make([]any, len(t.Values))
		for i := range t.Values {
			out[i] = &t.Values[i]
		}
		return out
	case map[string]any:
		return PickSlice(t, "values")
	case []any:
		return t
	}
	return nil
}

// frameList pulls stacktrace frames out of a container holding a
// "stacktrace" field in either typed or raw form.
func frameList(container any) []any {
	return stacktraceFrames(Pick(container, nil, "stacktrace"))
}

func stacktraceFrames(st any) []any {
	switch t := st.(type) {
	case *schemas.Stacktrace:
		return rawFrames(t.Frames)
	case map[string]any:
		return PickSlice(t, "frames")
	}
	return nil
}

func rawFrames(frames []map[string]any) []any {
	if len(frames) == 0 {
		return nil
	}
	out := make([]any, len(frames))
	for i, f := range frames {
		out[i] = f
	}
	return out
}

// listOf flattens the typed/raw split for list-valued fields.
func listOf(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case []map[string]any:
		return rawFrames(t)
	}
	return nil
}

// marshalBreadcrumbs serializes a breadcrumb container: either a direct
// list or an object carrying a "values" list. Anything else is dropped.
func marshalBreadcrumbs(bc any) *string {
	values := listOf(bc)
	if values == nil {
		if m, ok := bc.(map[string]any); ok {
			values = PickSlice(m, "values")
		}
	}
	if len(values) == 0 {
		return nil
	}
	return marshalNullable(values)
}

func marshalFrames(files []schemas.FrameRecord) *string {
	if len(files) == 0 {
		return nil
	}
	return marshalNullable(files)
}

func marshalNullable(v any) *string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil
	}
	s := string(b)
	return &s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func timestampSuffix(now time.Time) string {
	return now.Format("20060102150405") + fmt.Sprintf("%03d", now.Nanosecond()/1e6)
}
