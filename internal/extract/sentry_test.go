package extract

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 8, 31, 12, 0, 0, 123_000_000, time.UTC)

func parseSentry(t *testing.T, p *Sentry, body string) (*Outcome, error) {
	t.Helper()
	if p == nil {
		p = &Sentry{}
	}
	if p.Now == nil {
		p.Now = func() time.Time { return testNow }
	}
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &raw))
	return p.Parse([]byte(body), raw)
}

func TestSentryIgnoresOtherActions(t *testing.T) {
	for _, action := range []string{"resolved", "assigned", "triggered", "unknown"} {
		out, err := parseSentry(t, nil, `{"action":"`+action+`","data":{"issue":{"id":"1"}}}`)
		require.NoError(t, err)
		assert.Nil(t, out.Record)
		assert.Contains(t, out.Ignored, action)
	}
}

func TestSentryMissingData(t *testing.T) {
	_, err := parseSentry(t, nil, `{"action":"created"}`)
	assert.ErrorIs(t, err, ErrMissingData)
}

func TestSentryValidationFailure(t *testing.T) {
	_, err := parseSentry(t, nil, `{"action":"created","data":"nope"}`)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Path, "data")
}

func TestSentryFullExtraction(t *testing.T) {
	body := `{
	  "action": "created",
	  "data": {
	    "event": {
	      "event_id": "e1",
	      "message": "boom",
	      "timestamp": 1700000000.5,
	      "platform": "python",
	      "level": "error",
	      "exception": {"values": [{
	        "type": "RuntimeError",
	        "value": "boom",
	        "stacktrace": {"frames": [
	          {"filename": "a.py", "lineno": 1, "function": "outer"},
	          {"filename": "b.py", "lineno": 2, "function": "inner"}
	        ]}
	      }]},
	      "breadcrumbs": {"values": [{"category": "http", "message": "GET /"}]}
	    },
	    "issue": {
	      "id": "101", "shortId": "APP-1", "title": "boom",
	      "culprit": "a.outer", "permalink": "https://s/issues/101",
	      "level": "error", "status": "unresolved"
	    },
	    "project": {"id": "7", "slug": "shop", "name": "Shop"}
	  }
	}`

	out, err := parseSentry(t, nil, body)
	require.NoError(t, err)
	require.NotNil(t, out.Record)
	rec := out.Record

	assert.Equal(t, "e1", rec.EventID)
	assert.Equal(t, "shop", rec.Project)
	assert.Equal(t, "shop", *rec.ProjectSlug)
	assert.Equal(t, "7", *rec.ProjectID)
	assert.Equal(t, "boom", rec.Message)
	assert.Equal(t, "RuntimeError", *rec.ExceptionType)
	assert.Equal(t, "boom", *rec.ExceptionValue)
	assert.Equal(t, time.Unix(1700000000, 500_000_000).Unix(), rec.Timestamp.Unix())

	require.NotNil(t, rec.Stacktrace)
	assert.Contains(t, *rec.Stacktrace, `File "b.py", line 2, in inner`)
	require.NotNil(t, rec.StacktraceFiles)
	assert.Contains(t, *rec.StacktraceFiles, `"b.py"`)
	require.NotNil(t, rec.Breadcrumbs)
	assert.Contains(t, *rec.Breadcrumbs, "GET /")

	assert.Equal(t, "101", *rec.IssueID)
	assert.Equal(t, "APP-1", *rec.IssueShortID)
	assert.Equal(t, "unresolved", *rec.IssueStatus)
	assert.Equal(t, "python", *rec.EventPlatform)
	assert.Equal(t, "error", *rec.EventLevel)
	assert.JSONEq(t, body, rec.FullPayload)
}

func TestSentryEventIDSynthesis(t *testing.T) {
	// Event id missing entirely.
	out, err := parseSentry(t, nil, `{"action":"created","data":{"issue":{"id":"101","title":"t"}}}`)
	require.NoError(t, err)
	assert.Equal(t, "sentry-101-20260831120000123", out.Record.EventID)

	// Event id equal to the issue id is treated as no id.
	out, err = parseSentry(t, nil, `{"action":"created","data":{"event":{"event_id":"101"},"issue":{"id":"101","title":"t"}}}`)
	require.NoError(t, err)
	assert.Equal(t, "sentry-101-20260831120000123", out.Record.EventID)

	// A real event id is kept as-is.
	out, err = parseSentry(t, nil, `{"action":"created","data":{"event":{"event_id":"abc"},"issue":{"id":"101","title":"t"}}}`)
	require.NoError(t, err)
	assert.Equal(t, "abc", out.Record.EventID)
}

func TestSentryMessageFallbackChain(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"event message wins", `{"event":{"event_id":"e","message":"msg","title":"et"},"issue":{"title":"it"}}`, "msg"},
		{"event title next", `{"event":{"event_id":"e","title":"et"},"issue":{"title":"it"}}`, "et"},
		{"issue title next", `{"event":{"event_id":"e"},"issue":{"title":"it","culprit":"c"}}`, "it"},
		{"issue culprit next", `{"event":{"event_id":"e"},"issue":{"culprit":"c"}}`, "c"},
		{"default", `{"event":{"event_id":"e"},"issue":{"id":"1"}}`, "No message"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := parseSentry(t, nil, `{"action":"created","data":`+tt.data+`}`)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Record.Message)
		})
	}
}

func TestSentryProjectFromIssue(t *testing.T) {
	out, err := parseSentry(t, nil, `{"action":"created","data":{"issue":{"id":"1","title":"t","project":{"slug":"p2"}}}}`)
	require.NoError(t, err)
	assert.Equal(t, "p2", out.Record.Project)

	out, err = parseSentry(t, nil, `{"action":"created","data":{"issue":{"id":"1","title":"t"}}}`)
	require.NoError(t, err)
	assert.Equal(t, "unknown", out.Record.Project)
}

func TestSentryProjectFilter(t *testing.T) {
	p := &Sentry{FilterByProject: true, ExpectedProject: "shop"}

	out, err := parseSentry(t, p, `{"action":"created","data":{"issue":{"id":"1","title":"t"},"project":{"slug":"other"}}}`)
	require.NoError(t, err)
	assert.Nil(t, out.Record)
	assert.Contains(t, out.Ignored, "other")

	p = &Sentry{FilterByProject: true, ExpectedProject: "shop"}
	out, err = parseSentry(t, p, `{"action":"created","data":{"issue":{"id":"1","title":"t"},"project":{"slug":"shop"}}}`)
	require.NoError(t, err)
	assert.NotNil(t, out.Record)
}

func TestSentryTimestampFallsBackToNow(t *testing.T) {
	out, err := parseSentry(t, nil, `{"action":"created","data":{"event":{"event_id":"e","message":"m"},"issue":{"id":"1"}}}`)
	require.NoError(t, err)
	assert.Equal(t, testNow, out.Record.Timestamp)
}

func TestSentryEventLevelStacktraceFallback(t *testing.T) {
	body := `{"action":"created","data":{"event":{
	  "event_id": "e",
	  "message": "m",
	  "stacktrace": {"frames": [{"filename": "x.py", "lineno": 3, "function": "f"}]}
	},"issue":{"id":"1"}}}`

	out, err := parseSentry(t, nil, body)
	require.NoError(t, err)
	require.NotNil(t, out.Record.Stacktrace)
	assert.Contains(t, *out.Record.Stacktrace, `File "x.py", line 3, in f`)
}

func TestSentryEntriesFallback(t *testing.T) {
	body := `{"action":"created","data":{"event":{
	  "event_id": "e",
	  "message": "m",
	  "entries": [{"type": "exception", "data": {"values": [{
	    "type": "ValueError",
	    "value": "bad",
	    "stacktrace": {"frames": [{"filename": "z.py", "lineno": 9, "function": "g"}]}
	  }]}}]
	},"issue":{"id":"1"}}}`

	out, err := parseSentry(t, nil, body)
	require.NoError(t, err)
	rec := out.Record
	require.NotNil(t, rec.Stacktrace)
	assert.Contains(t, *rec.Stacktrace, "z.py")
	assert.Equal(t, "ValueError", *rec.ExceptionType)
	assert.Equal(t, "bad", *rec.ExceptionValue)
}

func TestSentryRelaxedReparse(t *testing.T) {
	// data.event has the wrong type, which breaks the strict parse; the
	// relaxed pass still extracts everything usable from the raw map.
	body := `{"action":"created","data":{"event":"bogus","issue":{"id":"101","title":"drifted"}}}`

	out, err := parseSentry(t, nil, body)
	require.NoError(t, err)
	require.NotNil(t, out.Record)
	assert.Equal(t, "drifted", out.Record.Message)
	assert.Equal(t, "101", *out.Record.IssueID)
}

func TestSentryBreadcrumbsDirectList(t *testing.T) {
	body := `{"action":"created","data":{"event":{
	  "event_id": "e", "message": "m",
	  "breadcrumbs": [{"message": "step 1"}, {"message": "step 2"}]
	},"issue":{"id":"1"}}}`

	out, err := parseSentry(t, nil, body)
	require.NoError(t, err)
	require.NotNil(t, out.Record.Breadcrumbs)
	assert.Contains(t, *out.Record.Breadcrumbs, "step 2")
}
