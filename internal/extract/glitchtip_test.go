package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chatBody = `{
  "alias": "GlitchTip",
  "attachments": [{
    "title": "TypeError: x is None",
    "title_link": "https://glitchtip.example.com/organizations/acme/issues/4242",
    "fields": [
      {"title": "Project", "value": "shop", "short": true},
      {"title": "Environment", "value": "prod", "short": true}
    ]
  }],
  "sections": [{"activitySubtitle": "[View Issue SHOP-12]"}]
}`

func parseChat(t *testing.T, p *GlitchTip, body string) (*Outcome, error) {
	t.Helper()
	if p == nil {
		p = &GlitchTip{}
	}
	if p.Now == nil {
		p.Now = func() time.Time { return testNow }
	}
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &raw))
	return p.Parse(context.Background(), []byte(body), raw)
}

func TestGlitchTipBasicExtraction(t *testing.T) {
	out, err := parseChat(t, nil, chatBody)
	require.NoError(t, err)
	require.NotNil(t, out.Record)
	rec := out.Record

	assert.Equal(t, "glitchtip-4242-20260831120000123", rec.EventID)
	assert.Equal(t, "shop", rec.Project)
	assert.Equal(t, "shop", *rec.ProjectSlug)
	assert.Equal(t, "TypeError: x is None", rec.Message)
	assert.Equal(t, "TypeError", *rec.ExceptionType)
	assert.Equal(t, "x is None", *rec.ExceptionValue)
	assert.Equal(t, "4242", *rec.IssueID)
	assert.Equal(t, "SHOP-12", *rec.IssueShortID)
	assert.Equal(t, "https://glitchtip.example.com/organizations/acme/issues/4242", *rec.IssuePermalink)
	assert.Equal(t, rec.Message, *rec.IssueTitle)
	assert.Nil(t, rec.Stacktrace)
	assert.Nil(t, rec.Breadcrumbs)
	assert.Equal(t, testNow, rec.Timestamp)
}

func TestGlitchTipNoColonMessage(t *testing.T) {
	body := `{"alias":"g","attachments":[{"title":"something broke","title_link":"https://g/issues/7"}]}`
	out, err := parseChat(t, nil, body)
	require.NoError(t, err)
	assert.Nil(t, out.Record.ExceptionType)
	assert.Nil(t, out.Record.ExceptionValue)
}

func TestGlitchTipHashIDWithoutIssueLink(t *testing.T) {
	body := `{"alias":"g","attachments":[{"title":"orphan error"}]}`
	out, err := parseChat(t, nil, body)
	require.NoError(t, err)

	id := out.Record.EventID
	assert.Regexp(t, `^glitchtip-[0-9a-f]{8}-20260831120000123$`, id)
	assert.Nil(t, out.Record.IssueID)
}

func TestGlitchTipDistinctIDsPerDelivery(t *testing.T) {
	times := []time.Time{testNow, testNow.Add(5 * time.Millisecond)}
	var ids []string
	for _, ts := range times {
		p := &GlitchTip{Now: func() time.Time { return ts }}
		out, err := parseChat(t, p, chatBody)
		require.NoError(t, err)
		ids = append(ids, out.Record.EventID)
	}
	assert.NotEqual(t, ids[0], ids[1])
}

func TestGlitchTipProjectFilter(t *testing.T) {
	p := &GlitchTip{FilterByProject: true, ExpectedProject: "other"}
	out, err := parseChat(t, p, chatBody)
	require.NoError(t, err)
	assert.Nil(t, out.Record)
	assert.Contains(t, out.Ignored, "shop")
}

func TestGlitchTipDefaultMessage(t *testing.T) {
	body := `{"alias":"g","attachments":[{"title_link":"https://g/issues/9"}]}`
	out, err := parseChat(t, nil, body)
	require.NoError(t, err)
	assert.Equal(t, "No message", out.Record.Message)
}

func TestGlitchTipEnrichment(t *testing.T) {
	apiEvent := map[string]any{
		"eventID": "deadbeef",
		"entries": []any{
			map[string]any{"type": "exception", "data": map[string]any{
				"values": []any{map[string]any{
					"type":  "TypeError",
					"value": "x is None",
					"stacktrace": map[string]any{"frames": []any{
						map[string]any{"filename": "shop/cart.py", "lineno": float64(33), "function": "total"},
					}},
				}},
			}},
			map[string]any{"type": "breadcrumbs", "data": map[string]any{
				"values": []any{map[string]any{"category": "http", "message": "GET /cart"}},
			}},
		},
	}

	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(apiEvent)
	}))
	defer srv.Close()

	p := &GlitchTip{APIToken: "tok", BaseURL: srv.URL, HTTPClient: srv.Client()}
	out, err := parseChat(t, p, chatBody)
	require.NoError(t, err)
	rec := out.Record

	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "/api/0/issues/4242/events/latest/", gotPath)

	require.NotNil(t, rec.Stacktrace)
	assert.Contains(t, *rec.Stacktrace, `File "shop/cart.py", line 33, in total`)
	require.NotNil(t, rec.Breadcrumbs)
	assert.Contains(t, *rec.Breadcrumbs, "GET /cart")
	assert.Contains(t, rec.FullPayload, "api_event_data")
}

func TestGlitchTipEnrichmentFailureIsSilent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := &GlitchTip{APIToken: "tok", BaseURL: srv.URL, HTTPClient: srv.Client()}
	out, err := parseChat(t, p, chatBody)
	require.NoError(t, err)
	assert.NotNil(t, out.Record)
	assert.Nil(t, out.Record.Stacktrace)
	assert.JSONEq(t, chatBody, out.Record.FullPayload)
}

func TestGlitchTipNoEnrichmentWithoutToken(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	p := &GlitchTip{BaseURL: srv.URL, HTTPClient: srv.Client()}
	_, err := parseChat(t, p, chatBody)
	require.NoError(t, err)
	assert.False(t, called)
}

func TestGlitchTipBaseURLFromPermalink(t *testing.T) {
	// No explicit base URL: the permalink host is used. The permalink in
	// chatBody points at a host that does not resolve, so enrichment just
	// fails silently and the record is still produced.
	p := &GlitchTip{APIToken: "tok", HTTPClient: &http.Client{Timeout: 50 * time.Millisecond}}
	out, err := parseChat(t, p, chatBody)
	require.NoError(t, err)
	assert.NotNil(t, out.Record)
}
