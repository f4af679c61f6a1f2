package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"error-collector/internal/db"
	"error-collector/internal/schemas"
)

const glitchtipIDPrefix = "glitchtip"

var (
	issueIDRe   = regexp.MustCompile(`/issues/(\d+)`)
	shortIDRe   = regexp.MustCompile(`\[View Issue\s+([^\]]+)\]`)
	permalinkRe = regexp.MustCompile(`(https?://[^/]+)`)
)

// GlitchTip maps the Slack/Teams-compatible notification payload into a
// stored record. The payload itself carries almost nothing, so when an API
// token is configured the extractor also fetches the issue's latest event
// from the vendor's read API to fill in stacktrace and breadcrumbs.
// Enrichment failure never fails ingestion.
type GlitchTip struct {
	FilterByProject bool
	ExpectedProject string
	APIToken        string
	BaseURL         string
	HTTPClient      *http.Client
	Log             *zap.Logger
	Now             func() time.Time
}

// Parse extracts one chat-format webhook. Every delivery is stored as a
// distinct occurrence: the synthesized event id carries a millisecond
// timestamp, so no idempotency check applies to this shape.
func (p *GlitchTip) Parse(ctx context.Context, body []byte, raw map[string]any) (*Outcome, error) {
	var typed schemas.GlitchTipWebhook
	if err := json.Unmarshal(body, &typed); err != nil {
		return nil, &ValidationError{Path: "attachments", Reason: err.Error()}
	}
	if len(typed.Attachments) == 0 {
		return &Outcome{Ignored: "webhook has no attachments"}, nil
	}
	now := p.now()

	attachment := typed.Attachments[0]
	message := attachment.Title
	if message == "" {
		message = "No message"
	}

	projectName := "unknown"
	var projectSlug string
	for _, f := range attachment.Fields {
		if strings.EqualFold(f.Title, "project") && f.Value != "" {
			projectName = f.Value
			projectSlug = f.Value
		}
	}
	if p.FilterByProject && p.ExpectedProject != "" && projectName != p.ExpectedProject {
		p.log().Warn("webhook from unexpected project ignored",
			zap.String("project", projectName),
			zap.String("expected", p.ExpectedProject))
		return &Outcome{Ignored: fmt.Sprintf("project %q ignored", projectName)}, nil
	}

	permalink := attachment.TitleLink
	var issueID, issueShortID string
	if m := issueIDRe.FindStringSubmatch(permalink); m != nil {
		issueID = m[1]
	}
	if len(typed.Sections) > 0 {
		if m := shortIDRe.FindStringSubmatch(typed.Sections[0].ActivitySubtitle); m != nil {
			issueShortID = strings.TrimSpace(m[1])
		}
	}

	var excType, excValue string
	if before, after, found := strings.Cut(message, ":"); found {
		excType = strings.TrimSpace(before)
		excValue = strings.TrimSpace(after)
	}

	suffix := timestampSuffix(now)
	var eventID string
	if issueID != "" {
		eventID = fmt.Sprintf("%s-%s-%s", glitchtipIDPrefix, issueID, suffix)
	} else {
		eventID = fmt.Sprintf("%s-%s-%s", glitchtipIDPrefix, contentHash(message), suffix)
	}

	var trace, detailed string
	var files []schemas.FrameRecord
	var breadcrumbs *string
	fullPayload := body
	if apiEvent := p.enrich(ctx, issueID, permalink); apiEvent != nil {
		ef := entriesOf(listOf(apiEvent["entries"]))
		trace, files, detailed = FormatFrames(ef.frames)
		if len(ef.breadcrumbs) > 0 {
			breadcrumbs = marshalNullable(ef.breadcrumbs)
			p.log().Info("extracted breadcrumbs from read API", zap.Int("count", len(ef.breadcrumbs)))
		}
		combined := make(map[string]any, len(raw)+1)
		for k, v := range raw {
			combined[k] = v
		}
		combined["api_event_data"] = apiEvent
		if b, err := json.Marshal(combined); err == nil {
			fullPayload = b
		}
	}

	rec := &db.Error{
		EventID:            eventID,
		Project:            projectName,
		ProjectSlug:        nullable(projectSlug),
		Message:            message,
		ExceptionType:      nullable(excType),
		ExceptionValue:     nullable(excValue),
		Stacktrace:         nullable(trace),
		StacktraceFiles:    marshalFrames(files),
		StacktraceDetailed: nullable(detailed),
		Breadcrumbs:        breadcrumbs,
		IssueID:            nullable(issueID),
		IssueShortID:       nullable(issueShortID),
		IssueTitle:         nullable(message),
		IssuePermalink:     nullable(permalink),
		Timestamp:          now,
		FullPayload:        string(fullPayload),
	}
	return &Outcome{Record: rec}, nil
}

// enrich fetches the issue's latest event from the read API. Returns nil on
// any failure or when the client is not configured; callers store the record
// either way.
func (p *GlitchTip) enrich(ctx context.Context, issueID, permalink string) map[string]any {
	if issueID == "" || p.APIToken == "" {
		return nil
	}
	base := p.BaseURL
	if base == "" {
		if m := permalinkRe.FindStringSubmatch(permalink); m != nil {
			base = m[1]
		}
	}
	if base == "" {
		return nil
	}

	url := fmt.Sprintf("%s/api/0/issues/%s/events/latest/", strings.TrimRight(base, "/"), issueID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+p.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client().Do(req)
	if err != nil {
		p.log().Warn("read API fetch failed", zap.String("issue_id", issueID), zap.Error(err))
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		p.log().Warn("read API returned non-OK",
			zap.String("issue_id", issueID),
			zap.Int("status", resp.StatusCode))
		return nil
	}
	var event map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&event); err != nil {
		p.log().Warn("read API response not decodable", zap.Error(err))
		return nil
	}
	p.log().Info("fetched latest event from read API", zap.String("issue_id", issueID))
	return event
}

func (p *GlitchTip) client() *http.Client {
	if p.HTTPClient != nil {
		return p.HTTPClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func (p *GlitchTip) log() *zap.Logger {
	if p.Log != nil {
		return p.Log
	}
	return zap.NewNop()
}

func (p *GlitchTip) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// contentHash is the short message digest used for event ids when no issue
// id could be recovered from the permalink.
func contentHash(message string) string {
	sum := sha256.Sum256([]byte(message))
	return hex.EncodeToString(sum[:])[:8]
}
