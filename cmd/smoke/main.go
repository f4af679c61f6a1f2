// Manual end-to-end smoke check against a running api instance. Posts a
// structured payload twice (second one must come back "already exists"),
// then a chat-format payload, then reads back the latest stored record.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"error-collector/internal/auth"
)

var (
	base   = flag.String("base", "http://localhost:8000", "api base URL")
	secret = flag.String("secret", "", "webhook secret, when signature verification is on")
)

const sentryPayload = `{
  "action": "created",
  "data": {
    "event": {
      "event_id": "smoke-e1",
      "message": "smoke: boom",
      "timestamp": %d,
      "exception": {"values": [{
        "type": "RuntimeError",
        "value": "boom",
        "stacktrace": {"frames": [
          {"filename": "app/main.py", "lineno": 10, "function": "run"},
          {"filename": "app/handler.py", "lineno": 42, "function": "handle",
           "context_line": "raise RuntimeError(\"boom\")"}
        ]}
      }]}
    },
    "issue": {"id": "101", "title": "smoke: boom", "level": "error"},
    "project": {"id": "1", "slug": "smoke", "name": "Smoke"}
  }
}`

const glitchtipPayload = `{
  "alias": "GlitchTip",
  "attachments": [{
    "title": "TypeError: x is None",
    "title_link": "https://glitchtip.example.com/organizations/o/issues/202",
    "fields": [{"title": "Project", "value": "smoke", "short": true}]
  }],
  "sections": [{"activitySubtitle": "[View Issue SMOKE-2]"}]
}`

func main() {
	flag.Parse()

	body := fmt.Sprintf(sentryPayload, time.Now().Unix())
	post("structured webhook", body)
	post("structured webhook (repeat)", body)
	post("chat-format webhook", glitchtipPayload)

	resp, err := http.Get(*base + "/errors/latest")
	if err != nil {
		fail("GET /errors/latest: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	fmt.Printf("latest: %s\n", out)
}

func post(label, body string) {
	req, err := http.NewRequest(http.MethodPost, *base+"/webhook", bytes.NewBufferString(body))
	if err != nil {
		fail("%s: %v", label, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if *secret != "" {
		req.Header.Set("X-Webhook-Signature", auth.Sign(*secret, []byte(body)))
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fail("%s: %v", label, err)
	}
	defer resp.Body.Close()

	var v map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&v)
	fmt.Printf("%s: %d %v\n", label, resp.StatusCode, v)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
