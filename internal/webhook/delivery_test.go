package webhook

import (
	"crypto/hmac"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hanifabd/go-whatsapp-webhook-api/internal/message"
)

type captureServer struct {
	mu      sync.Mutex
	bodies  [][]byte
	headers []http.Header
	status  int
	srv     *httptest.Server
}

func newCaptureServer(status int) *captureServer {
	cs := &captureServer{status: status}
	cs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		cs.mu.Lock()
		cs.bodies = append(cs.bodies, body)
		cs.headers = append(cs.headers, r.Header.Clone())
		cs.mu.Unlock()
		w.WriteHeader(cs.status)
	}))
	return cs
}

func (cs *captureServer) calls() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.bodies)
}

func testEngine(t *testing.T, cfg Config) (*Engine, string) {
	t.Helper()
	failurePath := filepath.Join(t.TempDir(), "failures.log")
	engine := NewEngine(NewStore(cfg), NewFailureLog(failurePath))
	engine.backoffUnit = time.Millisecond
	return engine, failurePath
}

func inbound() message.InboundMessage {
	return message.InboundMessage{
		ID:        "MSG1",
		From:      "62812345678@s.whatsapp.net",
		Timestamp: 1700000000,
		Type:      message.ContentText,
		Content:   "hello",
	}
}

func TestDeliverDisabledIsNoOp(t *testing.T) {
	cs := newCaptureServer(http.StatusOK)
	defer cs.srv.Close()

	engine, _ := testEngine(t, Config{
		URL: cs.srv.URL, Enabled: false, RetryAttempts: 3, TimeoutMS: 1000,
	})
	engine.deliver(inbound())

	if got := cs.calls(); got != 0 {
		t.Errorf("disabled engine made %d requests, want 0", got)
	}
}

func TestDeliverSuccessSingleAttempt(t *testing.T) {
	cs := newCaptureServer(http.StatusOK)
	defer cs.srv.Close()

	engine, failurePath := testEngine(t, Config{
		URL: cs.srv.URL, Enabled: true, RetryAttempts: 3, TimeoutMS: 1000,
	})
	engine.deliver(inbound())

	if got := cs.calls(); got != 1 {
		t.Fatalf("made %d requests, want 1", got)
	}

	var env Envelope
	if err := json.Unmarshal(cs.bodies[0], &env); err != nil {
		t.Fatalf("body is not a valid envelope: %v", err)
	}
	if env.Event != EventMessageReceived {
		t.Errorf("event = %q, want %q", env.Event, EventMessageReceived)
	}
	if env.Data.ID != "MSG1" || env.Data.FromDisplay != "+62812345678" {
		t.Errorf("data fields wrong: %+v", env.Data)
	}
	if env.Data.IsGroup {
		t.Error("direct chat flagged as group")
	}
	if env.Data.WebhookID == "" || env.Data.APIVersion != APIVersion {
		t.Errorf("identity fields missing: %+v", env.Data)
	}

	if _, err := os.Stat(failurePath); !os.IsNotExist(err) {
		t.Error("failure log written for a successful delivery")
	}
}

func TestDeliverGroupFlag(t *testing.T) {
	cs := newCaptureServer(http.StatusOK)
	defer cs.srv.Close()

	engine, _ := testEngine(t, Config{
		URL: cs.srv.URL, Enabled: true, RetryAttempts: 1, TimeoutMS: 1000,
	})
	msg := inbound()
	msg.From = "1234567890-987654@g.us"
	engine.deliver(msg)

	var env Envelope
	if err := json.Unmarshal(cs.bodies[0], &env); err != nil {
		t.Fatal(err)
	}
	if !env.Data.IsGroup {
		t.Error("group chat not flagged")
	}
	if env.Data.FromDisplay != "+1234567890-987654" {
		t.Errorf("fromDisplay = %q", env.Data.FromDisplay)
	}
}

func TestDeliverRetriesUntilExhaustion(t *testing.T) {
	cs := newCaptureServer(http.StatusInternalServerError)
	defer cs.srv.Close()

	const attempts = 3
	engine, failurePath := testEngine(t, Config{
		URL: cs.srv.URL, Enabled: true, RetryAttempts: attempts, TimeoutMS: 1000,
	})
	engine.deliver(inbound())

	if got := cs.calls(); got != attempts {
		t.Fatalf("made %d requests, want %d", got, attempts)
	}

	raw, err := os.ReadFile(failurePath)
	if err != nil {
		t.Fatalf("failure log missing: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 1 {
		t.Fatalf("failure log has %d lines, want 1", len(lines))
	}
	var rec FailureRecord
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("failure record is not valid JSON: %v", err)
	}
	if rec.MessageID != "MSG1" || rec.WebhookURL != cs.srv.URL || rec.Error == "" {
		t.Errorf("failure record incomplete: %+v", rec)
	}
}

func TestDeliverRetriesOn4xx(t *testing.T) {
	cs := newCaptureServer(http.StatusNotFound)
	defer cs.srv.Close()

	engine, _ := testEngine(t, Config{
		URL: cs.srv.URL, Enabled: true, RetryAttempts: 2, TimeoutMS: 1000,
	})
	engine.deliver(inbound())

	if got := cs.calls(); got != 2 {
		t.Errorf("made %d requests, want 2 (4xx enters the retry path)", got)
	}
}

func TestDeliverSignsTransmittedBytes(t *testing.T) {
	cs := newCaptureServer(http.StatusOK)
	defer cs.srv.Close()

	const secret = "topsecret"
	engine, _ := testEngine(t, Config{
		URL: cs.srv.URL, Secret: secret, Enabled: true, RetryAttempts: 1, TimeoutMS: 1000,
	})
	engine.deliver(inbound())

	if cs.calls() != 1 {
		t.Fatal("no request captured")
	}
	sig := cs.headers[0].Get("X-Webhook-Signature")
	if !strings.HasPrefix(sig, "sha256=") {
		t.Fatalf("signature header = %q, want sha256= prefix", sig)
	}
	if !hmac.Equal([]byte(sig), []byte(Sign(secret, cs.bodies[0]))) {
		t.Error("signature does not verify against the transmitted body")
	}
}

func TestDeliverOmitsSignatureWithoutSecret(t *testing.T) {
	cs := newCaptureServer(http.StatusOK)
	defer cs.srv.Close()

	engine, _ := testEngine(t, Config{
		URL: cs.srv.URL, Enabled: true, RetryAttempts: 1, TimeoutMS: 1000,
	})
	engine.deliver(inbound())

	if got := cs.headers[0].Get("X-Webhook-Signature"); got != "" {
		t.Errorf("signature header present without a secret: %q", got)
	}
}

func TestTestSingleAttempt(t *testing.T) {
	cs := newCaptureServer(http.StatusServiceUnavailable)
	defer cs.srv.Close()

	engine, _ := testEngine(t, Config{
		URL: cs.srv.URL, Enabled: true, RetryAttempts: 5, TimeoutMS: 1000,
	})
	result := engine.Test()

	if result.Success {
		t.Error("failed test reported success")
	}
	if result.Status != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", result.Status)
	}
	if got := cs.calls(); got != 1 {
		t.Errorf("test delivery made %d requests, want exactly 1", got)
	}

	var env Envelope
	if err := json.Unmarshal(cs.bodies[0], &env); err != nil {
		t.Fatal(err)
	}
	if env.Event != EventTest {
		t.Errorf("event = %q, want %q", env.Event, EventTest)
	}
}

func TestTestWithoutURL(t *testing.T) {
	engine, _ := testEngine(t, Config{Enabled: true, RetryAttempts: 1, TimeoutMS: 1000})
	result := engine.Test()
	if result.Success {
		t.Error("test succeeded with no URL configured")
	}
}
