package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hanifabd/go-whatsapp-webhook-api/internal/message"
	"github.com/hanifabd/go-whatsapp-webhook-api/pkg/log"
	"github.com/hanifabd/go-whatsapp-webhook-api/pkg/whatsapp"
)

// Engine delivers normalized inbound messages to the configured webhook URL
// with bounded retries and exponential backoff. Each message is delivered by
// its own goroutine; there is no shared queue and no backpressure toward the
// transport.
type Engine struct {
	config   *Store
	failures *FailureLog

	// backoffUnit scales the 2^(n-1) retry delay. Production uses one
	// second; tests shrink it.
	backoffUnit time.Duration
}

// NewEngine wires the delivery engine to its config store and failure log.
func NewEngine(config *Store, failures *FailureLog) *Engine {
	return &Engine{
		config:      config,
		failures:    failures,
		backoffUnit: time.Second,
	}
}

// Deliver relays one inbound message asynchronously. It never blocks the
// caller and never reports failure upstream; exhausted deliveries end up in
// the failure log.
func (e *Engine) Deliver(msg message.InboundMessage) {
	go e.deliver(msg)
}

func (e *Engine) deliver(msg message.InboundMessage) {
	attempt := 1
	for {
		// Config is re-read on every attempt so runtime updates apply to
		// in-flight deliveries.
		cfg := e.config.Get()
		if !cfg.Enabled || cfg.URL == "" {
			log.WebhookOp("deliver", attempt).Debug("Webhook delivery disabled, dropping message")
			return
		}

		envelope := e.buildEnvelope(msg)
		status, err := e.post(cfg, envelope)
		if err == nil {
			log.WebhookOp("deliver", attempt).
				WithField("message_id", msg.ID).
				WithField("http_status", status).
				Info("Webhook delivered")
			return
		}

		if attempt >= cfg.RetryAttempts {
			log.WebhookOp("deliver", attempt).
				WithField("message_id", msg.ID).
				WithError(err).
				Error("Webhook delivery failed, retries exhausted")
			e.failures.Record(FailureRecord{
				Timestamp:  time.Now().UTC().Format(time.RFC3339),
				WebhookURL: cfg.URL,
				MessageID:  msg.ID,
				Error:      err.Error(),
			})
			return
		}

		delay := time.Duration(math.Pow(2, float64(attempt-1))) * e.backoffUnit
		log.WebhookOp("deliver", attempt).
			WithField("message_id", msg.ID).
			WithField("retry_in", delay.String()).
			WithError(err).
			Warn("Webhook delivery failed, retrying")
		time.Sleep(delay)
		attempt++
	}
}

// Test performs a single synchronous delivery of a synthetic envelope and
// returns the outcome to the caller. It never retries.
func (e *Engine) Test() DeliveryResult {
	cfg := e.config.Get()
	if cfg.URL == "" {
		return DeliveryResult{Success: false, Error: "webhook url is not configured"}
	}

	envelope := Envelope{
		Event:     EventTest,
		Timestamp: time.Now().UnixMilli(),
		Data: EventData{
			ID:          uuid.NewString(),
			Message:     TestData{Message: "webhook test delivery", TestID: uuid.NewString()},
			MessageType: "test",
			Timestamp:   time.Now().Unix(),
			WebhookID:   uuid.NewString(),
			APIVersion:  APIVersion,
		},
	}

	status, err := e.post(cfg, envelope)
	if err != nil {
		return DeliveryResult{Success: false, Status: status, Error: err.Error()}
	}
	return DeliveryResult{Success: true, Status: status}
}

// buildEnvelope produces a fresh envelope for one attempt. Each attempt gets
// its own webhookId and timestamp.
func (e *Engine) buildEnvelope(msg message.InboundMessage) Envelope {
	return Envelope{
		Event:     EventMessageReceived,
		Timestamp: time.Now().UnixMilli(),
		Data: EventData{
			ID:          msg.ID,
			From:        msg.From,
			FromDisplay: "+" + whatsapp.StripAddressSuffix(msg.From),
			Message:     msg.Content,
			MessageType: string(msg.Type),
			Timestamp:   msg.Timestamp,
			IsGroup:     whatsapp.IsGroupAddress(msg.From),
			WebhookID:   uuid.NewString(),
			APIVersion:  APIVersion,
		},
	}
}

// post marshals the envelope once and signs exactly the bytes it transmits.
func (e *Engine) post(cfg Config, envelope Envelope) (int, error) {
	body, err := json.Marshal(envelope)
	if err != nil {
		return 0, fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "go-whatsapp-webhook-api/"+APIVersion)
	if cfg.Secret != "" {
		req.Header.Set("X-Webhook-Signature", Sign(cfg.Secret, body))
	}

	client := &http.Client{Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

// Sign computes the HMAC-SHA256 signature header value for a payload.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
