package webhook

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/hanifabd/go-whatsapp-webhook-api/pkg/env"
	"github.com/hanifabd/go-whatsapp-webhook-api/pkg/log"
)

const defaultFailureLogPath = "logs/webhook-failures.log"

// FailureRecord is one exhausted delivery, written as a single JSON line.
type FailureRecord struct {
	Timestamp  string `json:"timestamp"`
	WebhookURL string `json:"webhookUrl"`
	MessageID  string `json:"messageId"`
	Error      string `json:"error"`
}

// FailureLog is an append-only file of exhausted deliveries. Writing is best
// effort: a failure to persist is logged and otherwise swallowed, the same
// as the delivery failure it records.
type FailureLog struct {
	mu   sync.Mutex
	path string
}

// NewFailureLogFromEnv builds the log at WEBHOOK_FAILURE_LOG or the default
// path.
func NewFailureLogFromEnv() *FailureLog {
	return NewFailureLog(env.GetEnvStringOrDefault("WEBHOOK_FAILURE_LOG", defaultFailureLogPath))
}

// NewFailureLog builds the log at an explicit path.
func NewFailureLog(path string) *FailureLog {
	return &FailureLog{path: path}
}

// Record appends one JSON line for an exhausted delivery.
func (f *FailureLog) Record(rec FailureRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.WebhookOp("failure-log", 0).WithError(err).Error("Cannot create failure log directory")
			return
		}
	}

	line, err := json.Marshal(rec)
	if err != nil {
		log.WebhookOp("failure-log", 0).WithError(err).Error("Cannot marshal failure record")
		return
	}

	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.WebhookOp("failure-log", 0).WithError(err).Error("Cannot open failure log")
		return
	}
	defer file.Close()

	if _, err := file.Write(append(line, '\n')); err != nil {
		log.WebhookOp("failure-log", 0).WithError(err).Error("Cannot append failure record")
	}
}

// Path returns the file location, used by status reporting.
func (f *FailureLog) Path() string {
	return f.path
}
