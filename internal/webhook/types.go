package webhook

// APIVersion is stamped into every delivered envelope.
const APIVersion = "1.0.0"

// Event names carried in the envelope "event" field.
const (
	EventMessageReceived = "message.received"
	EventTest            = "webhook.test"
)

// Config is the single mutable delivery target record.
type Config struct {
	URL           string
	Secret        string
	Enabled       bool
	RetryAttempts int
	TimeoutMS     int
}

// UpdateRequest carries a partial config update. Nil fields keep their
// current value.
type UpdateRequest struct {
	URL           *string `json:"url"`
	Secret        *string `json:"secret"`
	Enabled       *bool   `json:"enabled"`
	RetryAttempts *int    `json:"retryAttempts"`
	TimeoutMS     *int    `json:"timeout"`
}

// Snapshot is the externally visible view of the config. The secret is
// redacted to a presence flag.
type Snapshot struct {
	URL           string `json:"url"`
	HasSecret     bool   `json:"hasSecret"`
	Enabled       bool   `json:"enabled"`
	RetryAttempts int    `json:"retryAttempts"`
	TimeoutMS     int    `json:"timeout"`
}

// Envelope is the wire shape POSTed to the configured URL.
type Envelope struct {
	Event     string    `json:"event"`
	Timestamp int64     `json:"timestamp"`
	Data      EventData `json:"data"`
}

// EventData is the message payload inside an Envelope.
type EventData struct {
	ID          string `json:"id"`
	From        string `json:"from"`
	FromDisplay string `json:"fromName"`
	Message     any    `json:"message"`
	MessageType string `json:"messageType"`
	Timestamp   int64  `json:"timestamp"`
	IsGroup     bool   `json:"isGroup"`
	WebhookID   string `json:"webhookId"`
	APIVersion  string `json:"apiVersion"`
}

// TestData is the payload of a webhook.test envelope.
type TestData struct {
	Message string `json:"message"`
	TestID  string `json:"testId"`
}

// DeliveryResult reports the outcome of a synchronous test delivery.
type DeliveryResult struct {
	Success bool   `json:"success"`
	Status  int    `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`
}
