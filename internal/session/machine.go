package session

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"time"

	"github.com/skip2/go-qrcode"

	"github.com/hanifabd/go-whatsapp-webhook-api/internal/message"
	"github.com/hanifabd/go-whatsapp-webhook-api/pkg/log"
	"github.com/hanifabd/go-whatsapp-webhook-api/pkg/whatsapp"
)

// State names the connection lifecycle phases.
type State string

const (
	StateIdle         State = "idle"
	StateAwaitingScan State = "awaiting_scan"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
	StateReconnecting State = "reconnecting"
)

const (
	defaultReconnectDelay = 5 * time.Second
	qrImageSize           = 256
)

var ErrAlreadyInitialized = errors.New("session is already initialized")

// Transport is the lifecycle surface the machine drives. Satisfied by
// *whatsapp.Transport and by fakes in tests.
type Transport interface {
	Events() <-chan whatsapp.Event
	Connect(ctx context.Context) error
	Disconnect()
	Logout(ctx context.Context) error
	WipeCredentials(ctx context.Context) error
	IsConnected() bool
}

// Relay receives every normalized inbound message, typically the webhook
// delivery engine.
type Relay interface {
	Deliver(msg message.InboundMessage)
}

// Handler is a local subscriber for normalized inbound messages.
type Handler func(msg message.InboundMessage)

// Status is a point-in-time snapshot of the machine.
type Status struct {
	State     State  `json:"state"`
	QR        string `json:"qr,omitempty"`
	LastError string `json:"lastError,omitempty"`
}

// Machine owns the connection lifecycle: it consumes the transport's event
// stream from a single dispatcher goroutine, renders pairing QR codes,
// schedules reconnects, and fans normalized messages out to the relay and
// local handlers.
type Machine struct {
	transport Transport
	relay     Relay

	mu               sync.Mutex
	state            State
	qr               string
	lastError        string
	initialized      bool
	reconnectPending bool
	handlers         []Handler

	reconnectDelay time.Duration
}

// New builds an idle machine. reconnectDelay <= 0 selects the default.
func New(transport Transport, relay Relay, reconnectDelay time.Duration) *Machine {
	if reconnectDelay <= 0 {
		reconnectDelay = defaultReconnectDelay
	}
	return &Machine{
		transport:      transport,
		relay:          relay,
		state:          StateIdle,
		reconnectDelay: reconnectDelay,
	}
}

// Initialize starts the dispatcher and the first connection attempt. It may
// run once per machine; a second call is rejected.
func (m *Machine) Initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.initialized {
		m.mu.Unlock()
		return ErrAlreadyInitialized
	}
	m.initialized = true
	m.mu.Unlock()

	go m.dispatch()

	if err := m.transport.Connect(ctx); err != nil {
		// A failed first connect enters the same delayed-reconnect path as
		// a transport close; the error is still surfaced to the caller.
		m.mu.Lock()
		m.state = StateReconnecting
		m.lastError = err.Error()
		m.reconnectPending = true
		m.mu.Unlock()
		time.AfterFunc(m.reconnectDelay, m.reconnect)
		return err
	}
	return nil
}

// AddHandler registers a local subscriber. Handlers run on the dispatcher
// goroutine and must not block.
func (m *Machine) AddHandler(h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, h)
}

// Status returns a snapshot without side effects.
func (m *Machine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{State: m.state, QR: m.qr, LastError: m.lastError}
}

// Logout tears the session down and wipes credentials. Calling it with no
// active session is a no-op that still reports success.
func (m *Machine) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.state = StateIdle
	m.qr = ""
	m.lastError = ""
	m.reconnectPending = true // suppress any scheduled reconnect
	m.mu.Unlock()

	err := m.transport.Logout(ctx)
	if wipeErr := m.transport.WipeCredentials(ctx); wipeErr != nil && err == nil {
		err = wipeErr
	}

	m.mu.Lock()
	m.reconnectPending = false
	m.mu.Unlock()

	if err != nil {
		log.SessionOp("logout").WithError(err).Warn("Logout finished with errors")
	}
	return err
}

// TryReconnect kicks a connection attempt for a session stuck in the
// disconnected state. Used by the periodic health routine; a no-op in every
// other state or while a reconnect is already scheduled.
func (m *Machine) TryReconnect() {
	m.mu.Lock()
	if m.state != StateDisconnected || m.reconnectPending {
		m.mu.Unlock()
		return
	}
	m.reconnectPending = true
	m.mu.Unlock()

	log.SessionOp("try-reconnect").Info("Health routine triggering reconnect")
	m.reconnect()
}

// dispatch is the single consumer of the transport event stream. All state
// transitions happen here or under the same mutex.
func (m *Machine) dispatch() {
	for ev := range m.transport.Events() {
		switch e := ev.(type) {
		case whatsapp.QREvent:
			m.onQR(e)
		case whatsapp.ConnectedEvent:
			m.onConnected()
		case whatsapp.DisconnectedEvent:
			m.onDisconnected(e)
		case whatsapp.MessagesEvent:
			m.onMessages(e)
		}
	}
}

func (m *Machine) onQR(e whatsapp.QREvent) {
	rendered, err := renderQR(e.Code)
	m.mu.Lock()
	m.state = StateAwaitingScan
	if err != nil {
		m.qr = ""
		m.lastError = err.Error()
	} else {
		m.qr = rendered
		m.lastError = ""
	}
	m.mu.Unlock()
	log.SessionOp("qr").Info("New pairing code available, waiting for scan")
}

func (m *Machine) onConnected() {
	m.mu.Lock()
	m.state = StateConnected
	m.qr = ""
	m.lastError = ""
	m.mu.Unlock()
	log.SessionOp("connected").Info("Session connected")
}

func (m *Machine) onDisconnected(e whatsapp.DisconnectedEvent) {
	if e.LoggedOut {
		m.mu.Lock()
		m.state = StateIdle
		m.qr = ""
		m.lastError = e.Reason
		m.mu.Unlock()

		log.SessionOp("logged-out").Info("Account logged out remotely, wiping credentials")
		if err := m.transport.WipeCredentials(context.Background()); err != nil {
			log.SessionOp("logged-out").WithError(err).Error("Credential wipe failed")
		}
		return
	}

	m.mu.Lock()
	m.state = StateReconnecting
	m.lastError = e.Reason
	schedule := !m.reconnectPending
	if schedule {
		m.reconnectPending = true
	}
	m.mu.Unlock()

	log.SessionOp("disconnected").WithField("reason", e.Reason).Warn("Session closed, reconnect scheduled")
	if schedule {
		time.AfterFunc(m.reconnectDelay, m.reconnect)
	}
}

func (m *Machine) reconnect() {
	m.mu.Lock()
	if m.state != StateReconnecting && m.state != StateDisconnected {
		// Logged out or already reconnected while the timer was pending.
		m.reconnectPending = false
		m.mu.Unlock()
		return
	}
	m.state = StateReconnecting
	m.mu.Unlock()

	log.SessionOp("reconnect").Info("Reconnecting session")
	err := m.transport.Connect(context.Background())

	m.mu.Lock()
	m.reconnectPending = false
	if err != nil {
		m.state = StateDisconnected
		m.lastError = err.Error()
	}
	m.mu.Unlock()

	if err != nil {
		log.SessionOp("reconnect").WithError(err).Error("Reconnect attempt failed")
	}
}

func (m *Machine) onMessages(e whatsapp.MessagesEvent) {
	m.mu.Lock()
	handlers := make([]Handler, len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.Unlock()

	for _, raw := range e.Messages {
		normalized, ok := message.Normalize(raw)
		if !ok {
			continue
		}
		if m.relay != nil {
			m.relay.Deliver(normalized)
		}
		for _, h := range handlers {
			h(normalized)
		}
	}
}

// renderQR encodes a pairing code as a PNG data URL for HTTP clients.
func renderQR(code string) (string, error) {
	png, err := qrcode.Encode(code, qrcode.Medium, qrImageSize)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
