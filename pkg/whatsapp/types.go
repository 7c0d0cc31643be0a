package whatsapp

import (
	"go.mau.fi/whatsmeow/proto/waE2E"
)

// Event is a typed transport event consumed by the session state machine.
// The whatsmeow callback mechanism and QR channel are both funneled into a
// single channel of these values.
type Event interface {
	isEvent()
}

// QREvent carries a fresh pairing code while the account is unpaired.
type QREvent struct {
	Code string
}

// ConnectedEvent signals that the socket is open and logged in.
type ConnectedEvent struct{}

// DisconnectedEvent signals that the socket closed. LoggedOut means the
// credentials were invalidated remotely and a reconnect must not be attempted.
type DisconnectedEvent struct {
	LoggedOut bool
	Reason    string
}

// MessagesEvent carries one inbound batch in arrival order.
type MessagesEvent struct {
	Messages []RawMessage
}

func (QREvent) isEvent()           {}
func (ConnectedEvent) isEvent()    {}
func (DisconnectedEvent) isEvent() {}
func (MessagesEvent) isEvent()     {}

// RawMessage is one inbound transport record before normalization.
type RawMessage struct {
	ID        string
	Chat      string
	Sender    string
	IsFromMe  bool
	Timestamp int64
	Message   *waE2E.Message
}
