package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/hanifabd/go-whatsapp-webhook-api/internal/session"
	"github.com/hanifabd/go-whatsapp-webhook-api/pkg/whatsapp"
)

// ErrNotConnected rejects sends while no session is established. Controllers
// map it to a client error, not a server fault.
var ErrNotConnected = errors.New("whatsapp session is not connected")

// SendError wraps a transport rejection of an accepted send.
type SendError struct {
	Err error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("message send failed: %v", e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// Sender is the transport send surface, satisfied by *whatsapp.Transport and
// by fakes in tests.
type Sender interface {
	SendText(ctx context.Context, to string, text string) (string, error)
	SendImage(ctx context.Context, to string, imageBytes []byte, mimeType string, caption string) (string, error)
	SendDocument(ctx context.Context, to string, documentBytes []byte, mimeType string, fileName string, caption string) (string, error)
}

// Gateway validates outbound sends against session state and normalizes
// recipient addresses before handing them to the transport.
type Gateway struct {
	machine *session.Machine
	sender  Sender
}

func New(machine *session.Machine, sender Sender) *Gateway {
	return &Gateway{machine: machine, sender: sender}
}

func (g *Gateway) ensureConnected() error {
	if g.machine.Status().State != session.StateConnected {
		return ErrNotConnected
	}
	return nil
}

// SendText sends a plain text message. Returns the transport message id and
// the normalized recipient address.
func (g *Gateway) SendText(ctx context.Context, to string, body string) (string, string, error) {
	if err := g.ensureConnected(); err != nil {
		return "", "", err
	}
	address := whatsapp.FormatAddress(to)
	id, err := g.sender.SendText(ctx, address, body)
	if err != nil {
		return "", address, &SendError{Err: err}
	}
	return id, address, nil
}

// SendImage sends image bytes with an optional caption.
func (g *Gateway) SendImage(ctx context.Context, to string, imageBytes []byte, mimeType string, caption string) (string, string, error) {
	if err := g.ensureConnected(); err != nil {
		return "", "", err
	}
	address := whatsapp.FormatAddress(to)
	id, err := g.sender.SendImage(ctx, address, imageBytes, mimeType, caption)
	if err != nil {
		return "", address, &SendError{Err: err}
	}
	return id, address, nil
}

// SendDocument sends document bytes under fileName with an optional caption.
func (g *Gateway) SendDocument(ctx context.Context, to string, documentBytes []byte, mimeType string, fileName string, caption string) (string, string, error) {
	if err := g.ensureConnected(); err != nil {
		return "", "", err
	}
	address := whatsapp.FormatAddress(to)
	id, err := g.sender.SendDocument(ctx, address, documentBytes, mimeType, fileName, caption)
	if err != nil {
		return "", address, &SendError{Err: err}
	}
	return id, address, nil
}

// Logout delegates session teardown to the state machine.
func (g *Gateway) Logout(ctx context.Context) error {
	return g.machine.Logout(ctx)
}
