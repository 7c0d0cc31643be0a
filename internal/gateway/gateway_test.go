package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hanifabd/go-whatsapp-webhook-api/internal/session"
	"github.com/hanifabd/go-whatsapp-webhook-api/pkg/whatsapp"
)

type fakeSender struct {
	mu      sync.Mutex
	lastTo  string
	sendErr error
}

func (f *fakeSender) SendText(ctx context.Context, to string, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastTo = to
	if f.sendErr != nil {
		return "", f.sendErr
	}
	return "MSGID", nil
}

func (f *fakeSender) SendImage(ctx context.Context, to string, imageBytes []byte, mimeType string, caption string) (string, error) {
	return f.SendText(ctx, to, caption)
}

func (f *fakeSender) SendDocument(ctx context.Context, to string, documentBytes []byte, mimeType string, fileName string, caption string) (string, error) {
	return f.SendText(ctx, to, fileName)
}

type stubTransport struct {
	events chan whatsapp.Event
}

func newStubTransport() *stubTransport {
	return &stubTransport{events: make(chan whatsapp.Event, 1)}
}

func (s *stubTransport) Events() <-chan whatsapp.Event           { return s.events }
func (s *stubTransport) Connect(ctx context.Context) error       { return nil }
func (s *stubTransport) Disconnect()                             {}
func (s *stubTransport) Logout(ctx context.Context) error        { return nil }
func (s *stubTransport) WipeCredentials(ctx context.Context) error { return nil }
func (s *stubTransport) IsConnected() bool                       { return true }

func connectedMachine(t *testing.T) *session.Machine {
	t.Helper()
	transport := newStubTransport()
	m := session.New(transport, nil, time.Hour)
	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	transport.events <- whatsapp.ConnectedEvent{}
	deadline := time.Now().Add(2 * time.Second)
	for m.Status().State != session.StateConnected {
		if time.Now().After(deadline) {
			t.Fatal("machine never reached connected state")
		}
		time.Sleep(time.Millisecond)
	}
	return m
}

func idleMachine(t *testing.T) *session.Machine {
	t.Helper()
	return session.New(newStubTransport(), nil, time.Hour)
}

func TestSendRejectedWhenNotConnected(t *testing.T) {
	g := New(idleMachine(t), &fakeSender{})

	_, _, err := g.SendText(context.Background(), "0812345678", "hello")
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("SendText err = %v, want ErrNotConnected", err)
	}
	_, _, err = g.SendImage(context.Background(), "0812345678", []byte{1}, "image/jpeg", "")
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("SendImage err = %v, want ErrNotConnected", err)
	}
	_, _, err = g.SendDocument(context.Background(), "0812345678", []byte{1}, "application/pdf", "a.pdf", "")
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("SendDocument err = %v, want ErrNotConnected", err)
	}
}

func TestSendTextNormalizesRecipient(t *testing.T) {
	sender := &fakeSender{}
	g := New(connectedMachine(t), sender)

	id, address, err := g.SendText(context.Background(), "0812345678", "hello")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if id != "MSGID" {
		t.Errorf("message id = %q", id)
	}
	if address != "62812345678@s.whatsapp.net" {
		t.Errorf("normalized address = %q", address)
	}
	if sender.lastTo != address {
		t.Errorf("transport saw %q, want normalized address", sender.lastTo)
	}
}

func TestSendFailureWrapped(t *testing.T) {
	cause := errors.New("socket gone")
	g := New(connectedMachine(t), &fakeSender{sendErr: cause})

	_, _, err := g.SendText(context.Background(), "0812345678", "hello")
	var sendErr *SendError
	if !errors.As(err, &sendErr) {
		t.Fatalf("err = %T, want *SendError", err)
	}
	if !errors.Is(err, cause) {
		t.Error("wrapped error lost the transport cause")
	}
}
