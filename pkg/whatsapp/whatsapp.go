package whatsapp

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/sunshineplan/imgconv"
	"google.golang.org/protobuf/proto"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mdp/qrterminal/v3"
	_ "modernc.org/sqlite"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waCompanionReg"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/hanifabd/go-whatsapp-webhook-api/pkg/log"
)

const (
	qrChannelWaitTimeout = 2 * time.Minute
	logoutRequestTimeout = 30 * time.Second

	eventBufferSize = 128
)

var ErrNoClient = errors.New("whatsapp client is not initialized")

// Config holds the datastore and pairing options for the transport.
type Config struct {
	SessionDir string
	Driver     string // "sqlite" (default) or "postgres"
	DSN        string // required for postgres
	QRTerminal bool   // also echo pairing codes to the terminal
}

// Transport wraps a whatsmeow client for a single account and converts its
// native callbacks into a typed event channel.
type Transport struct {
	client    *whatsmeow.Client
	container *sqlstore.Container
	cfg       Config
	events    chan Event
}

// New opens the credential datastore and builds the client. A failure here is
// the one fatal, synchronous setup error of the whole stack (credential store
// I/O); connect-time failures surface later as DisconnectedEvent.
func New(ctx context.Context, cfg Config) (*Transport, error) {
	container, err := openContainer(ctx, cfg)
	if err != nil {
		return nil, err
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("load device from datastore: %w", err)
	}

	store.DeviceProps.Os = proto.String(runtime.GOOS)
	store.DeviceProps.PlatformType = waCompanionReg.DeviceProps_CHROME.Enum()
	store.DeviceProps.RequireFullSync = proto.Bool(false)

	client := whatsmeow.NewClient(device, nil)
	// Reconnects are owned by the session state machine, not the library.
	client.EnableAutoReconnect = false
	client.AutoTrustIdentity = true

	t := &Transport{
		client:    client,
		container: container,
		cfg:       cfg,
		events:    make(chan Event, eventBufferSize),
	}
	client.AddEventHandler(t.handleEvent)

	return t, nil
}

func openContainer(ctx context.Context, cfg Config) (*sqlstore.Container, error) {
	switch cfg.Driver {
	case "", "sqlite":
		if err := os.MkdirAll(cfg.SessionDir, 0o755); err != nil {
			return nil, fmt.Errorf("create session directory: %w", err)
		}
		dbPath := filepath.Join(cfg.SessionDir, "whatsapp.db")
		dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)", dbPath)
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open credential datastore: %w", err)
		}
		// Serialize access through one connection to avoid SQLITE_BUSY.
		db.SetMaxOpenConns(1)
		container := sqlstore.NewWithDB(db, "sqlite", nil)
		if err := container.Upgrade(ctx); err != nil {
			return nil, fmt.Errorf("upgrade credential datastore: %w", err)
		}
		return container, nil
	case "postgres", "pgx":
		container, err := sqlstore.New(ctx, "pgx", cfg.DSN, nil)
		if err != nil {
			return nil, fmt.Errorf("open credential datastore: %w", err)
		}
		return container, nil
	default:
		return nil, fmt.Errorf("unsupported datastore driver %q", cfg.Driver)
	}
}

// Events exposes the typed event stream. The channel is never closed.
func (t *Transport) Events() <-chan Event {
	return t.events
}

func (t *Transport) emit(ev Event) {
	select {
	case t.events <- ev:
	default:
		log.SessionOp("transport-emit").Warn("Event buffer full, dropping transport event")
	}
}

func (t *Transport) handleEvent(evt interface{}) {
	switch e := evt.(type) {
	case *events.Connected:
		t.emit(ConnectedEvent{})
	case *events.Disconnected:
		t.emit(DisconnectedEvent{Reason: "connection closed"})
	case *events.StreamReplaced:
		t.emit(DisconnectedEvent{Reason: "stream replaced"})
	case *events.ConnectFailure:
		t.emit(DisconnectedEvent{Reason: fmt.Sprintf("connect failure: %s", e.Reason)})
	case *events.LoggedOut:
		t.emit(DisconnectedEvent{LoggedOut: true, Reason: fmt.Sprintf("logged out: %s", e.Reason)})
	case *events.Message:
		t.emit(MessagesEvent{Messages: []RawMessage{{
			ID:        e.Info.ID,
			Chat:      e.Info.Chat.String(),
			Sender:    e.Info.Sender.String(),
			IsFromMe:  e.Info.IsFromMe,
			Timestamp: e.Info.Timestamp.Unix(),
			Message:   e.Message,
		}}})
	}
}

// Connect dials the socket. For an unpaired account it starts the QR pairing
// flow and forwards pairing codes as QREvent.
func (t *Transport) Connect(ctx context.Context) error {
	if t.client == nil {
		return ErrNoClient
	}

	if t.client.Store.ID != nil {
		return t.client.Connect()
	}

	qrCtx, cancel := context.WithTimeout(context.Background(), qrChannelWaitTimeout)
	qrChan, err := t.client.GetQRChannel(qrCtx)
	if err != nil {
		cancel()
		if errors.Is(err, whatsmeow.ErrQRStoreContainsID) {
			return t.client.Connect()
		}
		return err
	}

	if err := t.client.Connect(); err != nil {
		cancel()
		return err
	}

	go t.forwardQR(qrChan, cancel)
	return nil
}

func (t *Transport) forwardQR(qrChan <-chan whatsmeow.QRChannelItem, cancel context.CancelFunc) {
	defer cancel()
	for evt := range qrChan {
		switch evt.Event {
		case "code":
			if t.cfg.QRTerminal {
				qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, os.Stdout)
			}
			t.emit(QREvent{Code: evt.Code})
		case whatsmeow.QRChannelSuccess.Event:
			// Pairing done, ConnectedEvent follows from the client.
			return
		case whatsmeow.QRChannelTimeout.Event:
			t.emit(DisconnectedEvent{Reason: "qr pairing timed out"})
			return
		case "error":
			reason := "qr pairing failed"
			if evt.Error != nil {
				reason = "qr pairing failed: " + evt.Error.Error()
			}
			t.emit(DisconnectedEvent{Reason: reason})
			return
		}
	}
}

// Disconnect closes the socket without touching credentials.
func (t *Transport) Disconnect() {
	if t.client != nil {
		t.client.Disconnect()
	}
}

// IsConnected reports socket liveness.
func (t *Transport) IsConnected() bool {
	return t.client != nil && t.client.IsConnected() && t.client.IsLoggedIn()
}

// Logout unpairs the account remotely and wipes persisted credentials. Safe
// to call with no active session.
func (t *Transport) Logout(ctx context.Context) error {
	if t.client == nil {
		return nil
	}

	if t.client.Store.ID != nil {
		logoutCtx, cancel := context.WithTimeout(ctx, logoutRequestTimeout)
		defer cancel()
		if err := t.client.Logout(logoutCtx); err != nil {
			// Remote logout failed, drop the socket and wipe locally.
			t.client.Disconnect()
			return t.WipeCredentials(ctx)
		}
		return nil
	}

	t.client.Disconnect()
	return nil
}

// WipeCredentials deletes the persisted device state so the next session
// starts from a fresh QR pairing.
func (t *Transport) WipeCredentials(ctx context.Context) error {
	if t.client == nil || t.client.Store.ID == nil {
		return nil
	}
	return t.client.Store.Delete(ctx)
}

// SendText delivers a plain text message and returns the transport message id.
func (t *Transport) SendText(ctx context.Context, to string, text string) (string, error) {
	jid, err := t.resolveJID(to)
	if err != nil {
		return "", err
	}

	extra := whatsmeow.SendRequestExtra{ID: t.client.GenerateMessageID()}
	content := &waE2E.Message{
		Conversation: proto.String(text),
	}
	if _, err := t.client.SendMessage(ctx, jid, content, extra); err != nil {
		return "", err
	}
	return extra.ID, nil
}

// SendImage uploads image bytes plus a JPEG thumbnail and sends them with an
// optional caption.
func (t *Transport) SendImage(ctx context.Context, to string, imageBytes []byte, mimeType string, caption string) (string, error) {
	jid, err := t.resolveJID(to)
	if err != nil {
		return "", err
	}

	thumbnail, err := buildThumbnail(imageBytes)
	if err != nil {
		return "", err
	}

	uploaded, err := t.client.Upload(ctx, imageBytes, whatsmeow.MediaImage)
	if err != nil {
		return "", errors.New("error while uploading media to whatsapp server")
	}

	extra := whatsmeow.SendRequestExtra{ID: t.client.GenerateMessageID()}
	content := &waE2E.Message{
		ImageMessage: &waE2E.ImageMessage{
			URL:           proto.String(uploaded.URL),
			DirectPath:    proto.String(uploaded.DirectPath),
			Mimetype:      proto.String(mimeType),
			Caption:       proto.String(caption),
			FileLength:    proto.Uint64(uploaded.FileLength),
			FileSHA256:    uploaded.FileSHA256,
			FileEncSHA256: uploaded.FileEncSHA256,
			MediaKey:      uploaded.MediaKey,
			JPEGThumbnail: thumbnail,
		},
	}
	if _, err := t.client.SendMessage(ctx, jid, content, extra); err != nil {
		return "", err
	}
	return extra.ID, nil
}

// SendDocument uploads document bytes and sends them under fileName.
func (t *Transport) SendDocument(ctx context.Context, to string, documentBytes []byte, mimeType string, fileName string, caption string) (string, error) {
	jid, err := t.resolveJID(to)
	if err != nil {
		return "", err
	}

	uploaded, err := t.client.Upload(ctx, documentBytes, whatsmeow.MediaDocument)
	if err != nil {
		return "", errors.New("error while uploading media to whatsapp server")
	}

	extra := whatsmeow.SendRequestExtra{ID: t.client.GenerateMessageID()}
	content := &waE2E.Message{
		DocumentMessage: &waE2E.DocumentMessage{
			URL:           proto.String(uploaded.URL),
			DirectPath:    proto.String(uploaded.DirectPath),
			Mimetype:      proto.String(mimeType),
			FileName:      proto.String(fileName),
			Caption:       proto.String(caption),
			FileLength:    proto.Uint64(uploaded.FileLength),
			FileSHA256:    uploaded.FileSHA256,
			FileEncSHA256: uploaded.FileEncSHA256,
			MediaKey:      uploaded.MediaKey,
		},
	}
	if _, err := t.client.SendMessage(ctx, jid, content, extra); err != nil {
		return "", err
	}
	return extra.ID, nil
}

func (t *Transport) resolveJID(to string) (types.JID, error) {
	if t.client == nil {
		return types.EmptyJID, ErrNoClient
	}
	return ParseAddress(to)
}

func buildThumbnail(imageBytes []byte) ([]byte, error) {
	decoded, err := imgconv.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, errors.New("error while decoding thumbnail image stream")
	}
	encoded := new(bytes.Buffer)
	err = imgconv.Write(encoded,
		imgconv.Resize(decoded, &imgconv.ResizeOption{Width: 72}),
		&imgconv.FormatOption{Format: imgconv.JPEG})
	if err != nil {
		return nil, errors.New("error while encoding thumbnail image stream")
	}
	return encoded.Bytes(), nil
}
