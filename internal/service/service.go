// Package service holds the process-wide collaborators shared by the HTTP
// controllers. Setup builds them from the environment; Configure injects
// replacements for tests.
package service

import (
	"context"
	"time"

	"github.com/hanifabd/go-whatsapp-webhook-api/internal/gateway"
	"github.com/hanifabd/go-whatsapp-webhook-api/internal/session"
	"github.com/hanifabd/go-whatsapp-webhook-api/internal/webhook"
	"github.com/hanifabd/go-whatsapp-webhook-api/pkg/env"
	"github.com/hanifabd/go-whatsapp-webhook-api/pkg/whatsapp"
)

var (
	Machine       *session.Machine
	Gateway       *gateway.Gateway
	WebhookConfig *webhook.Store
	Engine        *webhook.Engine
	Failures      *webhook.FailureLog

	startedAt = time.Now()
)

// Setup builds the full collaborator graph from the environment. The one
// error it can return is a credential-datastore failure, which the caller
// treats as fatal.
func Setup(ctx context.Context) error {
	transport, err := whatsapp.New(ctx, whatsapp.Config{
		SessionDir: env.GetEnvStringOrDefault("SESSION_DIR", "session"),
		Driver:     env.GetEnvStringOrDefault("WHATSAPP_DATASTORE_DRIVER", "sqlite"),
		DSN:        env.GetEnvStringOrDefault("WHATSAPP_DATASTORE_URI", ""),
		QRTerminal: env.GetEnvBoolOrDefault("WHATSAPP_QR_TERMINAL", false),
	})
	if err != nil {
		return err
	}

	WebhookConfig = webhook.NewStoreFromEnv()
	Failures = webhook.NewFailureLogFromEnv()
	Engine = webhook.NewEngine(WebhookConfig, Failures)
	Machine = session.New(transport, Engine,
		env.GetEnvDurationOrDefault("WHATSAPP_RECONNECT_DELAY", 5*time.Second))
	Gateway = gateway.New(Machine, transport)
	return nil
}

// Configure swaps the collaborators, used by controller tests.
func Configure(machine *session.Machine, gw *gateway.Gateway, cfg *webhook.Store, engine *webhook.Engine) {
	Machine = machine
	Gateway = gw
	WebhookConfig = cfg
	Engine = engine
}

// Uptime reports how long the process has been running.
func Uptime() time.Duration {
	return time.Since(startedAt)
}
