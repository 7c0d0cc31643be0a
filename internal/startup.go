package internal

import (
	"context"

	"github.com/hanifabd/go-whatsapp-webhook-api/internal/message"
	"github.com/hanifabd/go-whatsapp-webhook-api/internal/service"
	"github.com/hanifabd/go-whatsapp-webhook-api/pkg/log"
)

// Startup builds the collaborator graph and opens the WhatsApp session. A
// credential-datastore failure aborts the process; connect failures after
// that surface through the state machine and its reconnect logic.
func Startup() {
	log.Print(nil).Info("Running Startup Tasks")

	ctx := context.Background()

	if err := service.Setup(ctx); err != nil {
		log.Print(nil).WithError(err).Fatal("Failed to open WhatsApp credential datastore")
	}

	// Local inbound tap: the webhook engine is wired inside the machine,
	// this handler only leaves an audit trail.
	service.Machine.AddHandler(func(msg message.InboundMessage) {
		log.SessionOp("inbound").
			WithField("message_id", msg.ID).
			WithField("from", msg.From).
			WithField("message_type", string(msg.Type)).
			Info("Inbound message received")
	})

	if err := service.Machine.Initialize(ctx); err != nil {
		log.Print(nil).WithError(err).Warn("Initial connect failed, reconnect routine will retry")
	}
}
