package webhooks

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hanifabd/go-whatsapp-webhook-api/internal/service"
	"github.com/hanifabd/go-whatsapp-webhook-api/internal/webhook"
	"github.com/hanifabd/go-whatsapp-webhook-api/pkg/log"
	"github.com/hanifabd/go-whatsapp-webhook-api/pkg/router"
)

// UpdateConfig applies a partial webhook config update. Fields left out of
// the body keep their current value.
func UpdateConfig(c *fiber.Ctx) error {
	var req webhook.UpdateRequest
	if err := c.BodyParser(&req); err != nil {
		log.WebhookOp("UpdateConfig", 0).Warn("Invalid request body")
		return router.ResponseBadRequest(c, "invalid request body")
	}

	snapshot, err := service.WebhookConfig.Update(req)
	if err != nil {
		log.WebhookOp("UpdateConfig", 0).WithError(err).Warn("Rejected webhook config update")
		return router.ResponseBadRequest(c, err.Error())
	}

	log.WebhookOp("UpdateConfig", 0).
		WithField("url", snapshot.URL).
		WithField("enabled", snapshot.Enabled).
		Info("Webhook config updated")

	return router.ResponseSuccessWithData(c, "Webhook config updated", snapshot)
}

// GetStatus returns the current config with the secret redacted.
func GetStatus(c *fiber.Ctx) error {
	return router.ResponseSuccessWithData(c, "success", service.WebhookConfig.Snapshot())
}

// Test performs one synchronous delivery of a synthetic envelope and reports
// the outcome.
func Test(c *fiber.Ctx) error {
	log.WebhookOp("Test", 0).Info("Dispatching test webhook")

	result := service.Engine.Test()
	if !result.Success {
		log.WebhookOp("Test", 0).WithField("error", result.Error).Warn("Test webhook failed")
		return router.ResponseSuccessWithData(c, "Test webhook failed", result)
	}

	log.WebhookOp("Test", 0).WithField("http_status", result.Status).Info("Test webhook delivered")
	return router.ResponseSuccessWithData(c, "Test webhook delivered", result)
}
