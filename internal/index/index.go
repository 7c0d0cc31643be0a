package index

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hanifabd/go-whatsapp-webhook-api/internal/service"
	"github.com/hanifabd/go-whatsapp-webhook-api/pkg/router"
)

func Index(c *fiber.Ctx) error {
	return router.ResponseSuccessWithData(c, "WhatsApp Webhook API", map[string]interface{}{
		"service": "go-whatsapp-webhook-api",
		"version": "1.0.0",
	})
}

func Health(c *fiber.Ctx) error {
	return router.ResponseSuccessWithData(c, "healthy", map[string]interface{}{
		"status":           "ok",
		"uptime_seconds":   int64(service.Uptime().Seconds()),
		"connection_state": service.Machine.Status().State,
	})
}
