package device

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/hanifabd/go-whatsapp-webhook-api/internal/service"
	"github.com/hanifabd/go-whatsapp-webhook-api/internal/session"
	"github.com/hanifabd/go-whatsapp-webhook-api/pkg/log"
	"github.com/hanifabd/go-whatsapp-webhook-api/pkg/router"
)

// GetStatus reports the connection lifecycle state.
func GetStatus(c *fiber.Ctx) error {
	status := service.Machine.Status()
	return router.ResponseSuccessWithData(c, "Success get status", map[string]interface{}{
		"connection_state": status.State,
		"has_qr":           status.QR != "",
		"last_error":       status.LastError,
	})
}

// GetQR returns the pairing QR code as a PNG data URL while a scan is
// pending.
func GetQR(c *fiber.Ctx) error {
	status := service.Machine.Status()

	switch {
	case status.State == session.StateConnected:
		return router.ResponseSuccess(c, "Session already connected")
	case status.QR != "":
		return router.ResponseSuccessWithData(c, "Scan the QR code to pair", map[string]interface{}{
			"qr": status.QR,
		})
	default:
		return router.ResponseSuccess(c, "QR code not available yet, try again shortly")
	}
}

// Logout tears the session down and wipes credentials. Idempotent.
func Logout(c *fiber.Ctx) error {
	log.Print(c).Info("Logout requested")

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := service.Gateway.Logout(ctx); err != nil {
		log.Print(c).WithError(err).Error("Logout finished with errors")
		return router.ResponseInternalError(c, err.Error())
	}

	return router.ResponseSuccess(c, "Logged out, credentials removed")
}
