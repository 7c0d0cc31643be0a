package internal

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hanifabd/go-whatsapp-webhook-api/pkg/auth"
	"github.com/hanifabd/go-whatsapp-webhook-api/pkg/router"

	ctlDevice "github.com/hanifabd/go-whatsapp-webhook-api/internal/device"
	ctlIndex "github.com/hanifabd/go-whatsapp-webhook-api/internal/index"
	ctlMessaging "github.com/hanifabd/go-whatsapp-webhook-api/internal/messaging"
	ctlWebhooks "github.com/hanifabd/go-whatsapp-webhook-api/internal/webhooks"
)

func Routes(app *fiber.App) {
	// Route for Index
	// ---------------------------------------------
	if router.BaseURL == "" {
		app.Get("/", ctlIndex.Index)
	} else {
		app.Get(router.BaseURL, ctlIndex.Index)
		app.Get(router.BaseURL+"/", ctlIndex.Index)
	}
	app.Get(router.BaseURL+"/health", ctlIndex.Health)

	// Everything below requires the X-API-Key header.
	apiKeyMiddleware := auth.APIKeyAuth()

	// Session routes
	app.Get(router.BaseURL+"/status", apiKeyMiddleware, ctlDevice.GetStatus)
	app.Get(router.BaseURL+"/qr", apiKeyMiddleware, ctlDevice.GetQR)
	app.Post(router.BaseURL+"/logout", apiKeyMiddleware, ctlDevice.Logout)

	// Messaging routes
	app.Post(router.BaseURL+"/send-message", apiKeyMiddleware, ctlMessaging.SendMessage)
	app.Post(router.BaseURL+"/send-image", apiKeyMiddleware, ctlMessaging.SendImage)
	app.Post(router.BaseURL+"/send-document", apiKeyMiddleware, ctlMessaging.SendDocument)

	// Webhook routes
	app.Post(router.BaseURL+"/webhook/config", apiKeyMiddleware, ctlWebhooks.UpdateConfig)
	app.Get(router.BaseURL+"/webhook/status", apiKeyMiddleware, ctlWebhooks.GetStatus)
	app.Post(router.BaseURL+"/webhook/test", apiKeyMiddleware, ctlWebhooks.Test)
}
