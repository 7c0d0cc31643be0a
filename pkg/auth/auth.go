package auth

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	"github.com/hanifabd/go-whatsapp-webhook-api/pkg/env"
	"github.com/hanifabd/go-whatsapp-webhook-api/pkg/router"
)

// APIKey is the single key protecting every API endpoint.
var APIKey string

func init() {
	APIKey, _ = env.GetEnvString("API_KEY")
}

// APIKeyAuth validates the X-API-Key header against the configured key.
func APIKeyAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		apiKey := c.Get("X-API-Key")
		if apiKey == "" {
			return router.ResponseUnauthorized(c, "Missing X-API-Key header")
		}

		if APIKey == "" {
			return router.ResponseInternalError(c, "API key not configured")
		}

		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(APIKey)) != 1 {
			return router.ResponseUnauthorized(c, "Invalid API key")
		}

		return c.Next()
	}
}
