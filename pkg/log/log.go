package log

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

var logger = logrus.New()

func init() {
	logger.Formatter = &logrus.TextFormatter{
		TimestampFormat: time.RFC3339,
		FullTimestamp:   true,
		DisableColors:   false,
		ForceColors:     true,
	}
}

func Print(c *fiber.Ctx) *logrus.Entry {
	if c == nil {
		return logger.WithFields(logrus.Fields{})
	}

	remoteIP := c.IP()
	if v := c.Locals("remote_ip"); v != nil {
		if ip, ok := v.(string); ok && ip != "" {
			remoteIP = ip
		}
	}
	return logger.WithFields(logrus.Fields{
		"remote_ip": remoteIP,
		"method":    c.Method(),
		"uri":       c.OriginalURL(),
	})
}

// SessionOp tags log entries produced by the connection lifecycle.
func SessionOp(op string) *logrus.Entry {
	return logger.WithFields(logrus.Fields{
		"component": "session",
		"operation": op,
	})
}

// WebhookOp tags log entries produced by the webhook delivery engine.
// attempt is 0 for entries outside a retry loop.
func WebhookOp(op string, attempt int) *logrus.Entry {
	fields := logrus.Fields{
		"component": "webhook",
		"operation": op,
	}
	if attempt > 0 {
		fields["attempt"] = attempt
	}
	return logger.WithFields(fields)
}
