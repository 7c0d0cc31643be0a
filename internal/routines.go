package internal

import (
	"os"
	"strconv"

	"github.com/robfig/cron/v3"

	"github.com/hanifabd/go-whatsapp-webhook-api/internal/service"
	"github.com/hanifabd/go-whatsapp-webhook-api/internal/session"
	"github.com/hanifabd/go-whatsapp-webhook-api/pkg/log"
)

// Routines registers the periodic session health check. The state machine
// reacts to transport events on its own; the cron pass only rescues sessions
// that got stuck disconnected, e.g. after a failed scheduled reconnect.
func Routines(c *cron.Cron) {
	log.Print(nil).Info("Running Routine Tasks")

	if !isHealthCheckEnabled() {
		log.Print(nil).Info("Health check cron disabled; relying on transport event handlers")
		c.Start()
		return
	}

	_, err := c.AddFunc("0 */5 * * * *", func() {
		status := service.Machine.Status()
		switch status.State {
		case session.StateConnected:
			log.SessionOp("health-check").Info("Session healthy")
		case session.StateDisconnected:
			log.SessionOp("health-check").
				WithField("last_error", status.LastError).
				Warn("Session unhealthy, triggering reconnect")
			service.Machine.TryReconnect()
		default:
			log.SessionOp("health-check").
				WithField("state", string(status.State)).
				Info("Session transitioning")
		}
	})
	if err != nil {
		log.Print(nil).WithField("error", err.Error()).Error("Failed to add health check cron job")
	}

	c.Start()
}

func isHealthCheckEnabled() bool {
	envValue, ok := os.LookupEnv("WHATSAPP_ENABLE_HEALTH_CHECK_CRON")
	if !ok {
		return true
	}
	enabled, err := strconv.ParseBool(envValue)
	if err != nil {
		log.Print(nil).Warn("Invalid WHATSAPP_ENABLE_HEALTH_CHECK_CRON value; defaulting to enabled")
		return true
	}
	return enabled
}
