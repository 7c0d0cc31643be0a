package router

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// HttpErrorHandler maps errors escaping route handlers onto the standard
// response envelope. Fiber errors keep their status code; everything else is
// treated as an internal fault.
func HttpErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
	}

	return respondError(c, code, message)
}
