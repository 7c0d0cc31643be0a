package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestHttpErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: HttpErrorHandler})
	app.Get("/fiber-error", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "no such thing")
	})
	app.Get("/plain-error", func(c *fiber.Ctx) error {
		return errBoom{}
	})

	cases := []struct {
		path        string
		wantCode    int
		wantMessage string
	}{
		{"/fiber-error", http.StatusNotFound, "no such thing"},
		{"/plain-error", http.StatusInternalServerError, "boom"},
	}

	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tc.path, nil))
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tc.wantCode {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.wantCode)
			}

			var body Response
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("body is not the standard envelope: %v", err)
			}
			if body.Status {
				t.Error("status flag = true on an error response")
			}
			if body.Code != tc.wantCode || body.Message != tc.wantMessage || body.Error != tc.wantMessage {
				t.Errorf("envelope = %+v, want code %d message %q", body, tc.wantCode, tc.wantMessage)
			}
		})
	}
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }
