package messaging

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/hanifabd/go-whatsapp-webhook-api/internal/gateway"
	"github.com/hanifabd/go-whatsapp-webhook-api/internal/service"
	"github.com/hanifabd/go-whatsapp-webhook-api/pkg/env"
	"github.com/hanifabd/go-whatsapp-webhook-api/pkg/log"
	"github.com/hanifabd/go-whatsapp-webhook-api/pkg/router"
	"github.com/hanifabd/go-whatsapp-webhook-api/pkg/validation"
)

const maxUploadBytes = 10 << 20 // 10MB, matches the HTTP body limit default

type sendMessageRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}

func respondSendError(c *fiber.Ctx, err error) error {
	if errors.Is(err, gateway.ErrNotConnected) {
		log.Print(c).Warn("Send rejected, session not connected")
		return router.ResponseBadRequest(c, err.Error())
	}
	log.Print(c).WithError(err).Error("Failed to send message")
	return router.ResponseInternalError(c, err.Error())
}

// SendMessage sends a plain text message to a phone number or group address.
func SendMessage(c *fiber.Ctx) error {
	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		log.Print(c).Warn("Failed to parse body request")
		return router.ResponseBadRequest(c, "Failed parse body request")
	}

	if req.To == "" || req.Message == "" {
		return router.ResponseBadRequest(c, "to and message are required")
	}
	if err := validation.ValidateRecipient(req.To); err != nil {
		return router.ResponseBadRequest(c, err.Error())
	}

	log.Print(c).WithField("text_length", len(req.Message)).Info("Sending text message")

	msgID, address, err := service.Gateway.SendText(requestContext(c), req.To, req.Message)
	if err != nil {
		return respondSendError(c, err)
	}

	log.Print(c).WithField("message_id", msgID).Info("Text message sent successfully")

	return router.ResponseSuccessWithData(c, "Success send message", map[string]interface{}{
		"message_id": msgID,
		"to":         address,
		"message":    req.Message,
		"timestamp":  time.Now().Unix(),
	})
}

// SendImage sends a multipart-uploaded image with an optional caption.
func SendImage(c *fiber.Ctx) error {
	to := c.FormValue("to")
	caption := c.FormValue("caption")

	if to == "" {
		return router.ResponseBadRequest(c, "to is required")
	}
	if err := validation.ValidateRecipient(to); err != nil {
		return router.ResponseBadRequest(c, err.Error())
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		log.Print(c).Warn("No image file provided")
		return router.ResponseBadRequest(c, "image file is required")
	}

	fileBytes, err := readUpload(c, fileHeader)
	if err != nil {
		return router.ResponseBadRequest(c, err.Error())
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	log.Print(c).WithField("filename", fileHeader.Filename).WithField("size", fileHeader.Size).Info("Sending image")

	msgID, address, err := service.Gateway.SendImage(requestContext(c), to, fileBytes, mimeType, caption)
	if err != nil {
		return respondSendError(c, err)
	}

	log.Print(c).WithField("message_id", msgID).Info("Image sent successfully")

	return router.ResponseSuccessWithData(c, "Success send image", map[string]interface{}{
		"message_id": msgID,
		"to":         address,
		"caption":    caption,
		"timestamp":  time.Now().Unix(),
	})
}

// SendDocument sends a multipart-uploaded document under an optional custom
// file name.
func SendDocument(c *fiber.Ctx) error {
	to := c.FormValue("to")
	caption := c.FormValue("caption")
	fileName := c.FormValue("filename")

	if to == "" {
		return router.ResponseBadRequest(c, "to is required")
	}
	if err := validation.ValidateRecipient(to); err != nil {
		return router.ResponseBadRequest(c, err.Error())
	}

	fileHeader, err := c.FormFile("document")
	if err != nil {
		log.Print(c).Warn("No document file provided")
		return router.ResponseBadRequest(c, "document file is required")
	}

	fileBytes, err := readUpload(c, fileHeader)
	if err != nil {
		return router.ResponseBadRequest(c, err.Error())
	}

	if fileName == "" {
		fileName = fileHeader.Filename
	}
	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	log.Print(c).WithField("filename", fileName).WithField("size", fileHeader.Size).Info("Sending document")

	msgID, address, err := service.Gateway.SendDocument(requestContext(c), to, fileBytes, mimeType, fileName, caption)
	if err != nil {
		return respondSendError(c, err)
	}

	log.Print(c).WithField("message_id", msgID).WithField("filename", fileName).Info("Document sent successfully")

	return router.ResponseSuccessWithData(c, "Success send document", map[string]interface{}{
		"message_id": msgID,
		"to":         address,
		"filename":   fileName,
		"timestamp":  time.Now().Unix(),
	})
}

// readUpload stages the multipart file on disk under the upload directory,
// reads it back, and removes it whether or not the send later succeeds.
func readUpload(c *fiber.Ctx, fileHeader *multipart.FileHeader) ([]byte, error) {
	if fileHeader.Size > maxUploadBytes {
		return nil, fmt.Errorf("file exceeds the %dMB upload limit", maxUploadBytes>>20)
	}

	uploadDir := env.GetEnvStringOrDefault("UPLOAD_DIR", "uploads")
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, err
	}

	stagedPath := filepath.Join(uploadDir,
		fmt.Sprintf("%d-%s", time.Now().UnixNano(), filepath.Base(fileHeader.Filename)))
	if err := c.SaveFile(fileHeader, stagedPath); err != nil {
		return nil, err
	}
	defer func() {
		if err := os.Remove(stagedPath); err != nil {
			log.Print(c).WithError(err).Warn("Failed to remove staged upload")
		}
	}()

	return os.ReadFile(stagedPath)
}
