package serverutils

import (
	"errors"

	"ai-docqa-be/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns errors returned by handlers into the JSON error envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if err == nil {
			return nil
		}

		code, message := StatusFor(err)
		return c.Status(code).JSON(ErrorResponse(code, message))
	}
}

// StatusFor maps an error to its HTTP status and the message shown to the client.
func StatusFor(err error) (int, string) {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, fiberErr.Message
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return fiber.StatusBadRequest, validationErr.Error()
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		switch appErr.Kind {
		case apperr.KindInput:
			return fiber.StatusBadRequest, appErr.UserMessage()
		case apperr.KindStorage:
			return fiber.StatusInternalServerError, "Database error: " + appErr.Error()
		case apperr.KindTransport, apperr.KindMalformedResponse:
			return fiber.StatusBadGateway, appErr.Error()
		}
	}

	return fiber.StatusInternalServerError, err.Error()
}
