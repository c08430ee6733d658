package serverutils

import (
	"errors"
	"fmt"
	"testing"

	"ai-docqa-be/pkg/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"fiber error", fiber.NewError(fiber.StatusNotFound, "nope"), fiber.StatusNotFound, "nope"},
		{"validation", &ValidationError{Fields: []string{"session_id is required"}}, fiber.StatusBadRequest, "validation failed: session_id is required"},
		{"input", apperr.Input("Please enter a valid question"), fiber.StatusBadRequest, "Please enter a valid question"},
		{"wrapped input", fmt.Errorf("ask: %w", apperr.Input("bad")), fiber.StatusBadRequest, "bad"},
		{"storage", apperr.Storage("count", errors.New("locked")), fiber.StatusInternalServerError, "Database error: count: locked"},
		{"transport", apperr.Transport("chat", errors.New("refused")), fiber.StatusBadGateway, "chat: refused"},
		{"unknown", errors.New("boom"), fiber.StatusInternalServerError, "boom"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, message := StatusFor(tc.err)
			assert.Equal(t, tc.code, code)
			assert.Equal(t, tc.message, message)
		})
	}
}

func TestValidateRequest(t *testing.T) {
	type request struct {
		SessionId string `validate:"required"`
		Question  string `validate:"required,max=5"`
	}

	assert.NoError(t, ValidateRequest(request{SessionId: "s1", Question: "hi"}))

	err := ValidateRequest(request{Question: "too long"})
	var validationErr *ValidationError
	if assert.True(t, errors.As(err, &validationErr)) {
		assert.Equal(t, []string{"session_id is required", "question is max"}, validationErr.Fields)
	}
}
