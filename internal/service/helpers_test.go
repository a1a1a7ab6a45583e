package service

import (
	"io"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/activities-api/internal/auth"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testValidator(t *testing.T) *validator.Validate {
	t.Helper()
	validate := validator.New(validator.WithRequiredStructEnabled())
	require.NoError(t, auth.RegisterPasswordValidation(validate))
	return validate
}
