package login_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"identity_service/internal/auth"
	"identity_service/internal/http_server/handlers/login"
	"identity_service/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

type stubLoginer struct {
	pair models.TokenPair
	err  error
}

func (s *stubLoginer) Login(_ context.Context, _, _ string) (models.TokenPair, error) {
	return s.pair, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func doRequest(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader([]byte(body)))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	return rec
}

func TestLoginSuccess(t *testing.T) {
	t.Parallel()

	pair := models.TokenPair{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    time.Now().Add(15 * time.Minute).UTC(),
	}

	handler := login.New(discardLogger(), validator.New(), &stubLoginer{pair: pair})

	rec := doRequest(t, handler, `{"email":"test@example.com","password":"qwerty123123"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var got login.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, pair.AccessToken, got.AccessToken)
	require.Equal(t, pair.RefreshToken, got.RefreshToken)
	require.True(t, pair.ExpiresAt.Equal(got.ExpiresAt))
}

func TestLoginInvalidCredentials(t *testing.T) {
	t.Parallel()

	handler := login.New(discardLogger(), validator.New(), &stubLoginer{err: auth.ErrInvalidCredentials})

	rec := doRequest(t, handler, `{"email":"test@example.com","password":"wrong"}`)

	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var got login.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "Invalid credentials", got.Error)
	require.Empty(t, got.AccessToken)
}

func TestLoginValidation(t *testing.T) {
	t.Parallel()

	handler := login.New(discardLogger(), validator.New(), &stubLoginer{})

	rec := doRequest(t, handler, `{"email":"not-an-email"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
