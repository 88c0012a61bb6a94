package revoke_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"identity_service/internal/events"
	"identity_service/internal/http_server/handlers/revoke"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

type stubRevoker struct {
	err   error
	calls int
}

func (s *stubRevoker) Revoke(_ context.Context, _ string) error {
	s.calls++
	return s.err
}

type recordingPublisher struct {
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.events = append(p.events, ev)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func doRequest(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/revoke", bytes.NewReader([]byte(body)))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	return rec
}

func TestRevokeSuccess(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{}
	svc := &stubRevoker{}
	handler := revoke.New(discardLogger(), validator.New(), svc, pub)

	rec := doRequest(t, handler, `{"refresh_token":"some-token"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, svc.calls)
	require.Len(t, pub.events, 1)
	require.Equal(t, events.TypeTokenRevoked, pub.events[0].Type)
}

func TestRevokeRepeatedCallStaysOK(t *testing.T) {
	t.Parallel()

	svc := &stubRevoker{}
	handler := revoke.New(discardLogger(), validator.New(), svc, &recordingPublisher{})

	first := doRequest(t, handler, `{"refresh_token":"some-token"}`)
	second := doRequest(t, handler, `{"refresh_token":"some-token"}`)

	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	require.Equal(t, 2, svc.calls)
}

func TestRevokeStoreFailure(t *testing.T) {
	t.Parallel()

	handler := revoke.New(
		discardLogger(),
		validator.New(),
		&stubRevoker{err: errors.New("store unavailable")},
		&recordingPublisher{},
	)

	rec := doRequest(t, handler, `{"refresh_token":"some-token"}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRevokeValidation(t *testing.T) {
	t.Parallel()

	handler := revoke.New(discardLogger(), validator.New(), &stubRevoker{}, &recordingPublisher{})

	rec := doRequest(t, handler, `{}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
