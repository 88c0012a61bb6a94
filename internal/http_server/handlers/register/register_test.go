package register_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"identity_service/internal/auth"
	"identity_service/internal/events"
	"identity_service/internal/http_server/handlers/register"
	"identity_service/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

type stubRegisterer struct {
	user models.User
	err  error
}

func (s *stubRegisterer) RegisterNewUser(_ context.Context, _, _, _, _ string) (models.User, error) {
	return s.user, s.err
}

type recordingPublisher struct {
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	if p.err != nil {
		return p.err
	}

	p.events = append(p.events, ev)

	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func doRequest(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader([]byte(body)))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	return rec
}

func TestRegisterSuccess(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{}
	handler := register.New(
		discardLogger(),
		validator.New(),
		&stubRegisterer{user: models.User{ID: 7, Email: "test@example.com"}},
		pub,
	)

	rec := doRequest(t, handler,
		`{"name":"Ivan","surname":"Ivanov","email":"test@example.com","password":"qwerty123123"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var got register.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, int64(7), got.UserID)
	require.Equal(t, "OK", got.Status)

	require.Len(t, pub.events, 1)
	require.Equal(t, events.TypeUserRegistered, pub.events[0].Type)
	require.Equal(t, int64(7), pub.events[0].UserID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	t.Parallel()

	handler := register.New(
		discardLogger(),
		validator.New(),
		&stubRegisterer{err: auth.ErrUserExists},
		&recordingPublisher{},
	)

	rec := doRequest(t, handler,
		`{"name":"Ivan","surname":"Ivanov","email":"test@example.com","password":"qwerty123123"}`)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	handler := register.New(
		discardLogger(),
		validator.New(),
		&stubRegisterer{},
		&recordingPublisher{},
	)

	cases := []struct {
		name string
		body string
	}{
		{"bad email", `{"name":"Ivan","surname":"Ivanov","email":"not-an-email","password":"x"}`},
		{"missing name", `{"surname":"Ivanov","email":"test@example.com","password":"x"}`},
		{"broken json", `{"name":`},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rec := doRequest(t, handler, tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRegisterSucceedsWhenBrokerDown(t *testing.T) {
	t.Parallel()

	handler := register.New(
		discardLogger(),
		validator.New(),
		&stubRegisterer{user: models.User{ID: 7}},
		&recordingPublisher{err: errors.New("broker unreachable")},
	)

	rec := doRequest(t, handler,
		`{"name":"Ivan","surname":"Ivanov","email":"test@example.com","password":"qwerty123123"}`)

	require.Equal(t, http.StatusOK, rec.Code)
}
