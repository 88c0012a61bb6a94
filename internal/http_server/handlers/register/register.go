package register

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"identity_service/internal/auth"
	"identity_service/internal/events"
	resp "identity_service/internal/lib/api/response"
	sl "identity_service/internal/lib/logger"
	"identity_service/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Name    string `json:"name" validate:"required"`
	Surname string `json:"surname" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Pass    string `json:"password" validate:"required"`
}

type Response struct {
	resp.Response
	UserID int64 `json:"user_id"`
}

type UserRegisterer interface {
	RegisterNewUser(ctx context.Context, name, surname, email, password string) (models.User, error)
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	authService UserRegisterer,
	pub events.Publisher,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.register.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		log.Info("Request body decoded")

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		user, err := authService.RegisterNewUser(ctx, req.Name, req.Surname, req.Email, req.Pass)
		if err != nil {
			if errors.Is(err, auth.ErrUserExists) {
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, resp.Error("Email already in use"))

				return
			}

			log.Error("failed to register user", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("User registered", slog.Int64("id", user.ID))

		publishRegistered(ctx, log, pub, user)

		ResponseOK(w, r, user.ID)
	}
}

// publishRegistered emits the audit event. A broker failure must not fail
// the registration itself.
func publishRegistered(ctx context.Context, log *slog.Logger, pub events.Publisher, user models.User) {
	if pub == nil {
		return
	}

	ev := events.Event{
		Type:       events.TypeUserRegistered,
		UserID:     user.ID,
		Email:      user.Email,
		OccurredAt: time.Now(),
	}

	if err := pub.Publish(ctx, ev); err != nil {
		log.Warn("Failed to publish registration event", sl.Err(err))
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request, userID int64) {
	render.JSON(w, r, Response{
		Response: resp.OK(),
		UserID:   userID,
	})
}
