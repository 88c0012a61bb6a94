package revoke

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"identity_service/internal/events"
	resp "identity_service/internal/lib/api/response"
	sl "identity_service/internal/lib/logger"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type Response struct {
	resp.Response
}

type TokenRevoker interface {
	Revoke(ctx context.Context, refreshToken string) error
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	authService TokenRevoker,
	pub events.Publisher,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.revoke.New"

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

		// Revocation is idempotent: an unknown token succeeds like a known one.
		if err := authService.Revoke(ctx, req.RefreshToken); err != nil {
			log.Error("failed to revoke token", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("refresh token revoked")

		if pub != nil {
			ev := events.Event{
				Type:       events.TypeTokenRevoked,
				OccurredAt: time.Now(),
			}

			if err := pub.Publish(ctx, ev); err != nil {
				log.Warn("Failed to publish revocation event", sl.Err(err))
			}
		}

		ResponseOK(w, r)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, Response{
		Response: resp.OK(),
	})
}
