package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"identity_service/internal/lib/jwt"
	sl "identity_service/internal/lib/logger"
	"identity_service/internal/models"
	"identity_service/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUserExists         = errors.New("user already exists")
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

type TokenSigner interface {
	IssueAccessToken(user models.User) (string, error)
	IssueRefreshToken() (string, error)
	VerifyForRefresh(accessToken string) (*jwt.Claims, error)
}

type UserSaver interface {
	SaveUser(ctx context.Context, name, surname, email, passHash string) (models.User, error)
}

type UserProvider interface {
	UserByEmail(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id int64) (models.User, error)
}

type RefreshTokenStore interface {
	SaveRefreshToken(ctx context.Context, rt models.RefreshToken) error
	RefreshTokenByValueAndUser(ctx context.Context, token string, userID int64) (models.RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldToken string, next models.RefreshToken) error
	DeleteRefreshToken(ctx context.Context, token string) error
}

// Auth is stateless: all session state lives in the refresh token store, so
// a single instance is safe under arbitrary concurrent calls.
type Auth struct {
	log         *slog.Logger
	hasher      PasswordHasher
	signer      TokenSigner
	usrSaver    UserSaver
	usrProvider UserProvider
	sessions    RefreshTokenStore
	accessTTL   time.Duration
	refreshTTL  time.Duration
}

func New(
	log *slog.Logger,
	hasher PasswordHasher,
	signer TokenSigner,
	userSaver UserSaver,
	userProvider UserProvider,
	sessions RefreshTokenStore,
	accessTTL, refreshTTL time.Duration,
) *Auth {
	return &Auth{
		log:         log,
		hasher:      hasher,
		signer:      signer,
		usrSaver:    userSaver,
		usrProvider: userProvider,
		sessions:    sessions,
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
	}
}

// RegisterNewUser creates a user with a hashed password. The email is
// lowercased before storage and lookup, so addresses differing only in case
// collide as duplicates.
func (a *Auth) RegisterNewUser(
	ctx context.Context,
	name, surname, email, pass string,
) (models.User, error) {
	const op = "auth.RegisterNewUser"

	log := a.log.With(
		slog.String("op", op),
	)

	log.Info("Registering new user")

	passHash, err := a.hasher.Hash(pass)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	user, err := a.usrSaver.SaveUser(ctx, name, surname, normalizeEmail(email), passHash)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			log.Warn("User already exists")

			return models.User{}, fmt.Errorf("%s: %w", op, ErrUserExists)
		}

		log.Error("Failed to save user", sl.Err(err))

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("User registered", slog.Int64("uid", user.ID))

	return user, nil
}

// Authenticate checks credentials. An unknown email and a wrong password
// both come back as ErrInvalidCredentials; the caller cannot tell which
// accounts exist.
func (a *Auth) Authenticate(
	ctx context.Context,
	email, password string,
) (models.User, error) {
	const op = "auth.Authenticate"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.UserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")
			return models.User{}, ErrInvalidCredentials
		}

		log.Error("failed to get user", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	if !a.hasher.Verify(password, user.PassHash) {
		log.Info("invalid credentials")
		return models.User{}, ErrInvalidCredentials
	}

	return user, nil
}

// Login verifies credentials and issues a token pair.
func (a *Auth) Login(
	ctx context.Context,
	email, password string,
) (models.TokenPair, error) {
	const op = "auth.Login"

	user, err := a.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return models.TokenPair{}, ErrInvalidCredentials
		}

		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	pair, err := a.IssueTokenPair(ctx, user)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	a.log.Info("user logged in successfully", slog.Int64("uid", user.ID))

	return pair, nil
}

// IssueTokenPair mints an access token and a refresh token and persists the
// refresh record. The pair's expiry is computed from the same instant as the
// refresh record, and matches the expiry embedded in the access token.
func (a *Auth) IssueTokenPair(
	ctx context.Context,
	user models.User,
) (models.TokenPair, error) {
	const op = "auth.IssueTokenPair"

	log := a.log.With(slog.String("op", op))

	now := time.Now()

	accessToken, err := a.signer.IssueAccessToken(user)
	if err != nil {
		log.Error("failed to generate access token", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	refreshToken, err := a.signer.IssueRefreshToken()
	if err != nil {
		log.Error("failed to generate refresh token", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	err = a.sessions.SaveRefreshToken(ctx, models.RefreshToken{
		UserID:    user.ID,
		Token:     refreshToken,
		ExpiresAt: now.Add(a.refreshTTL),
		CreatedAt: now,
	})
	if err != nil {
		log.Error("failed to save refresh token", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    now.Add(a.accessTTL),
	}, nil
}

// Refresh exchanges a used refresh token for a new pair. The access token
// only needs a valid signature under our key; it may be expired. Unknown,
// expired and concurrently consumed refresh tokens all fail with
// ErrInvalidToken so callers cannot probe which tokens exist.
func (a *Auth) Refresh(
	ctx context.Context,
	accessToken, refreshToken string,
) (models.TokenPair, error) {
	const op = "auth.Refresh"

	log := a.log.With(
		slog.String("op", op),
	)

	claims, err := a.signer.VerifyForRefresh(accessToken)
	if err != nil {
		log.Warn("access token rejected", sl.Err(err))
		return models.TokenPair{}, ErrInvalidToken
	}

	if claims.UserID <= 0 {
		log.Warn("access token carries no identity claim")
		return models.TokenPair{}, ErrInvalidToken
	}

	rt, err := a.sessions.RefreshTokenByValueAndUser(ctx, refreshToken, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrRefreshTokenNotFound) {
			log.Warn("refresh token not found")
			return models.TokenPair{}, ErrInvalidToken
		}

		log.Error("failed to load refresh token", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now()

	if rt.IsExpired(now) {
		log.Warn("refresh token expired")
		return models.TokenPair{}, ErrInvalidToken
	}

	user, err := a.usrProvider.UserByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("refresh token owner no longer exists")
			return models.TokenPair{}, ErrInvalidToken
		}

		log.Error("failed to load user", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	newAccess, err := a.signer.IssueAccessToken(user)
	if err != nil {
		log.Error("failed to generate access token", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	newRefresh, err := a.signer.IssueRefreshToken()
	if err != nil {
		log.Error("failed to generate refresh token", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	err = a.sessions.RotateRefreshToken(ctx, rt.Token, models.RefreshToken{
		UserID:    rt.UserID,
		Token:     newRefresh,
		ExpiresAt: now.Add(a.refreshTTL),
		CreatedAt: now,
	})
	if err != nil {
		// Another rotation consumed the token first; this caller loses.
		if errors.Is(err, storage.ErrRefreshTokenNotFound) {
			log.Warn("refresh token already consumed")
			return models.TokenPair{}, ErrInvalidToken
		}

		log.Error("failed to rotate refresh token", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("refresh successful", slog.Int64("uid", user.ID))

	return models.TokenPair{
		AccessToken:  newAccess,
		RefreshToken: newRefresh,
		ExpiresAt:    now.Add(a.accessTTL),
	}, nil
}

// Revoke deletes the refresh token by value. The token itself is the
// capability, so no user binding is required, and revoking an unknown or
// already revoked token succeeds silently.
func (a *Auth) Revoke(
	ctx context.Context,
	refreshToken string,
) error {
	const op = "auth.Revoke"

	log := a.log.With(
		slog.String("op", op),
	)

	err := a.sessions.DeleteRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, storage.ErrRefreshTokenNotFound) {
			return nil
		}

		log.Error("failed to delete refresh token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("refresh token revoked")

	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
