package jwt

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"identity_service/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

const refreshTokenBytes = 32

// Claims carried by an access token. UserID is the identity claim; every
// verification caller must treat a zero UserID as a malformed token.
type Claims struct {
	UserID  int64  `json:"uid"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Email   string `json:"email"`
	jwt.RegisteredClaims
}

// Signer issues HS256 access tokens and opaque refresh token values.
// Verification is pinned to HS256: a token signed with any other method
// fails no matter what key it carries.
type Signer struct {
	secret    []byte
	issuer    string
	audience  string
	accessTTL time.Duration
}

func NewSigner(secret, issuer, audience string, accessTTL time.Duration) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("jwt: signing secret is not configured")
	}

	return &Signer{
		secret:    []byte(secret),
		issuer:    issuer,
		audience:  audience,
		accessTTL: accessTTL,
	}, nil
}

// IssueAccessToken signs a token for the user with a fresh jti, so two
// tokens issued for the same user in the same second still differ.
func (s *Signer) IssueAccessToken(user models.User) (string, error) {
	const op = "jwt.IssueAccessToken"

	now := time.Now()

	claims := Claims{
		UserID:  user.ID,
		Name:    user.Name,
		Surname: user.Surname,
		Email:   user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

// IssueRefreshToken returns a 256-bit random value, base64-encoded. It is a
// bare capability reference and carries no claims.
func (s *Signer) IssueRefreshToken() (string, error) {
	const op = "jwt.IssueRefreshToken"

	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return base64.StdEncoding.EncodeToString(buf), nil
}

// VerifyForAccess runs full validation: signature, HS256 pinning, issuer,
// audience and expiry with zero leeway.
func (s *Signer) VerifyForAccess(tokenStr string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}

		return nil, ErrInvalidToken
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// VerifyForRefresh validates signature and signing method only. Expiry,
// issuer and audience are deliberately not enforced on this path: an
// expired but correctly signed access token is the proof of prior
// authentication that makes rotation possible without re-login.
func (s *Signer) VerifyForRefresh(tokenStr string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (s *Signer) keyFunc(_ *jwt.Token) (interface{}, error) {
	return s.secret, nil
}
