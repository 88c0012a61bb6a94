package models

import "time"

type User struct {
	ID        int64
	Name      string
	Surname   string
	Email     string
	PassHash  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type RefreshToken struct {
	ID        int64
	UserID    int64
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired reports whether the token can no longer be exchanged at the
// given instant. A token expiring exactly now counts as expired.
func (rt *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(rt.ExpiresAt)
}

// TokenPair is handed to the caller after login or refresh. It is never
// persisted as a unit; only the refresh token value has a stored record.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}
