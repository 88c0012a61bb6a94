package hash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	t.Parallel()

	h := New()

	hashed, err := h.Hash("qwerty123123")
	require.NoError(t, err)
	require.NotEmpty(t, hashed)

	require.True(t, h.Verify("qwerty123123", hashed))
}

func TestVerifyWrongPassword(t *testing.T) {
	t.Parallel()

	h := New()

	hashed, err := h.Hash("correct-password")
	require.NoError(t, err)

	require.False(t, h.Verify("wrong-password", hashed))
}

func TestHashIsSalted(t *testing.T) {
	t.Parallel()

	h := New()

	first, err := h.Hash("same-password")
	require.NoError(t, err)

	second, err := h.Hash("same-password")
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	require.True(t, h.Verify("same-password", first))
	require.True(t, h.Verify("same-password", second))
}

func TestVerifyMalformedHash(t *testing.T) {
	t.Parallel()

	h := New()

	cases := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"garbage", "not-a-bcrypt-hash"},
		{"foreign format", "$argon2id$v=19$m=65536,t=3,p=2$c29tZXNhbHQ$hash"},
		{"truncated bcrypt", "$2a$10$abc"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.False(t, h.Verify("any-password", tc.hash))
		})
	}
}
