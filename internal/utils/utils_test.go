package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	for _, raw := range []string{"2026-03-09", " 2026-03-09 ", "2026-03-09T18:30:00-03:00", "09/03/2026"} {
		got, err := ParseDate(raw)
		require.NoError(t, err, raw)
		require.True(t, want.Equal(got), raw)
	}
	for _, raw := range []string{"", "tomorrow", "2026-13-01", "31/02/2026"} {
		_, err := ParseDate(raw)
		require.Error(t, err, raw)
	}
	require.Equal(t, "2026-03-09", FormatDate(want))
	require.Equal(t, "", FormatDate(time.Time{}))
}

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("s3cret", 42, "FISHER", 15)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(15*time.Minute), tok.Exp, 5*time.Second)

	claims, err := ParseAccessToken("s3cret", tok.Token)
	require.NoError(t, err)
	require.Equal(t, "FISHER", claims.Role)
	id, err := claims.UserID()
	require.NoError(t, err)
	require.EqualValues(t, 42, id)

	_, err = ParseAccessToken("other", tok.Token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseAccessTokenRejects(t *testing.T) {
	expired, err := NewAccessToken("s3cret", 1, "CLUB", -1)
	require.NoError(t, err)
	_, err = ParseAccessToken("s3cret", expired.Token)
	require.ErrorIs(t, err, ErrInvalidToken)

	noRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = ParseAccessToken("s3cret", noRole)
	require.ErrorIs(t, err, ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Role: "CLUB",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "1"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseAccessToken("s3cret", unsigned)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshToken(t *testing.T) {
	a, err := NewRefreshToken(7)
	require.NoError(t, err)
	b, err := NewRefreshToken(7)
	require.NoError(t, err)
	require.Len(t, a.Raw, 96)
	require.NotEqual(t, a.Raw, b.Raw)

	h := HashRefreshRaw(a.Raw)
	require.Len(t, h, 64)
	require.Equal(t, h, HashRefreshRaw(a.Raw))
	require.NotEqual(t, h, a.Raw)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter22", 4)
	require.NoError(t, err)
	require.True(t, VerifyPassword(hash, "hunter22"))
	require.False(t, VerifyPassword(hash, "hunter23"))

	_, err = HashPassword(strings.Repeat("x", 73), 4)
	require.Error(t, err)
}
