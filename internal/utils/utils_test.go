package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParseToken(t *testing.T) {
	raw, exp, err := IssueToken("secret", 42, "ann", "admin", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	c, err := ParseToken("secret", raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), c.UserID)
	assert.Equal(t, "ann", c.Username)
	assert.Equal(t, "admin", c.Role)
	assert.NotNil(t, c.IssuedAt)
}

func TestParseTokenRejects(t *testing.T) {
	good, _, err := IssueToken("secret", 1, "ann", "user", time.Hour)
	require.NoError(t, err)
	expired, _, err := IssueToken("secret", 1, "ann", "user", -time.Minute)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID:           1,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	noUser, _, err := IssueToken("secret", 0, "ghost", "user", time.Hour)
	require.NoError(t, err)

	cases := map[string]struct{ secret, raw string }{
		"wrong secret": {"other", good},
		"expired":      {"secret", expired},
		"alg none":     {"secret", none},
		"garbage":      {"secret", "not.a.token"},
		"no user id":   {"secret", noUser},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseToken(tc.secret, tc.raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestPasswordRoundTrip(t *testing.T) {
	h, err := HashPassword("hunter22", 4)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(h, "hunter22"))
	assert.False(t, VerifyPassword(h, "hunter23"))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "&lt;b&gt;Ann&lt;/b&gt; &amp; co", Sanitize("  <b>Ann</b> & co \n"))
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("ann@example.com"))
	assert.False(t, ValidEmail("ann@localhost"))
	assert.False(t, ValidEmail("Ann <ann@example.com>"))
	assert.False(t, ValidEmail("not-an-email"))
}
