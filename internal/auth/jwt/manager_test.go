package jwt

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = strings.Repeat("s", 32)

func TestManager_GenerateAndValidate(t *testing.T) {
	m := NewManager(testSecret, "keyadmin", time.Hour)

	token, err := m.GenerateToken("root@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, token.Value)
	assert.NotEmpty(t, token.ID)
	assert.Equal(t, int64(3600), token.ExpiresIn)

	claims, err := m.ValidateToken(token.Value)
	require.NoError(t, err)
	assert.Equal(t, "root@example.com", claims.Email)
	assert.Equal(t, token.ID, claims.ID)
	assert.InDelta(t, time.Hour.Seconds(), m.Remaining(claims).Seconds(), 5)
}

func TestManager_UniqueIDs(t *testing.T) {
	m := NewManager(testSecret, "keyadmin", time.Hour)

	a, err := m.GenerateToken("a@example.com")
	require.NoError(t, err)
	b, err := m.GenerateToken("a@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestManager_Expired(t *testing.T) {
	m := NewManager(testSecret, "keyadmin", time.Minute)
	token, err := m.GenerateToken("root@example.com")
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	_, err = m.ValidateToken(token.Value)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestManager_Invalid(t *testing.T) {
	m := NewManager(testSecret, "keyadmin", time.Hour)
	other := NewManager(strings.Repeat("x", 32), "keyadmin", time.Hour)
	foreignIssuer := NewManager(testSecret, "someone-else", time.Hour)

	t.Run("garbage", func(t *testing.T) {
		_, err := m.ValidateToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := other.GenerateToken("root@example.com")
		require.NoError(t, err)
		_, err = m.ValidateToken(token.Value)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		token, err := foreignIssuer.GenerateToken("root@example.com")
		require.NoError(t, err)
		_, err = m.ValidateToken(token.Value)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		claims := Claims{
			Email: "root@example.com",
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        "x",
				Issuer:    "keyadmin",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = m.ValidateToken(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
