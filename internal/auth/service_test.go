package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	hash, err := HashKey("s3cret")
	require.NoError(t, err)
	return NewService("test-secret", time.Hour, "cku-autoscaler", hash)
}

func TestService_TokenRoundTrip(t *testing.T) {
	s := newTestService(t)

	token, err := s.GenerateToken("ops")
	require.NoError(t, err)

	claims, err := s.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Operator)
	assert.Equal(t, "cku-autoscaler", claims.Issuer)
}

func TestService_ExpiredToken(t *testing.T) {
	s := newTestService(t)
	s.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := s.GenerateToken("ops")
	require.NoError(t, err)

	s.now = time.Now
	_, err = s.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestService_RejectsForeignTokens(t *testing.T) {
	s := newTestService(t)

	other := NewService("other-secret", time.Hour, "cku-autoscaler", "")
	token, err := other.GenerateToken("ops")
	require.NoError(t, err)

	_, err = s.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer := NewService("test-secret", time.Hour, "someone-else", "")
	token, err = wrongIssuer.GenerateToken("ops")
	require.NoError(t, err)

	_, err = s.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.ValidateToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_RejectsUnsignedToken(t *testing.T) {
	s := newTestService(t)

	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Operator: "ops",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "cku-autoscaler",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = s.ValidateToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_CheckKey(t *testing.T) {
	s := newTestService(t)

	assert.NoError(t, s.CheckKey("s3cret"))
	assert.ErrorIs(t, s.CheckKey("wrong"), ErrInvalidKey)

	unset := NewService("test-secret", time.Hour, "cku-autoscaler", "")
	assert.ErrorIs(t, unset.CheckKey("s3cret"), ErrInvalidKey)
}
