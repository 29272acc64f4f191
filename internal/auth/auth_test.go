package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ewaste-backend/internal/config"
	"ewaste-backend/internal/models"
)

func testConfig(secret string) *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = secret
	cfg.JWT.ExpirationHours = 1
	cfg.JWT.Issuer = "ewaste-test"
	return cfg
}

func TestTokenRoundTrip(t *testing.T) {
	m := NewJWTManager(testConfig("s3cret"))
	user := &models.User{ID: 7, Email: "r@example.com", Role: models.RoleRecycler}

	token, err := m.GenerateToken(user)
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, 7, claims.UserID)
	assert.Equal(t, "r@example.com", claims.Email)
	assert.Equal(t, models.RoleRecycler, claims.Role)
	assert.Equal(t, "ewaste-test", claims.Issuer)
}

func TestValidateTokenRejects(t *testing.T) {
	m := NewJWTManager(testConfig("s3cret"))
	user := &models.User{ID: 1, Email: "a@example.com", Role: models.RoleAdmin}

	other, err := NewJWTManager(testConfig("different")).GenerateToken(user)
	require.NoError(t, err)
	_, err = m.ValidateToken(other)
	assert.Error(t, err, "wrong secret")

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			Issuer:    "ewaste-test",
		},
	})
	signed, err := expired.SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = m.ValidateToken(signed)
	assert.Error(t, err, "expired")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: 1})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.ValidateToken(unsigned)
	assert.Error(t, err, "alg none")

	_, err = m.ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, VerifyPassword(hash, "correct horse"))
	assert.False(t, VerifyPassword(hash, "battery staple"))
}

func TestPasswordPolicy(t *testing.T) {
	tests := []struct {
		name     string
		password string
		ok       bool
	}{
		{"too short", "short", false},
		{"minimum", "12345678", true},
		{"bcrypt limit", strings.Repeat("a", MaxPasswordBytes), true},
		{"past bcrypt limit", strings.Repeat("a", MaxPasswordBytes+1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPasswordPolicy(tt.password)
			_, hashErr := HashPassword(tt.password)
			if tt.ok {
				assert.NoError(t, err)
				assert.NoError(t, hashErr)
			} else {
				assert.Error(t, err)
				assert.Error(t, hashErr)
			}
		})
	}
}
