package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("super-secret")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}

	if err := CheckPassword(hash, "super-secret"); err != nil {
		t.Fatalf("expected password to match, got %v", err)
	}

	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestGenerateAndParseToken(t *testing.T) {
	secret := "test-secret"
	claims := Claims{UserID: 7, Email: "admin@gdpr.com", Role: RoleAdmin, CompanyID: 3, SessionID: "s1"}

	token, err := GenerateToken(secret, claims, time.Hour)
	require.NoError(t, err)

	parsed, err := ParseToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, claims.UserID, parsed.UserID)
	assert.Equal(t, claims.Role, parsed.Role)
	assert.Equal(t, claims.CompanyID, parsed.CompanyID)
	assert.Equal(t, claims.SessionID, parsed.SessionID)
	assert.Equal(t, "admin@gdpr.com", parsed.Subject)
}

func TestParseTokenRejects(t *testing.T) {
	expired, err := GenerateToken("s", Claims{UserID: 1, Role: RoleClient}, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken("s", expired)
	assert.Error(t, err)

	good, err := GenerateToken("s", Claims{UserID: 1, Role: RoleClient}, time.Minute)
	require.NoError(t, err)
	_, err = ParseToken("other", good)
	assert.Error(t, err)

	badRole := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: 1, Role: "ROOT", RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}})
	signed, err := badRole.SignedString([]byte("s"))
	require.NoError(t, err)
	_, err = ParseToken("s", signed)
	assert.Error(t, err)
}

func TestHashTokenStable(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	assert.Len(t, HashToken("abc"), 64)
}

func TestGenerateRandomPassword(t *testing.T) {
	for _, length := range []int{4, 8, 12, 20} {
		pw, err := GenerateRandomPassword(length)
		require.NoError(t, err)
		want := length
		if want < 8 {
			want = 8
		}
		assert.Len(t, pw, want)
		assert.True(t, IsStrongPassword(pw), "generated password %q should be strong", pw)
	}
}

func TestIsStrongPassword(t *testing.T) {
	assert.True(t, IsStrongPassword("Abcdef1!"))
	assert.False(t, IsStrongPassword("Ab1!"))
	assert.False(t, IsStrongPassword("abcdefg1!"))
	assert.False(t, IsStrongPassword("ABCDEFG1!"))
	assert.False(t, IsStrongPassword("Abcdefgh!"))
	assert.False(t, IsStrongPassword("Abcdefgh1"))
}
