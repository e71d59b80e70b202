package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
)

func testConfig() Config {
	return Config{Secret: "s3cret", Issuer: "sitepublisher", Audience: "cms-editor", TTL: time.Hour}
}

func TestIssueAndVerify(t *testing.T) {
	iss, err := NewIssuer(testConfig())
	require.NoError(t, err)
	ver, err := NewVerifier(testConfig())
	require.NoError(t, err)

	token, expires, err := iss.Issue("alice@example.org", "Alice")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := ver.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.org", claims.Subject)
	assert.Equal(t, "Alice", claims.Name)
}

func TestVerify_Rejects(t *testing.T) {
	ver, err := NewVerifier(testConfig())
	require.NoError(t, err)

	otherSecret := testConfig()
	otherSecret.Secret = "other"
	wrongAudience := testConfig()
	wrongAudience.Audience = "admin"

	expired, err := NewIssuer(testConfig())
	require.NoError(t, err)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, _, err := expired.Issue("bob", "")
	require.NoError(t, err)

	cases := map[string]string{
		"empty":          "",
		"garbage":        "not-a-token",
		"wrong secret":   mustIssue(t, otherSecret),
		"wrong audience": mustIssue(t, wrongAudience),
		"expired":        expiredToken,
		"none alg":       unsignedToken(t),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ver.Verify(token)
			require.Error(t, err)
			assert.True(t, errors.HasCategory(err, errors.CategoryAuth))
		})
	}
}

func mustIssue(t *testing.T, cfg Config) string {
	t.Helper()
	iss, err := NewIssuer(cfg)
	require.NoError(t, err)
	token, _, err := iss.Issue("mallory", "")
	require.NoError(t, err)
	return token
}

func unsignedToken(t *testing.T) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "mallory",
		Issuer:    "sitepublisher",
		Audience:  jwt.ClaimStrings{"cms-editor"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	return token
}

func TestMissingSecret(t *testing.T) {
	_, err := NewIssuer(Config{})
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
	_, err = NewVerifier(Config{})
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestIssue_RequiresSubject(t *testing.T) {
	iss, err := NewIssuer(testConfig())
	require.NoError(t, err)
	_, _, err = iss.Issue("  ", "")
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer  abc "))
	assert.Empty(t, BearerToken("Basic abc"))
	assert.Empty(t, BearerToken("abc"))
	assert.Empty(t, BearerToken(""))
}
