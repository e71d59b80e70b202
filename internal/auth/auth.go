// Package auth issues and verifies the bearer tokens editors present to write routes.
package auth

import (
	stderrors "errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
)

// Claims are the token claims of an editor session.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Config holds the shared HMAC secret and the expected issuer and audience.
type Config struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// Enabled reports whether a signing secret is configured.
func (c Config) Enabled() bool { return c.Secret != "" }

func (c Config) check() error {
	if !c.Enabled() {
		return errors.ConfigError("editor token secret not configured").
			WithContext("env", "CMS_JWT_SECRET").
			Build()
	}
	return nil
}

// Issuer mints editor tokens.
type Issuer struct {
	cfg Config
	now func() time.Time
}

// NewIssuer returns an issuer, or a configuration error when no secret is set.
func NewIssuer(cfg Config) (*Issuer, error) {
	if err := cfg.check(); err != nil {
		return nil, err
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}
	return &Issuer{cfg: cfg, now: time.Now}, nil
}

// Issue signs a token for subject valid for the configured TTL.
func (i *Issuer) Issue(subject, name string) (string, time.Time, error) {
	if strings.TrimSpace(subject) == "" {
		return "", time.Time{}, errors.ValidationError("token subject is required").Build()
	}
	now := i.now()
	expires := now.Add(i.cfg.TTL)
	claims := Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    i.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	if i.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{i.cfg.Audience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(i.cfg.Secret))
	if err != nil {
		return "", time.Time{}, errors.InternalError("failed to sign token").WithCause(err).Build()
	}
	return signed, expires, nil
}

// Verifier validates editor tokens.
type Verifier struct {
	cfg    Config
	parser *jwt.Parser
}

// NewVerifier returns a verifier, or a configuration error when no secret is set.
func NewVerifier(cfg Config) (*Verifier, error) {
	if err := cfg.check(); err != nil {
		return nil, err
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return &Verifier{cfg: cfg, parser: jwt.NewParser(opts...)}, nil
}

// Verify parses and validates a raw token.
func (v *Verifier) Verify(raw string) (*Claims, error) {
	if raw == "" {
		return nil, errors.AuthError("missing bearer token").Build()
	}
	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(v.cfg.Secret), nil
	})
	if err != nil {
		msg := "invalid bearer token"
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			msg = "bearer token expired"
		}
		return nil, errors.AuthError(msg).WithCause(err).Build()
	}
	if claims.Subject == "" {
		return nil, errors.AuthError("bearer token has no subject").Build()
	}
	return claims, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
