// Package session issues and verifies the signed tokens that carry a logged-in
// user's identity between requests.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Defaults applied by NewManager when Options leaves a field empty.
const (
	DefaultTTL      = 7 * 24 * time.Hour
	DefaultIssuer   = "snapfeed"
	DefaultAudience = "snapfeed-web"
)

// ErrInvalidToken is wrapped by every verification failure.
var ErrInvalidToken = errors.New("invalid session token")

// Identity is what a valid token proves about its bearer.
type Identity struct {
	UserID    uint
	Email     string
	TokenID   string
	ExpiresAt time.Time
}

// RevocationStore remembers token ids that were logged out before expiry.
type RevocationStore interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// Options configures a Manager.
type Options struct {
	Secret   string
	TTL      time.Duration
	Issuer   string
	Audience string
	Store    RevocationStore
	Logger   *slog.Logger
	Now      func() time.Time
}

// Claims is the token payload.
type Claims struct {
	Email  string `json:"email"`
	UserID uint   `json:"userid"`
	jwt.RegisteredClaims
}

// Manager signs and checks session tokens.
type Manager struct {
	secret   []byte
	ttl      time.Duration
	issuer   string
	audience string
	store    RevocationStore
	log      *slog.Logger
	now      func() time.Time
	parser   *jwt.Parser
}

// NewManager builds a Manager from opts.
func NewManager(opts Options) *Manager {
	m := &Manager{
		secret:   []byte(opts.Secret),
		ttl:      opts.TTL,
		issuer:   opts.Issuer,
		audience: opts.Audience,
		store:    opts.Store,
		log:      opts.Logger,
		now:      opts.Now,
	}
	if m.ttl <= 0 {
		m.ttl = DefaultTTL
	}
	if m.issuer == "" {
		m.issuer = DefaultIssuer
	}
	if m.audience == "" {
		m.audience = DefaultAudience
	}
	if m.log == nil {
		m.log = slog.Default()
	}
	if m.now == nil {
		m.now = time.Now
	}
	m.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	return m
}

// TTL returns the lifetime of issued tokens.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token for id. UserID and Email are required; TokenID and
// ExpiresAt are filled in and returned on the copy embedded in the token.
func (m *Manager) Issue(id Identity) (string, time.Time, error) {
	if len(m.secret) == 0 {
		return "", time.Time{}, errors.New("session secret not configured")
	}
	if id.UserID == 0 {
		return "", time.Time{}, errors.New("session identity has no user id")
	}

	now := m.now()
	expiresAt := now.Add(m.ttl)
	claims := Claims{
		Email:  id.Email,
		UserID: id.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(id.UserID), 10),
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return token, expiresAt, nil
}

// Verify checks signature, algorithm, issuer, audience, expiry and
// revocation, and returns the identity the token carries.
func (m *Manager) Verify(ctx context.Context, raw string) (*Identity, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidToken)
	}
	if len(m.secret) == 0 {
		return nil, fmt.Errorf("%w: secret not configured", ErrInvalidToken)
	}

	var claims Claims
	_, err := m.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	sub, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || sub == 0 || uint(sub) != claims.UserID {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}

	id := &Identity{
		UserID:    claims.UserID,
		Email:     claims.Email,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}

	if m.store != nil && id.TokenID != "" {
		revoked, err := m.store.IsTokenRevoked(ctx, id.TokenID)
		if err != nil {
			m.log.WarnContext(ctx, "revocation lookup failed, accepting token",
				slog.String("error", err.Error()))
		} else if revoked {
			return nil, fmt.Errorf("%w: revoked", ErrInvalidToken)
		}
	}
	return id, nil
}

// Revoke makes the token behind id unusable until it would have expired.
func (m *Manager) Revoke(ctx context.Context, id *Identity) error {
	if m.store == nil || id == nil || id.TokenID == "" {
		return nil
	}
	ttl := id.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		return nil
	}
	if err := m.store.RevokeToken(ctx, id.TokenID, ttl); err != nil {
		return fmt.Errorf("revoke session token: %w", err)
	}
	return nil
}
