package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind selects the signing domain: access and refresh tokens use
// independent secrets and lifetimes, so a token of one kind fails signature
// verification when decoded as the other.
type TokenKind string

const (
	KindAccess  TokenKind = "access_token"
	KindRefresh TokenKind = "refresh_token"
)

// Claims is the payload carried by every issued token. Field names are part
// of the wire format; Roles is a snapshot taken at issuance, not a live view.
type Claims struct {
	UserID   string   `json:"user"`
	Roles    []string `json:"roles"`
	IssuedAt int64    `json:"lat"`
	Expiry   int64    `json:"exp"`
	JTI      string   `json:"jti"`
}

func (c Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.Expiry, 0)), nil
}

func (c Claims) GetIssuedAt() (*jwt.NumericDate, error)  { return nil, nil }
func (c Claims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }
func (c Claims) GetIssuer() (string, error)              { return "", nil }
func (c Claims) GetSubject() (string, error)             { return c.UserID, nil }
func (c Claims) GetAudience() (jwt.ClaimStrings, error)  { return nil, nil }

type signingDomain struct {
	secret   []byte
	lifetime time.Duration
}

// Codec encodes and decodes signed expiring bearer tokens using HS256.
type Codec struct {
	access  signingDomain
	refresh signingDomain
	now     func() time.Time
}

// NewCodec validates the two signing domains and constructs a codec.
// Sharing one secret between kinds would defeat kind separation, so it is
// rejected here rather than at request time.
func NewCodec(accessSecret, refreshSecret string, accessLifetime, refreshLifetime time.Duration) (*Codec, error) {
	accessSecret = strings.TrimSpace(accessSecret)
	refreshSecret = strings.TrimSpace(refreshSecret)
	if accessSecret == "" || refreshSecret == "" {
		return nil, fmt.Errorf("%w: token secrets are required", ErrInvalidInput)
	}
	if accessSecret == refreshSecret {
		return nil, fmt.Errorf("%w: access and refresh secrets must differ", ErrInvalidInput)
	}
	if accessLifetime <= 0 || refreshLifetime <= 0 {
		return nil, fmt.Errorf("%w: token lifetimes must be positive", ErrInvalidInput)
	}
	return &Codec{
		access:  signingDomain{secret: []byte(accessSecret), lifetime: accessLifetime},
		refresh: signingDomain{secret: []byte(refreshSecret), lifetime: refreshLifetime},
		now:     time.Now,
	}, nil
}

func (c *Codec) domain(kind TokenKind) (signingDomain, error) {
	switch kind {
	case KindAccess:
		return c.access, nil
	case KindRefresh:
		return c.refresh, nil
	default:
		return signingDomain{}, fmt.Errorf("unknown token kind %q", kind)
	}
}

// Lifetime returns the configured lifetime for the given kind.
func (c *Codec) Lifetime(kind TokenKind) time.Duration {
	d, err := c.domain(kind)
	if err != nil {
		return 0
	}
	return d.lifetime
}

// Issue signs a fresh token of the given kind for the subject. Fails only on
// an unknown kind, which is a programmer error.
func (c *Codec) Issue(userID string, roles []string, kind TokenKind) (string, error) {
	d, err := c.domain(kind)
	if err != nil {
		return "", err
	}
	now := c.now().UTC()
	claims := Claims{
		UserID:   userID,
		Roles:    roles,
		IssuedAt: now.Unix(),
		Expiry:   now.Add(d.lifetime).Unix(),
		JTI:      uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(d.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature against the kind's secret and checks expiry.
// Any failure collapses into ErrInvalidToken so callers cannot leak which
// check rejected the token.
func (c *Codec) Decode(token string, kind TokenKind) (*Claims, error) {
	d, err := c.domain(kind)
	if err != nil {
		return nil, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return d.secret, nil
	}, jwt.WithTimeFunc(c.now))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.UserID) == "" || claims.JTI == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// HasRole reports whether the snapshot contains the role.
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}
