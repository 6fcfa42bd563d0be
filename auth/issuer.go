package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Grant describes the claims of a token to be signed.
type Grant struct {
	SubjectID        string
	PermissionGroups []string
	Role             string
	Area             string
	Fullname         string
	Email            string
	IsActive         bool

	// TTL is the token lifetime.
	// Default: 1 hour
	TTL time.Duration
}

// Issuer signs tokens with the same key a Verifier checks them with.
// It exists for local development and tests; the server never issues tokens.
type Issuer struct {
	keys   KeySource
	issuer string
	now    func() time.Time
}

// NewIssuer creates an issuer. iss may be empty; now defaults to time.Now.
func NewIssuer(keys KeySource, iss string, now func() time.Time) (*Issuer, error) {
	if keys == nil {
		return nil, ErrKeyMissing
	}
	if err := ValidateKey(keys.Key()); err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return &Issuer{keys: keys, issuer: iss, now: now}, nil
}

// Issue returns a signed HS256 token for g.
func (i *Issuer) Issue(g Grant) (string, error) {
	if g.SubjectID == "" {
		return "", errors.New("auth: grant subject is required")
	}
	ttl := g.TTL
	if ttl == 0 {
		ttl = time.Hour
	}
	now := i.now()

	groups := g.PermissionGroups
	if groups == nil {
		groups = []string{}
	}

	claims := jwt.MapClaims{
		ClaimSubject:          g.SubjectID,
		ClaimPermissionGroups: groups,
		ClaimIsActive:         g.IsActive,
		"iat":                 now.Unix(),
		"exp":                 now.Add(ttl).Unix(),
	}
	if i.issuer != "" {
		claims["iss"] = i.issuer
	}
	if g.Role != "" {
		claims[ClaimRole] = g.Role
	}
	if g.Area != "" {
		claims[ClaimArea] = g.Area
	}
	if g.Fullname != "" {
		claims[ClaimFullname] = g.Fullname
	}
	if g.Email != "" {
		claims[ClaimEmail] = g.Email
	}

	token := jwt.NewWithClaims(SigningMethod, claims)
	return token.SignedString(i.keys.Key())
}
