package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claim names in the token payload.
const (
	ClaimSubject          = "sub"
	ClaimPermissionGroups = "permissionGroups"
	ClaimRole             = "role"
	ClaimArea             = "area"
	ClaimFullname         = "fullname"
	ClaimEmail            = "email"
	ClaimIsActive         = "isActive"
)

// SigningMethod is the only accepted token algorithm.
var SigningMethod = jwt.SigningMethodHS256

// VerifierConfig configures the token verifier.
type VerifierConfig struct {
	// Issuer is the expected iss claim. Empty disables the check.
	Issuer string

	// Leeway tolerates clock skew on exp/nbf.
	// Default: 0
	Leeway time.Duration

	// Now is the clock source.
	// Default: time.Now
	Now func() time.Time
}

// Verifier validates bearer tokens and produces identities.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Side effects: none; Verify performs no I/O and does not log.
// - Errors: every failure is an *Error with exactly one Kind.
type Verifier struct {
	config VerifierConfig
	keys   KeySource
}

// NewVerifier creates a verifier bound to keys.
func NewVerifier(config VerifierConfig, keys KeySource) (*Verifier, error) {
	if keys == nil {
		return nil, ErrKeyMissing
	}
	if err := ValidateKey(keys.Key()); err != nil {
		return nil, err
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Verifier{config: config, keys: keys}, nil
}

// Verify decodes and validates credential.
func (v *Verifier) Verify(credential string) (*Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, newError(KindMissingCredential, nil)
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(credential, claims, v.keyfunc, v.parserOptions()...)
	if err != nil {
		return nil, classifyParseError(err)
	}

	return identityFromClaims(claims)
}

func (v *Verifier) keyfunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	key := v.keys.Key()
	if len(key) == 0 {
		return nil, ErrKeyMissing
	}
	return key, nil
}

func (v *Verifier) parserOptions() []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{SigningMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.config.Now),
	}
	if v.config.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(v.config.Leeway))
	}
	if v.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.config.Issuer))
	}
	return opts
}

// classifyParseError maps golang-jwt errors onto the rejection taxonomy.
// The library verifies the signature before validating claims, so a
// tampered payload always surfaces as a signature failure.
func classifyParseError(err error) *Error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return newError(KindMalformedCredential, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return newError(KindSignatureInvalid, err)
	case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
		return newError(KindTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing),
		errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrInvalidType),
		errors.Is(err, jwt.ErrTokenInvalidClaims):
		return newError(KindClaimSchemaInvalid, err)
	default:
		return newError(KindMalformedCredential, err)
	}
}

// identityFromClaims validates the payload schema of an already verified token.
func identityFromClaims(claims jwt.MapClaims) (*Identity, error) {
	identity := &Identity{IsActive: true}

	sub, ok := claims[ClaimSubject].(string)
	if !ok || strings.TrimSpace(sub) == "" {
		return nil, schemaError("%q must be a non-empty string", ClaimSubject)
	}
	identity.SubjectID = sub

	groups, err := permissionGroups(claims[ClaimPermissionGroups])
	if err != nil {
		return nil, err
	}
	identity.PermissionGroups = groups

	for name, dst := range map[string]*string{
		ClaimRole:     &identity.Role,
		ClaimArea:     &identity.Area,
		ClaimFullname: &identity.Fullname,
		ClaimEmail:    &identity.Email,
	} {
		raw, present := claims[name]
		if !present || raw == nil {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			return nil, schemaError("%q must be a string", name)
		}
		*dst = s
	}

	if raw, present := claims[ClaimIsActive]; present {
		active, ok := raw.(bool)
		if !ok {
			return nil, schemaError("%q must be a boolean", ClaimIsActive)
		}
		identity.IsActive = active
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, schemaError("%q must be a numeric date", "exp")
	}
	identity.ExpiresAt = exp.Time

	iat, err := claims.GetIssuedAt()
	if err != nil {
		return nil, schemaError("%q must be a numeric date", "iat")
	}
	if iat != nil {
		identity.IssuedAt = iat.Time
	}

	return identity, nil
}

func permissionGroups(raw any) ([]string, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, schemaError("%q must be an array of strings", ClaimPermissionGroups)
	}
	groups := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return nil, schemaError("%q must contain non-empty strings", ClaimPermissionGroups)
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		groups = append(groups, s)
	}
	return groups, nil
}

func schemaError(format string, args ...any) *Error {
	return newError(KindClaimSchemaInvalid, fmt.Errorf(format, args...))
}
