package auth

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies why a request was rejected. Kinds are stable strings and
// are written to clients as the rejection reason.
type Kind string

const (
	KindMissingCredential   Kind = "MissingCredential"
	KindMalformedCredential Kind = "MalformedCredential"
	KindSignatureInvalid    Kind = "SignatureInvalid"
	KindTokenExpired        Kind = "TokenExpired"
	KindClaimSchemaInvalid  Kind = "ClaimSchemaInvalid"
	KindAccountInactive     Kind = "AccountInactive"
	KindPermissionDenied    Kind = "PermissionDenied"
)

// Sentinel errors, one per Kind. *Error and *AuthzError match them with errors.Is.
var (
	// Authentication errors
	ErrMissingCredential   = errors.New("auth: missing credential")
	ErrMalformedCredential = errors.New("auth: malformed credential")
	ErrSignatureInvalid    = errors.New("auth: signature invalid")
	ErrTokenExpired        = errors.New("auth: token expired")
	ErrClaimSchemaInvalid  = errors.New("auth: claim schema invalid")
	ErrAccountInactive     = errors.New("auth: account inactive")

	// Authorization errors
	ErrPermissionDenied = errors.New("auth: permission denied")

	// Configuration errors
	ErrKeyMissing  = errors.New("auth: signing key missing")
	ErrKeyTooShort = errors.New("auth: signing key too short")
)

var kindInfo = map[Kind]struct {
	sentinel error
	status   int
	message  string
}{
	KindMissingCredential:   {ErrMissingCredential, http.StatusUnauthorized, "Authentication required"},
	KindMalformedCredential: {ErrMalformedCredential, http.StatusUnauthorized, "Malformed credential"},
	KindSignatureInvalid:    {ErrSignatureInvalid, http.StatusUnauthorized, "Invalid credential"},
	KindTokenExpired:        {ErrTokenExpired, http.StatusUnauthorized, "Credential expired"},
	KindClaimSchemaInvalid:  {ErrClaimSchemaInvalid, http.StatusUnauthorized, "Invalid credential claims"},
	KindAccountInactive:     {ErrAccountInactive, http.StatusUnauthorized, "Account is inactive"},
	KindPermissionDenied:    {ErrPermissionDenied, http.StatusForbidden, "Permission denied"},
}

// Kinds lists every rejection kind.
var Kinds = []Kind{
	KindMissingCredential,
	KindMalformedCredential,
	KindSignatureInvalid,
	KindTokenExpired,
	KindClaimSchemaInvalid,
	KindAccountInactive,
	KindPermissionDenied,
}

// Status returns the HTTP status code a rejection of this kind maps to.
func (k Kind) Status() int {
	if info, ok := kindInfo[k]; ok {
		return info.status
	}
	return http.StatusUnauthorized
}

// Message returns the human readable text shown to clients.
func (k Kind) Message() string {
	if info, ok := kindInfo[k]; ok {
		return info.message
	}
	return "Unauthorized"
}

// Err returns the sentinel error for this kind.
func (k Kind) Err() error {
	if info, ok := kindInfo[k]; ok {
		return info.sentinel
	}
	return nil
}

// Error is a classified authentication failure.
// Err carries internal detail and must never be shown to clients.
type Error struct {
	Kind Kind
	Err  error
}

// Error returns the error message.
func (e *Error) Error() string {
	base := string(e.Kind)
	if s := e.Kind.Err(); s != nil {
		base = s.Error()
	}
	if e.Err == nil {
		return base
	}
	return fmt.Sprintf("%s: %v", base, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.Err()
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf extracts the rejection kind from err.
func KindOf(err error) (Kind, bool) {
	if err == nil {
		return "", false
	}
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Kind, true
	}
	var authzErr *AuthzError
	if errors.As(err, &authzErr) {
		return KindPermissionDenied, true
	}
	for _, k := range Kinds {
		if errors.Is(err, k.Err()) {
			return k, true
		}
	}
	return "", false
}
