package auth

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrMissingCredential", ErrMissingCredential},
		{"ErrMalformedCredential", ErrMalformedCredential},
		{"ErrSignatureInvalid", ErrSignatureInvalid},
		{"ErrTokenExpired", ErrTokenExpired},
		{"ErrClaimSchemaInvalid", ErrClaimSchemaInvalid},
		{"ErrAccountInactive", ErrAccountInactive},
		{"ErrPermissionDenied", ErrPermissionDenied},
		{"ErrKeyMissing", ErrKeyMissing},
		{"ErrKeyTooShort", ErrKeyTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Fatalf("%s is nil", tt.name)
			}
			if tt.err.Error() == "" {
				t.Errorf("%s has empty message", tt.name)
			}
		})
	}
}

func TestKind_Status(t *testing.T) {
	for _, kind := range Kinds {
		want := http.StatusUnauthorized
		if kind == KindPermissionDenied {
			want = http.StatusForbidden
		}
		if got := kind.Status(); got != want {
			t.Errorf("%s.Status() = %d, want %d", kind, got, want)
		}
		if kind.Message() == "" {
			t.Errorf("%s.Message() is empty", kind)
		}
		if kind.Err() == nil {
			t.Errorf("%s.Err() is nil", kind)
		}
	}
}

func TestError_IsAndUnwrap(t *testing.T) {
	cause := errors.New("token is malformed")
	err := newError(KindMalformedCredential, cause)

	if !errors.Is(err, ErrMalformedCredential) {
		t.Error("errors.Is(err, ErrMalformedCredential) = false, want true")
	}
	if errors.Is(err, ErrSignatureInvalid) {
		t.Error("errors.Is(err, ErrSignatureInvalid) = true, want false")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}

	want := "auth: malformed credential: token is malformed"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind Kind
		wantOK   bool
	}{
		{"nil", nil, "", false},
		{"plain error", errors.New("boom"), "", false},
		{"typed", newError(KindTokenExpired, nil), KindTokenExpired, true},
		{"wrapped typed", fmt.Errorf("verify: %w", newError(KindSignatureInvalid, nil)), KindSignatureInvalid, true},
		{"authz error", &AuthzError{Reason: "denied"}, KindPermissionDenied, true},
		{"sentinel", fmt.Errorf("gate: %w", ErrAccountInactive), KindAccountInactive, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ok := KindOf(tt.err)
			if ok != tt.wantOK || kind != tt.wantKind {
				t.Errorf("KindOf() = (%q, %v), want (%q, %v)", kind, ok, tt.wantKind, tt.wantOK)
			}
		})
	}
}
