package main

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/jonwraymond/opsgate/auth"
	"github.com/jonwraymond/opsgate/internal/config"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"version"}, &out, &bytes.Buffer{}); err != nil {
		t.Fatalf("run(version) error = %v", err)
	}
	if strings.TrimSpace(out.String()) != config.Version {
		t.Errorf("version output = %q, want %q", out.String(), config.Version)
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	if err := run(context.Background(), []string{"bogus"}, &bytes.Buffer{}, &bytes.Buffer{}); err == nil {
		t.Error("run(bogus) should fail")
	}
}

func TestRun_ServeRequiresSecret(t *testing.T) {
	t.Setenv("OPSGATE_JWT_SECRET", "")
	if err := run(context.Background(), nil, &bytes.Buffer{}, &bytes.Buffer{}); err == nil {
		t.Error("serve without a signing key should fail")
	}
}

func TestRun_Token(t *testing.T) {
	t.Setenv("OPSGATE_JWT_SECRET", testSecret)
	t.Setenv("OPSGATE_JWT_ISSUER", "opsgate-dev")

	var out bytes.Buffer
	args := []string{"token", "-sub", "u-1", "-groups", "BACKUP_READ, ADMIN,,", "-area", "north", "-email", "u1@example.com"}
	if err := run(context.Background(), args, &out, &bytes.Buffer{}); err != nil {
		t.Fatalf("run(token) error = %v", err)
	}

	v, err := auth.NewVerifier(auth.VerifierConfig{Issuer: "opsgate-dev"}, auth.StaticKey(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	id, err := v.Verify(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if id.SubjectID != "u-1" || id.Area != "north" || id.Email != "u1@example.com" || !id.IsActive {
		t.Errorf("identity = %+v", id)
	}
	groups := slices.Sorted(slices.Values(id.PermissionGroups))
	if !slices.Equal(groups, []string{"ADMIN", "BACKUP_READ"}) {
		t.Errorf("groups = %v", groups)
	}
}

func TestRun_TokenInactive(t *testing.T) {
	t.Setenv("OPSGATE_JWT_SECRET", testSecret)

	var out bytes.Buffer
	if err := run(context.Background(), []string{"token", "-sub", "u-2", "-inactive"}, &out, &bytes.Buffer{}); err != nil {
		t.Fatalf("run(token) error = %v", err)
	}
	v, _ := auth.NewVerifier(auth.VerifierConfig{}, auth.StaticKey(testSecret))
	id, err := v.Verify(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if id.IsActive {
		t.Error("token should carry isActive=false")
	}
}

func TestRun_TokenErrors(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		args   []string
	}{
		{"missing sub", testSecret, []string{"token"}},
		{"bad flag", testSecret, []string{"token", "-nope"}},
		{"short key", "too-short", []string{"token", "-sub", "u"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OPSGATE_JWT_SECRET", tt.secret)
			var out bytes.Buffer
			if err := run(context.Background(), tt.args, &out, &bytes.Buffer{}); err == nil {
				t.Errorf("run(%v) should fail", tt.args)
			}
			if out.Len() != 0 {
				t.Errorf("no token should be written, got %q", out.String())
			}
		})
	}
}

func TestSplitGroups(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"A", []string{"A"}},
		{" A , B ,", []string{"A", "B"}},
	}
	for _, tt := range tests {
		if got := splitGroups(tt.in); !slices.Equal(got, tt.want) {
			t.Errorf("splitGroups(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
