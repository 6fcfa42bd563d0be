package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonwraymond/opsgate/auth"
	"github.com/jonwraymond/opsgate/internal/config"
)

// issueToken signs a token with the configured key. Only the signing key
// and issuer settings are read from the environment.
func issueToken(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	sub := fs.String("sub", "", "subject ID (required)")
	groups := fs.String("groups", "", "comma-separated permission groups")
	area := fs.String("area", "", "area claim")
	role := fs.String("role", "", "role claim")
	name := fs.String("name", "", "fullname claim")
	email := fs.String("email", "", "email claim")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	inactive := fs.Bool("inactive", false, "mark the principal inactive")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *sub == "" {
		fs.Usage()
		return errors.New("token: -sub is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	load, err := cfg.SigningKey()
	if err != nil {
		return err
	}
	keys, err := auth.LoadRotatingKey(ctx, load)
	if err != nil {
		return err
	}
	issuer, err := auth.NewIssuer(keys, cfg.JWTIssuer, nil)
	if err != nil {
		return err
	}

	token, err := issuer.Issue(auth.Grant{
		SubjectID:        *sub,
		PermissionGroups: splitGroups(*groups),
		Role:             *role,
		Area:             *area,
		Fullname:         *name,
		Email:            *email,
		IsActive:         !*inactive,
		TTL:              *ttl,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, token)
	return err
}

func splitGroups(s string) []string {
	var out []string
	for g := range strings.SplitSeq(s, ",") {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}
