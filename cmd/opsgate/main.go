// Command opsgate serves the backup and dashboard API behind bearer-token
// authentication.
//
// Usage:
//
//	opsgate [serve]            run the HTTP server (default)
//	opsgate token -sub ID ...  sign a development token with the configured key
//	opsgate version            print the build version
//
// Configuration is read from OPSGATE_* environment variables.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonwraymond/opsgate/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "opsgate:", err)
		}
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd := "serve"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return serve(ctx, cfg)
	case "token":
		return issueToken(ctx, args, stdout, stderr)
	case "version":
		_, err := fmt.Fprintln(stdout, config.Version)
		return err
	default:
		return fmt.Errorf("unknown command %q (want serve, token or version)", cmd)
	}
}
