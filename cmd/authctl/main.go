// authctl is the operator CLI for the auth service. It shares the service's
// configuration and stores, so tokens it issues or revokes are seen by
// running servers.
//
//	authctl issue --sub 42 --email jane@example.com
//	authctl verify <token>
//	authctl revoke <token>
//	authctl purge
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/app"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/observability"
	"github.com/spec-kit/auth-service/internal/worker"
)

const usage = `usage: authctl <command> [flags]

commands:
  issue --sub ID --email ADDR   sign a token for an existing subject
  verify TOKEN                  run the full validation pipeline
  revoke TOKEN                  add a signed token to the revocation store
  purge                         drop revocation entries of expired tokens
`

var errUsage = errors.New("invalid usage")

// exitError carries a process exit status.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) ExitCode() int { return e.code }

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

// openApp is replaced in tests.
var openApp = func(ctx context.Context, verbose bool) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := zap.NewNop()
	if verbose {
		if logger, err = observability.NewLogger(cfg.Logger, cfg.App); err != nil {
			return nil, err
		}
	}
	return app.New(ctx, cfg, logger)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errUsage
	}

	command, rest := args[0], args[1:]
	flagSet := pflag.NewFlagSet("authctl "+command, pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	verbose := flagSet.BoolP("verbose", "v", false, "log to stdout while running")

	switch command {
	case "issue":
		subject := flagSet.String("sub", "", "subject id to embed in the token")
		email := flagSet.String("email", "", "email claim to embed in the token")
		if err := flagSet.Parse(rest); err != nil {
			return err
		}
		if *subject == "" || *email == "" {
			return fmt.Errorf("%w: issue requires --sub and --email", errUsage)
		}
		return withApp(ctx, *verbose, func(a *app.App) error {
			issued, err := a.Issuer.Issue(*subject, *email)
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, issued.Token)
			fmt.Fprintf(stdout, "expires_at: %s\n", issued.ExpiresAt.Format(time.RFC3339))
			return nil
		})

	case "verify":
		token, err := tokenArg(flagSet, rest)
		if err != nil {
			return err
		}
		return withApp(ctx, *verbose, func(a *app.App) error {
			principal, err := a.Validator.Validate(ctx, token)
			if err != nil {
				reason := auth.ReasonOf(err)
				fmt.Fprintf(stdout, "rejected: %s (%s)\n", reason.Code(), reason.Message())
				return &exitError{code: 2, err: err}
			}
			fmt.Fprintf(stdout, "subject: %s\nemail: %s\nexpires_at: %s\n",
				principal.SubjectID, principal.Email, principal.ExpiresAt.Format(time.RFC3339))
			return nil
		})

	case "revoke":
		token, err := tokenArg(flagSet, rest)
		if err != nil {
			return err
		}
		return withApp(ctx, *verbose, func(a *app.App) error {
			outcome, err := a.AuthService.Blacklist(ctx, token)
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, outcome)
			return nil
		})

	case "purge":
		if err := flagSet.Parse(rest); err != nil {
			return err
		}
		return withApp(ctx, *verbose, func(a *app.App) error {
			removed, err := worker.NewRevocationCleanup(a.Revocations, a.Clock, a.Metrics, a.Logger).RunOnce(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "removed: %d\n", removed)
			return nil
		})

	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil

	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

func tokenArg(flagSet *pflag.FlagSet, args []string) (string, error) {
	if err := flagSet.Parse(args); err != nil {
		return "", err
	}
	if flagSet.NArg() != 1 {
		return "", fmt.Errorf("%w: expected exactly one token argument", errUsage)
	}
	return flagSet.Arg(0), nil
}

func withApp(ctx context.Context, verbose bool, fn func(*app.App) error) error {
	a, err := openApp(ctx, verbose)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
