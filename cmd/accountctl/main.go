// Command accountctl switches guardian accounts between the active and
// deactivated states.
//
//	accountctl [-timeout 10s] deactivate <email>
//	accountctl [-timeout 10s] activate <email>
//
// The store and table names come from the same environment as the API
// server (STORE_URL, USERS_TABLE, SECRET_KEY).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aischool/aischool-backend/internal/account"
	"github.com/aischool/aischool-backend/internal/auth"
	"github.com/aischool/aischool-backend/internal/config"
	"github.com/aischool/aischool-backend/internal/infra"
	"github.com/aischool/aischool-backend/internal/logging"
	"github.com/aischool/aischool-backend/internal/password"
	"github.com/aischool/aischool-backend/internal/store"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "accountctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("accountctl", flag.ContinueOnError)
	timeout := fs.Duration("timeout", 10*time.Second, "operation timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("usage: accountctl [-timeout d] activate|deactivate <email>")
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	st, closeStore, err := infra.OpenStore(ctx, cfg.StoreURL)
	if err != nil {
		return err
	}
	defer closeStore()

	svc, err := newAccountService(cfg, st)
	if err != nil {
		return err
	}
	return apply(ctx, svc, fs.Arg(0), fs.Arg(1), out)
}

func newAccountService(cfg config.Config, st store.Store) (*account.Service, error) {
	tokens, err := auth.NewService(cfg.SecretKey, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg.LogLevel, "accountctl")
	repo := account.NewTableRepository(st.Table(cfg.UsersTable))
	return account.NewService(repo, password.Default(), tokens, logger), nil
}

func apply(ctx context.Context, svc *account.Service, action, email string, out io.Writer) error {
	var (
		acct account.Account
		err  error
	)
	switch action {
	case "deactivate":
		acct, err = svc.Deactivate(ctx, email)
	case "activate":
		acct, err = svc.Activate(ctx, email)
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", action, email, err)
	}
	fmt.Fprintf(out, "%s %s %s\n", acct.ID, acct.Email, acct.State())
	return nil
}
