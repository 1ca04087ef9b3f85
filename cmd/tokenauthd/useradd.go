package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/jonwraymond/tokenauth/auth"
	"github.com/jonwraymond/tokenauth/config"
	"github.com/jonwraymond/tokenauth/directory"
)

// attrFlag collects repeated -attr key=value flags.
type attrFlag map[string]string

func (f attrFlag) String() string {
	pairs := make([]string, 0, len(f))
	for k, v := range f {
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, ",")
}

func (f attrFlag) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || k == "" {
		return fmt.Errorf("attribute %q is not key=value", s)
	}
	f[k] = v
	return nil
}

// useradd creates or replaces an account in the configured directory.
func useradd(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("useradd", flag.ContinueOnError)
	fs.SetOutput(out)
	var (
		envFile  = fs.String("env", ".env", "dotenv file to read, if present")
		id       = fs.String("id", "", "account identifier (required)")
		password = fs.String("password", "", "account password (required)")
		inactive = fs.Bool("inactive", false, "create the account disabled")
		attrs    = attrFlag{}
	)
	fs.Var(attrs, "attr", "attribute key=value (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" || *password == "" {
		fs.Usage()
		return fmt.Errorf("useradd: -id and -password are required")
	}

	cfg, err := config.Load(ctx, config.WithEnvFile(*envFile))
	if err != nil {
		return err
	}
	return upsertAccount(ctx, cfg, *id, *password, !*inactive, attrs, out)
}

func upsertAccount(ctx context.Context, cfg *config.Config, id, password string, active bool, attrs map[string]string, out io.Writer) error {
	db, err := directory.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := directory.Migrate(ctx, db, cfg.DBDriver); err != nil {
		return err
	}
	store, err := directory.NewSQLDirectory(db, cfg.DBDriver)
	if err != nil {
		return err
	}

	hash, err := auth.NewBcryptHasher(cfg.HashCost).Hash(password)
	if err != nil {
		return err
	}
	acct := &auth.Account{ID: id, PasswordHash: hash, Active: active, Attributes: attrs}
	if len(attrs) == 0 {
		acct.Attributes = nil
	}
	if err := store.Upsert(ctx, acct); err != nil {
		return err
	}
	fmt.Fprintf(out, "account %q saved (active=%t)\n", id, active)
	return nil
}
