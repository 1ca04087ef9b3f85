// Command tokenauthd serves the token endpoint and a set of protected demo
// routes over HTTP.
//
// Usage:
//
//	tokenauthd [-env .env]
//	tokenauthd useradd -id johndoe -password secret [-inactive] [-attr roles=admin]
//
// Configuration is read from TOKENAUTH_ environment variables; see package
// config.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonwraymond/tokenauth/config"
	"github.com/jonwraymond/tokenauth/observe"
)

const serviceName = "tokenauthd"

// version is set at build time.
var version = "dev"

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	if len(os.Args) > 1 && os.Args[1] == "useradd" {
		err = useradd(ctx, os.Args[2:], os.Stdout)
	} else {
		err = serve(ctx, os.Args[1:])
	}
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet(serviceName, flag.ContinueOnError)
	envFile := fs.String("env", ".env", "dotenv file to read, if present")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(ctx, config.WithEnvFile(*envFile))
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = a.Close(closeCtx)
	}()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		a.logger.Info(ctx, "listening",
			observe.Field{Key: "addr", Value: cfg.HTTPAddr},
			observe.Field{Key: "config", Value: cfg.String()},
		)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
