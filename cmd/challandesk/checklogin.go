package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/automan-solutions/challandesk/internal/adapter/backend"
	"github.com/automan-solutions/challandesk/internal/config"
)

// runCheckLogin verifies tenant credentials against the backend from the
// terminal. Useful when diagnosing login trouble without a browser.
func runCheckLogin(args []string) error {
	fs := flag.NewFlagSet("check-login", flag.ContinueOnError)
	email := fs.String("email", "", "tenant user email (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		fs.Usage()
		return fmt.Errorf("-email is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	password, err := promptPassword("Password: ")
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := backend.New(cfg.Backend)
	res, err := client.Login(ctx, *email, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	fmt.Printf("login OK\n")
	fmt.Printf("  user:   %s\n", res.User.DisplayName())
	fmt.Printf("  role:   %s\n", res.User.Role)
	fmt.Printf("  tenant: %s (id %s)\n", res.Tenant.Name, res.Tenant.ID.String())
	return nil
}

// promptPassword reads a password from the terminal without echoing.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
