// Command bootstrap-user creates (or reuses) a user and prints a bearer
// token for it, for smoke-testing a deployment:
//
//	go run ./scripts/bootstrap-user.go -username demo -password demo-pass
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/notekeep/notekeep/internal/auth"
	"github.com/notekeep/notekeep/internal/model"
	"github.com/notekeep/notekeep/internal/repository"
)

type options struct {
	databaseURL string
	jwtSecret   string
	username    string
	password    string
	ttl         time.Duration
	migrate     bool
	format      string
}

func main() {
	var o options
	flag.StringVar(&o.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	flag.StringVar(&o.jwtSecret, "jwt-secret", os.Getenv("JWT_SECRET"), "secret used to sign the token")
	flag.StringVar(&o.username, "username", "demo", "username to create or reuse")
	flag.StringVar(&o.password, "password", "", "password for a newly created user")
	flag.DurationVar(&o.ttl, "ttl", time.Hour, "token validity window")
	flag.BoolVar(&o.migrate, "migrate", true, "apply database migrations first")
	flag.StringVar(&o.format, "format", "plain", "output format: plain or json")
	flag.Parse()

	if err := run(o, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "bootstrap-user:", err)
		os.Exit(1)
	}
}

func run(o options, stdout io.Writer) error {
	switch {
	case o.databaseURL == "":
		return errors.New("DATABASE_URL is required")
	case o.jwtSecret == "":
		return errors.New("JWT_SECRET is required")
	case o.format != "plain" && o.format != "json":
		return fmt.Errorf("unknown format %q", o.format)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, o.databaseURL)
	if err != nil {
		return err
	}
	defer repo.Close()

	if o.migrate {
		if err := repo.Migrate(ctx); err != nil {
			return err
		}
	}

	user, err := ensureUser(ctx, repo, o.username, o.password)
	if err != nil {
		return err
	}

	token, expiresAt, err := auth.NewTokenIssuer([]byte(o.jwtSecret), o.ttl).Issue(user.ID)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}

	if o.format == "plain" {
		_, err = fmt.Fprintln(stdout, token)
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		UserID    string    `json:"user_id"`
		Username  string    `json:"username"`
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}{user.ID, user.Username, token, expiresAt.UTC()})
}

// ensureUser returns the user named username, creating it with password
// when it does not exist yet.
func ensureUser(ctx context.Context, repo *repository.Repository, username, password string) (*model.User, error) {
	user, err := repo.GetUserByUsername(ctx, username)
	switch {
	case err == nil:
		return user, nil
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, fmt.Errorf("look up %s: %w", username, err)
	case password == "":
		return nil, fmt.Errorf("user %s does not exist; pass -password to create it", username)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user = &model.User{
		ID:           ulid.Make().String(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create %s: %w", username, err)
	}
	return user, nil
}
