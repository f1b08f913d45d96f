// Package main provisions a shop user from a phone number and a PIN.
//
//	seeduser -dsn postgres://... -phone 9876543210 -pin 1234
//
// DATABASE_DSN and PHONE_REGION are used when the flags are omitted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/atinyakov/teashop/internal/db"
	"github.com/atinyakov/teashop/internal/repository"
	"github.com/atinyakov/teashop/internal/service"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	var dsn, phone, pin, region string
	flag.StringVar(&dsn, "dsn", os.Getenv("DATABASE_DSN"), "postgres connection string")
	flag.StringVar(&phone, "phone", "", "phone number of the new user")
	flag.StringVar(&pin, "pin", "", "login PIN of the new user")
	flag.StringVar(&region, "region", envOr("PHONE_REGION", "IN"), "default phone region")
	flag.Parse()

	if dsn == "" || phone == "" || pin == "" {
		flag.Usage()
		os.Exit(2)
	}

	postgresDB, err := db.InitPostgres(dsn)
	if err != nil {
		log.Fatalf("cannot init database: %v", err)
	}
	defer postgresDB.Close()

	repo := repository.NewPostgresUserRepository(postgresDB)
	if err := run(context.Background(), repo, region, phone, pin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

// run creates the user unless one with the same normalized phone exists, in
// which case it only reports that user.
func run(ctx context.Context, repo service.AuthRepository, region, phone, pin string, out io.Writer) error {
	normalized, err := service.NormalizePhone(phone, region)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	existing, err := repo.GetUserByPhone(ctx, normalized)
	switch {
	case err == nil:
		fmt.Fprintf(out, "User already exists: %s (id %s)\n", existing.Phone, existing.ID)
		return nil
	case !errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("look up user: %w", err)
	}

	svc := service.NewAuthService(repo, service.AuthOptions{PhoneRegion: region})
	u, err := svc.Register(ctx, phone, pin)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	fmt.Fprintf(out, "User %s created with id %s\n", u.Phone, u.ID)
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
