package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/oksasatya/go-account-service/config"
	accountapp "github.com/oksasatya/go-account-service/internal/application"
	pginfra "github.com/oksasatya/go-account-service/internal/infrastructure/postgres"
	"github.com/oksasatya/go-account-service/pkg/helpers"
)

// seed creates a demo account, or resets its password when it already exists.
// No email is sent.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	email := flag.String("email", "demo@example.com", "account email")
	password := flag.String("password", "password123", "account password")
	first := flag.String("first", "Demo", "first name")
	last := flag.String("last", "User", "last name")
	flag.Parse()

	ctx := context.Background()
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), 2, 1, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)
	jwtManager := helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.AccessTTL)
	svc := accountapp.NewService(
		pginfra.NewAccountRepository(pool),
		helpers.NewIdentityProvider(jwtManager, true),
		jwtManager,
		nil,
		logger,
	)

	a, err := svc.CreateAccount(ctx, accountapp.CreateAccountInput{Email: *email, Password: *password, FirstName: *first, LastName: *last})
	switch {
	case err == nil:
		fmt.Printf("seeded account: id=%s email=%s otp=%06d\n", a.ID, a.Email, a.OTP.Value)
	case errors.Is(err, accountapp.ErrConflict):
		a, err = svc.ChangePasswordByEmail(ctx, *email, *password)
		if err != nil {
			log.Fatalf("failed to reset seeded account: %v", err)
		}
		fmt.Printf("account exists; password reset: id=%s email=%s\n", a.ID, a.Email)
	default:
		log.Fatalf("failed to seed account: %v", err)
	}
}
