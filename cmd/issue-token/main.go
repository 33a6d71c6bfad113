package main

import (
	"flag"
	"fmt"

	"visar-backend/config"
	"visar-backend/logger"
	"visar-backend/middleware"

	"go.uber.org/zap"
)

// issue-token prints a bearer token for local testing of the API
func main() {
	subject := flag.String("subject", "test@example.com", "caller id stored in the token")
	ttl := flag.Duration("ttl", 0, "token lifetime (defaults to auth.tokenTTL)")
	flag.Parse()

	log := logger.Bootstrap()
	defer log.Sync()

	cfg := config.MustLoad(log)
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("auth.jwtSecret (JWT_SECRET) must be set to issue tokens")
	}

	lifetime := cfg.Auth.TokenTTL
	if *ttl > 0 {
		lifetime = *ttl
	}

	token, err := middleware.IssueToken(cfg.Auth.JWTSecret, *subject, lifetime)
	if err != nil {
		log.Fatal("Failed to issue token", zap.Error(err))
	}

	log.Info("Token issued", zap.String("subject", *subject), zap.Duration("ttl", lifetime))
	fmt.Println(token)
}
