// Command devtoken mints access tokens for local development against the
// configured JWT secret. It refuses to run in prod.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/bjaksic84/rentmate-backend/pkg/auth"
	"github.com/bjaksic84/rentmate-backend/pkg/config"
	"github.com/bjaksic84/rentmate-backend/pkg/enums"
	"github.com/bjaksic84/rentmate-backend/pkg/logger"
)

type tokenConfig struct {
	App config.AppConfig
	JWT config.JWTConfig
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "devtoken", Format: logger.FormatConsole, Output: os.Stderr})
	_ = godotenv.Load()

	userID := flag.String("user", "", "user id (random when empty)")
	role := flag.String("role", string(enums.UserRoleUser), "user|admin")
	name := flag.String("name", "", "display name carried in the token")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	token, err := mint(*userID, *role, *name, *ttl)
	if err != nil {
		logg.Error(context.Background(), "devtoken failed", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

func mint(rawUserID, rawRole, name string, ttl time.Duration) (string, error) {
	var cfg tokenConfig
	if err := envconfig.Process(config.EnvPrefix, &cfg); err != nil {
		return "", fmt.Errorf("parsing config: %w", err)
	}
	if cfg.App.IsProd() {
		return "", errors.New("devtoken is disabled in prod")
	}

	id := uuid.New()
	if rawUserID != "" {
		parsed, err := uuid.Parse(rawUserID)
		if err != nil {
			return "", fmt.Errorf("invalid -user: %w", err)
		}
		id = parsed
	}
	role, err := enums.ParseUserRole(rawRole)
	if err != nil {
		return "", err
	}

	return auth.MintAccessToken(cfg.JWT, time.Now().UTC(), ttl, auth.AccessTokenPayload{
		UserID:      id,
		Role:        role,
		DisplayName: name,
	})
}
