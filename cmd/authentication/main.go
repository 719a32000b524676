// This is a **mock authentication service**: it hands out admin bearer
// tokens for the salary service so moderators can use the API locally.
package main

import (
	"encoding/json"
	"net/http"

	"github.com/caarlos0/env/v11"
	"github.com/gartstein/salaries/internal/salary/auth"
	"go.uber.org/zap"
)

type authConfig struct {
	Port    string `env:"AUTH_PORT" envDefault:"8081"`
	Secret  string `env:"JWT_SECRET" envDefault:"jwt_secret"`
	Subject string `env:"ADMIN_SUBJECT" envDefault:"admin"`
}

// TokenResponse represents the response structure
type TokenResponse struct {
	Token string `json:"token"`
}

func tokenHandler(cfg authConfig, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		token, err := auth.GenerateToken(cfg.Subject, cfg.Secret)
		if err != nil {
			logger.Error("Failed to generate token", zap.Error(err))
			http.Error(w, "Failed to generate token", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(TokenResponse{Token: token}); err != nil {
			logger.Error("Failed to encode token", zap.Error(err))
		}
	}
}

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	var cfg authConfig
	if err := env.Parse(&cfg); err != nil {
		logger.Fatal("failed to parse environment", zap.Error(err))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", tokenHandler(cfg, logger))

	logger.Info("Authentication service running", zap.String("port", cfg.Port))
	if err := http.ListenAndServe(":"+cfg.Port, mux); err != nil {
		logger.Fatal("authentication service stopped", zap.Error(err))
	}
}
