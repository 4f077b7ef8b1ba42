// Package config loads the app configuration from the environment.
package config

import (
	"errors"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

type Environment string

const (
	Local      Environment = "local"
	Production Environment = "production"
)

type Config struct {
	Env       Environment `env:"ENV" env-default:"local"`
	Port      string      `env:"PORT" env-default:"8080"`
	DBPath    string      `env:"DB_PATH" env-default:"/app/data/reelkeep.db"`
	JWTSecret string      `env:"AUTH_JWT_SECRET"`

	TMDBAPIKey    string `env:"TMDB_API_KEY"`
	TMDBReadToken string `env:"TMDB_API_READ_TOKEN"`
	TMDBBaseURL   string `env:"TMDB_BASE_URL" env-default:"https://api.themoviedb.org/3"`
	ImageBase     string `env:"TMDB_IMAGE_BASE" env-default:"https://image.tmdb.org/t/p"`

	CORSOrigins string `env:"CORS_ORIGINS" env-default:"*"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}

	if cfg.TMDBAPIKey == "" && cfg.TMDBReadToken == "" {
		return nil, errors.New("TMDB_API_KEY or TMDB_API_READ_TOKEN is required")
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, errors.New("AUTH_JWT_SECRET is required")
	}

	if cfg.Env != Local && cfg.Env != Production {
		cfg.Env = Local
	}
	return &cfg, nil
}

func (c *Config) AllowedOrigins() []string {
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
