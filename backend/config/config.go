// Copyright (C) 2025 privchat.dev <ops@privchat.dev>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Port        string
	RedisAddr   string
	DatabaseURL string
	AdminToken  string

	RateLimit  int
	RateWindow time.Duration
}

// Load reads configuration from the environment, with a .env file as an
// optional local override.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using environment only")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		RedisAddr:   getEnv("REDIS_URL", "localhost:6379"),
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost/privchat?sslmode=disable"),
		AdminToken:  os.Getenv("ADMIN_TOKEN"),
		RateLimit:   getEnvInt("RATE_LIMIT", 10),
		RateWindow:  time.Duration(getEnvInt("RATE_WINDOW_SECONDS", 60)) * time.Second,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logrus.WithField("key", key).Warn("Ignoring non-numeric env value")
		return fallback
	}
	return n
}
