package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// EnvProduction is the environment variable selecting production mode.
const EnvProduction = "NODE_ENV"

// LoadEnvFiles loads .env and .env.local when present. Variables already set in
// the process environment are not overwritten.
func LoadEnvFiles(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env", ".env.local"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			slog.Warn("Failed to load env file", "file", p, "error", err)
			continue
		}
		slog.Debug("Loaded environment variables", "file", p)
	}
}

// IsProduction reads the production signal through getenv (os.Getenv when nil).
func IsProduction(getenv func(string) string) bool {
	if getenv == nil {
		getenv = os.Getenv
	}
	return getenv(EnvProduction) == "production"
}
