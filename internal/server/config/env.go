package config

import (
	"errors"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const envPrefix = "GOPHAUTH_"

// dotenvFile is loaded before the environment is read, if it exists.
// Variables already present in the process environment win.
var dotenvFile = ".env"

// parseEnv overlays GOPHAUTH_* variables. Unset variables keep the current
// value; malformed ones (e.g. a bad duration) are fatal.
func parseEnv(config *Config) {
	if err := godotenv.Load(dotenvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	if err := env.ParseWithOptions(config, env.Options{Prefix: envPrefix}); err != nil {
		panic(err)
	}
}
