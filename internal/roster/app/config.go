package app

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseFile           string        `env:"ROSTER_DATABASE_FILE"             envDefault:"roster.db"`
	PepperFile             string        `env:"ROSTER_PEPPER_FILE"               envDefault:"pepper"`
	StoreTimeout           time.Duration `env:"ROSTER_STORE_TIMEOUT"             envDefault:"5s"`
	InviteCodeLength       int           `env:"ROSTER_INVITE_CODE_LENGTH"        envDefault:"8"`
	LoginAttemptsPerMinute int           `env:"ROSTER_LOGIN_ATTEMPTS_PER_MINUTE" envDefault:"5"`
	HousekeepingInterval   time.Duration `env:"ROSTER_HOUSEKEEPING_INTERVAL"     envDefault:"5m"`

	Env       string `env:"ENV"        envDefault:"prod"`
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"warn"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// LoadConfig reads the given dotenv files (missing ones are skipped) and then
// parses the environment. Variables already set win over dotenv values.
func LoadConfig(dotenv ...string) (Config, error) {
	for _, file := range dotenv {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", file, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.DatabaseFile == "" {
		return errors.New("ROSTER_DATABASE_FILE must not be empty")
	}
	if c.PepperFile == "" {
		return errors.New("ROSTER_PEPPER_FILE must not be empty")
	}
	if c.StoreTimeout <= 0 {
		return errors.New("ROSTER_STORE_TIMEOUT must be positive")
	}
	// Fewer than 6 symbols leaves too few codes for the retry budget.
	if c.InviteCodeLength < 6 || c.InviteCodeLength > 32 {
		return fmt.Errorf("ROSTER_INVITE_CODE_LENGTH must be between 6 and 32, got %d", c.InviteCodeLength)
	}
	return nil
}
