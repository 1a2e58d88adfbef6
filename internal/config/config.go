package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const shutdownSecondsEnvVar = "SHUTDOWN_TIMEOUT_SECONDS"

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string        `env:"APP_NAME" envDefault:"AISchool"`
	AppEnv         string        `env:"APP_ENV" envDefault:"development"`
	Port           string        `env:"PORT" envDefault:"8080"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	APIPrefix      string        `env:"API_PREFIX" envDefault:"/api"`
	SecretKey      string        `env:"SECRET_KEY,required,notEmpty"`
	StoreURL       string        `env:"STORE_URL,required,notEmpty"`
	RedisURL       string        `env:"REDIS_URL"`
	TokenTTL       time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	UsersTable     string        `env:"USERS_TABLE" envDefault:"users"`
	ProfilesTable  string        `env:"PROFILES_TABLE" envDefault:"kidsprofiles"`
	CORSOrigins    string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	ShutdownPeriod time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
}

// Load reads configuration values from the process environment.
func Load() (Config, error) {
	return LoadFrom(env.ToMap(os.Environ()))
}

// LoadFrom reads configuration from an explicit environment.
func LoadFrom(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if v := environ[shutdownSecondsEnvVar]; v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownSecondsEnvVar, err)
		}
		cfg.ShutdownPeriod = time.Duration(seconds) * time.Second
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.APIPrefix = strings.TrimRight(cfg.APIPrefix, "/")

	if cfg.TokenTTL <= 0 {
		return Config{}, fmt.Errorf("TOKEN_TTL must be positive")
	}
	if cfg.UsersTable == cfg.ProfilesTable {
		return Config{}, fmt.Errorf("USERS_TABLE and PROFILES_TABLE must differ")
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the app runs in a local development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}
