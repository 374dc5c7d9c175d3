package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/grandkuni/gkb/internal/hold"
	"github.com/grandkuni/gkb/internal/money"
	"github.com/grandkuni/gkb/internal/store"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName   string `envconfig:"APP_NAME" default:"GKB"`
	AppEnv    string `envconfig:"APP_ENV" default:"development"`
	Port      string `envconfig:"PORT" default:"8080" validate:"required"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json text"`

	StoreDriver    string `envconfig:"STORE_DRIVER" default:"redis" validate:"oneof=redis postgres memory"`
	RedisURL       string `envconfig:"REDIS_URL" validate:"required_if=StoreDriver redis"`
	DatabaseURL    string `envconfig:"DATABASE_URL" validate:"required_if=StoreDriver postgres"`
	StoreKeyPrefix string `envconfig:"STORE_KEY_PREFIX" default:"gkb:"`

	CatalogPath    string       `envconfig:"CATALOG_PATH"`
	InitialBalance money.Amount `envconfig:"INITIAL_BALANCE" default:"1000" validate:"gte=0"`

	HoldTick       time.Duration `envconfig:"HOLD_TICK" default:"20ms" validate:"gt=0"`
	HoldStep       int           `envconfig:"HOLD_STEP" default:"2" validate:"min=1,max=100"`
	HoldGrace      time.Duration `envconfig:"HOLD_GRACE" default:"200ms" validate:"gt=0"`
	ConfirmGrace   time.Duration `envconfig:"CONFIRM_GRACE" default:"300ms" validate:"gt=0"`
	SwipeWindow    time.Duration `envconfig:"SWIPE_WINDOW" default:"2s" validate:"gt=0"`
	SwipesToCredit int           `envconfig:"SWIPES_TO_CREDIT" default:"3" validate:"min=1"`

	ShutdownPeriod time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s" validate:"gt=0"`
	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h" validate:"gt=0"`
}

var validate = validator.New()

// Load reads an optional .env file, then the environment, and validates the result.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads configuration from the process environment only.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.StoreDriver = strings.ToLower(cfg.StoreDriver)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field ranges and that the store driver has what it needs.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config %s: failed %q", fe.Field(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if !c.IsDevelopment() && c.StoreDriver == store.DriverMemory {
		return fmt.Errorf("STORE_DRIVER=memory is only allowed in development, APP_ENV=%s", c.AppEnv)
	}
	return nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDevelopment reports whether APP_ENV names a local environment.
func (c Config) IsDevelopment() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// StoreOptions selects the key-value backend.
func (c Config) StoreOptions() store.Options {
	return store.Options{
		Driver:      c.StoreDriver,
		RedisURL:    c.RedisURL,
		DatabaseURL: c.DatabaseURL,
		KeyPrefix:   c.StoreKeyPrefix,
	}
}

// HoldConfig is the catalog session gesture timing.
func (c Config) HoldConfig() hold.Config {
	return hold.Config{TickInterval: c.HoldTick, Step: c.HoldStep, GraceDelay: c.HoldGrace}
}

// ConfirmHoldConfig is the fixed-amount confirmation timing.
func (c Config) ConfirmHoldConfig() hold.Config {
	return hold.Config{TickInterval: c.HoldTick, Step: c.HoldStep, GraceDelay: c.ConfirmGrace}
}
