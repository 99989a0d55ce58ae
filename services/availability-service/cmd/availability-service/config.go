package main

import (
	"fmt"
	"time"

	"github.com/glowbook/clinicavail/libs/config"
)

type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"availability-service"`
	Port        string `env:"PORT" envDefault:"8090"`
	GRPCPort    string `env:"GRPC_PORT" envDefault:"9090"`

	DatabaseURL    string `env:"DATABASE_URL,required"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START" envDefault:"true"`

	RedisAddr       string        `env:"REDIS_ADDR"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisDB         int           `env:"REDIS_DB" envDefault:"0"`
	CatalogCacheTTL time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"5m"`

	KafkaBrokers string `env:"KAFKA_BROKERS"`

	UpstreamBaseURL string        `env:"UPSTREAM_BASE_URL,required"`
	UpstreamToken   string        `env:"UPSTREAM_TOKEN"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"10s"`
	BookingsSource  string        `env:"BOOKINGS_SOURCE" envDefault:"upstream"`

	JWTSecret     string `env:"JWT_SECRET,required"`
	JWTCookieName string `env:"JWT_COOKIE_NAME" envDefault:"session"`

	Timezone                   string `env:"TIMEZONE" envDefault:"UTC"`
	DefaultSlotIntervalMinutes int    `env:"DEFAULT_SLOT_INTERVAL_MINUTES" envDefault:"30"`
	MaxRangeDays               int    `env:"MAX_RANGE_DAYS" envDefault:"90"`

	RateLimitPerMinute int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"120"`
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS"`
}

func loadConfig() (Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := config.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if err := config.ValidatePort("PORT", c.Port); err != nil {
		return err
	}
	if err := config.ValidatePort("GRPC_PORT", c.GRPCPort); err != nil {
		return err
	}
	switch c.BookingsSource {
	case "upstream", "db":
	default:
		return fmt.Errorf("BOOKINGS_SOURCE must be upstream or db (got %q)", c.BookingsSource)
	}
	if c.DefaultSlotIntervalMinutes <= 0 || c.DefaultSlotIntervalMinutes > 24*60 {
		return fmt.Errorf("DEFAULT_SLOT_INTERVAL_MINUTES must be between 1 and 1440 (got %d)", c.DefaultSlotIntervalMinutes)
	}
	if c.MaxRangeDays <= 0 {
		return fmt.Errorf("MAX_RANGE_DAYS must be positive (got %d)", c.MaxRangeDays)
	}
	return nil
}
