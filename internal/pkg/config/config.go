package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Store drivers.
const (
	StoreMongo  = "mongo"
	StoreSQLite = "sqlite"
)

// Session backends.
const (
	SessionRedis  = "redis"
	SessionMemory = "memory"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	// StoreDriver selects the account store: mongo or sqlite.
	StoreDriver string `env:"STORE_DRIVER, default=mongo"`

	Mongo     MongoConfig
	SQLite    SQLiteConfig
	Redis     RedisConfig
	Session   SessionConfig
	Directory DirectoryConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=restaurant_directory"`
}

type SQLiteConfig struct {
	Path string `env:"SQLITE_PATH, default=directory.db"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type SessionConfig struct {
	// Backend selects where directory filters live: redis or memory.
	Backend      string        `env:"SESSION_BACKEND,       default=redis"`
	TTL          time.Duration `env:"SESSION_TTL,           default=2h"`
	CookieSecure bool          `env:"SESSION_COOKIE_SECURE, default=false"`
}

type DirectoryConfig struct {
	// RoleMatch is "any" (OR) or "all" (AND) for multi-role filters.
	RoleMatch string `env:"DIRECTORY_ROLE_MATCH, default=any"`
}

// IsDevelopment reports whether the service runs with ENV=development.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadWith(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadWith reads configuration from l and validates it.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreMongo, StoreSQLite:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreMongo, StoreSQLite, c.StoreDriver)
	}
	switch c.Session.Backend {
	case SessionRedis, SessionMemory:
	default:
		return fmt.Errorf("SESSION_BACKEND must be %q or %q, got %q", SessionRedis, SessionMemory, c.Session.Backend)
	}
	switch strings.ToLower(c.Directory.RoleMatch) {
	case "any", "all":
	default:
		return fmt.Errorf("DIRECTORY_ROLE_MATCH must be any or all, got %q", c.Directory.RoleMatch)
	}
	if c.JWTSecret == "" && !c.IsDevelopment() {
		return fmt.Errorf("JWT_SECRET is required outside development")
	}
	return nil
}
