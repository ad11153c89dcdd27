package config

import (
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Store backends accepted by STORE_BACKEND.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Config holds everything the server reads from the environment (.env is
// loaded first when present).
type Config struct {
	AppURI         string `env:"APP_URI" envDefault:"8888"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS" envDefault:"*"`
	JWTSecret      string `env:"JWT_SECRET" envDefault:"your_secret_key"`

	StoreBackend string `env:"STORE_BACKEND" envDefault:"memory"`
	StorePrefix  string `env:"STORE_PREFIX" envDefault:"attendance:"`
	RedisURI     string `env:"REDIS_URI"`
	MongoURI     string `env:"MONGO_URI"`
	MongoDB      string `env:"MONGO_DB" envDefault:"AttendanceDB"`
	MongoColl    string `env:"MONGO_COLLECTION" envDefault:"kvstore"`

	SyncInterval time.Duration `env:"SYNC_INTERVAL" envDefault:"15s"`
	LegacyKeys   bool          `env:"LEGACY_KEYS" envDefault:"true"`
	SyncProfile  bool          `env:"SYNC_PROFILE" envDefault:"false"`

	// Background recalculation through asynq. Needs REDIS_URI.
	WorkerEnabled     bool   `env:"WORKER_ENABLED" envDefault:"false"`
	WorkerConcurrency int    `env:"WORKER_CONCURRENCY" envDefault:"2"`
	RecalculateCron   string `env:"RECALCULATE_CRON" envDefault:"@every 1h"`

	Log LogConfig
}

// LogConfig is consumed by the logger package.
type LogConfig struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`
	Format     string `env:"LOG_FORMAT" envDefault:"text"`
	Output     string `env:"LOG_OUTPUT" envDefault:"stdout"`
	File       string `env:"LOG_FILE" envDefault:"logs/app.log"`
	MaxSize    int    `env:"LOG_MAX_SIZE" envDefault:"100"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
	MaxAge     int    `env:"LOG_MAX_AGE" envDefault:"30"`
	Compress   bool   `env:"LOG_COMPRESS" envDefault:"true"`
}

// Load reads the given env files (".env" when none are named) and parses the
// process environment into a Config. Missing env files are not an error.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, errors.Wrapf(err, "load %s", f)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "parse environment")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks combinations the env tags cannot express.
func (c *Config) Validate() error {
	c.StoreBackend = strings.ToLower(strings.TrimSpace(c.StoreBackend))
	switch c.StoreBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisURI == "" {
			return errors.New("STORE_BACKEND=redis requires REDIS_URI")
		}
	case BackendMongo:
		if c.MongoURI == "" {
			return errors.New("STORE_BACKEND=mongo requires MONGO_URI")
		}
	default:
		return errors.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.SyncInterval <= 0 {
		return errors.Errorf("SYNC_INTERVAL must be positive, got %s", c.SyncInterval)
	}
	if c.WorkerEnabled && c.RedisURI == "" {
		return errors.New("WORKER_ENABLED requires REDIS_URI")
	}
	return nil
}

// Origins splits ALLOWED_ORIGINS into the comma list fiber's cors expects.
func (c *Config) Origins() string {
	parts := strings.Split(c.AllowedOrigins, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return "*"
	}
	return strings.Join(out, ",")
}
