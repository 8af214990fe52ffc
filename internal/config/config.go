package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/emi420/underpass-go/internal/pkg/validator"
)

// Config is the whole of the engine's runtime configuration, loaded from
// environment variables (with an optional .env file) the same way the
// teacher's Load did.
type Config struct {
	Store       StoreConfig
	Redis       RedisConfig
	Replication ReplicationConfig
	Import      ImportConfig
	AOI         AOIConfig
	Worker      WorkerConfig
	Log         LogConfig
}

type StoreConfig struct {
	Host            string `validate:"required"`
	Port            int    `validate:"required"`
	User            string `validate:"required"`
	Password        string
	DBName          string `validate:"required"`
	SSLMode         string
	MaxConns        int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	DDLDir          string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// ReplicationConfig points at the remote replication server and bounds how
// the client downloads from it (spec §4.5).
type ReplicationConfig struct {
	BaseURL        string `validate:"required,url"`
	ChangesetURL   string `validate:"required,url"`
	RequestTimeout time.Duration
	PollInterval   time.Duration
	CacheDir       string
}

// ImportConfig governs the bulk PBF import path (spec §4.3/§5).
type ImportConfig struct {
	PBFPath     string
	Concurrency int
	PageSize    int
}

// AOIConfig names an optional GeoJSON/WKT polygon file used by the area
// filter (spec §4.6). Empty Path means no AOI is configured.
type AOIConfig struct {
	Path string
}

type WorkerConfig struct {
	PoolSize int
}

type LogConfig struct {
	Level string
}

// Load reads configuration from the environment (optionally backed by a
// .env file in the working directory), applying the teacher's viper-based
// loading pattern.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		Store: StoreConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			DBName:          viper.GetString("DB_NAME"),
			SSLMode:         viper.GetString("DB_SSLMODE"),
			MaxConns:        viper.GetInt("DB_MAX_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: time.Duration(viper.GetInt("DB_CONN_MAX_LIFETIME")) * time.Second,
			ConnMaxIdleTime: time.Duration(viper.GetInt("DB_CONN_MAX_IDLE_TIME")) * time.Second,
			DDLDir:          viper.GetString("DB_DDL_DIR"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetInt("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Replication: ReplicationConfig{
			BaseURL:        viper.GetString("REPLICATION_BASE_URL"),
			ChangesetURL:   viper.GetString("CHANGESET_BASE_URL"),
			RequestTimeout: time.Duration(viper.GetInt("REPLICATION_TIMEOUT_SECONDS")) * time.Second,
			PollInterval:   time.Duration(viper.GetInt("REPLICATION_POLL_INTERVAL_SECONDS")) * time.Second,
			CacheDir:       viper.GetString("REPLICATION_CACHE_DIR"),
		},
		Import: ImportConfig{
			PBFPath:     viper.GetString("IMPORT_PBF_PATH"),
			Concurrency: viper.GetInt("IMPORT_CONCURRENCY"),
			PageSize:    viper.GetInt("IMPORT_PAGE_SIZE"),
		},
		AOI: AOIConfig{
			Path: viper.GetString("AOI_PATH"),
		},
		Worker: WorkerConfig{
			PoolSize: viper.GetInt("WORKER_POOL_SIZE"),
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
	}

	applyDefaults(cfg)

	if err := validator.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Store.SSLMode == "" {
		cfg.Store.SSLMode = "disable"
	}
	if cfg.Store.MaxConns == 0 {
		cfg.Store.MaxConns = 10
	}
	if cfg.Store.MaxIdleConns == 0 {
		cfg.Store.MaxIdleConns = 5
	}
	if cfg.Store.ConnMaxLifetime == 0 {
		cfg.Store.ConnMaxLifetime = 30 * time.Minute
	}
	if cfg.Store.ConnMaxIdleTime == 0 {
		cfg.Store.ConnMaxIdleTime = 5 * time.Minute
	}
	if cfg.Store.DDLDir == "" {
		cfg.Store.DDLDir = "internal/store/ddl"
	}
	if cfg.Replication.BaseURL == "" {
		cfg.Replication.BaseURL = "https://planet.openstreetmap.org/replication/minute"
	}
	if cfg.Replication.ChangesetURL == "" {
		cfg.Replication.ChangesetURL = "https://planet.openstreetmap.org/replication/changesets"
	}
	if cfg.Replication.RequestTimeout == 0 {
		cfg.Replication.RequestTimeout = 30 * time.Second
	}
	if cfg.Replication.PollInterval == 0 {
		cfg.Replication.PollInterval = 60 * time.Second
	}
	if cfg.Replication.CacheDir == "" {
		cfg.Replication.CacheDir = "/tmp/underpass-replication"
	}
	if cfg.Import.Concurrency == 0 {
		cfg.Import.Concurrency = 4
	}
	if cfg.Import.PageSize == 0 {
		cfg.Import.PageSize = 1000
	}
	if cfg.Worker.PoolSize == 0 {
		cfg.Worker.PoolSize = cfg.Import.Concurrency
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// DSN builds the store connection string the way the teacher's
// GetDatabaseDSN did.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Store.Host,
		c.Store.Port,
		c.Store.User,
		c.Store.Password,
		c.Store.DBName,
		c.Store.SSLMode,
	)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
