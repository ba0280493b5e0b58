// Package config loads service settings from an optional YAML file and
// SCHEDSTRUCT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"github.com/ukaji3/schedstruct-go/internal/logging"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/candidates"
)

const envPrefix = "SCHEDSTRUCT"

// Config is the full service configuration.
type Config struct {
	Log      logging.Config `mapstructure:"log"`
	Extract  ExtractConfig  `mapstructure:"extract"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Server   ServerConfig   `mapstructure:"server"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ExtractConfig holds the extraction and candidate detection settings.
type ExtractConfig struct {
	Mode              string `mapstructure:"mode"`
	HeaderRows        int    `mapstructure:"header_rows"`
	MaxGroupScan      int    `mapstructure:"max_group_scan"`
	DefaultProgram    string `mapstructure:"default_program"`
	DateCol           int    `mapstructure:"date_col"`
	WeekdayCol        int    `mapstructure:"weekday_col"`
	TimeCol           int    `mapstructure:"time_col"`
	AcademicYearStart int    `mapstructure:"academic_year_start"`
	// MinPossibleMatchLen and MaxSamples tune candidate detection.
	MinPossibleMatchLen int `mapstructure:"min_possible_match_len"`
	MaxSamples          int `mapstructure:"max_samples"`
}

// DatabaseConfig selects and tunes the snapshot store.
type DatabaseConfig struct {
	// Driver is sqlite or postgres.
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// RedisConfig configures the registry cache and ingestion lock.
type RedisConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	RegistryTTL time.Duration `mapstructure:"registry_ttl"`
	LockTTL     time.Duration `mapstructure:"lock_ttl"`
}

// KafkaConfig configures change event publication.
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// MinIOConfig configures workbook fetch and archival.
type MinIOConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
}

// WatchConfig configures the inbox watcher.
type WatchConfig struct {
	Dir      string        `mapstructure:"dir"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("extract.mode", string(schedstruct.ModeVerbose))
	v.SetDefault("extract.header_rows", 7)
	v.SetDefault("extract.max_group_scan", 15)
	v.SetDefault("extract.default_program", "")
	v.SetDefault("extract.date_col", 0)
	v.SetDefault("extract.weekday_col", 1)
	v.SetDefault("extract.time_col", 2)
	v.SetDefault("extract.academic_year_start", 0)
	v.SetDefault("extract.min_possible_match_len", 4)
	v.SetDefault("extract.max_samples", 3)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:schedstruct.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.registry_ttl", "10m")
	v.SetDefault("redis.lock_ttl", "2m")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "schedule.changes")

	v.SetDefault("minio.enabled", false)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "timetables")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.max_upload_bytes", 32<<20)

	v.SetDefault("watch.dir", "inbox")
	v.SetDefault("watch.debounce", "2s")

	v.SetDefault("metrics.enabled", true)
}

// Load reads path when non-empty, applies SCHEDSTRUCT_* overrides and
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Watch calls onChange with the reloaded configuration whenever path changes
// on disk. Invalid revisions are reported to onError and skipped.
func Watch(path string, onChange func(*Config), onError func(error)) error {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %q: %w", path, err)
	}
	v.OnConfigChange(func(fsnotify.Event) {
		cfg, err := decode(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if _, ok := schedstruct.ParseMode(c.Extract.Mode); !ok {
		errs = append(errs, fmt.Errorf("extract.mode: unknown mode %q", c.Extract.Mode))
	}
	if c.Extract.HeaderRows < 1 {
		errs = append(errs, errors.New("extract.header_rows must be positive"))
	}
	if c.Extract.DateCol < 0 || c.Extract.WeekdayCol < 0 || c.Extract.TimeCol < 0 {
		errs = append(errs, errors.New("extract columns must not be negative"))
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver: unsupported driver %q", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required when redis is enabled"))
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		errs = append(errs, errors.New("kafka.brokers and kafka.topic are required when kafka is enabled"))
	}
	if c.MinIO.Enabled && (c.MinIO.Endpoint == "" || c.MinIO.Bucket == "") {
		errs = append(errs, errors.New("minio.endpoint and minio.bucket are required when minio is enabled"))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("server.max_upload_bytes must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// ExtractOptions converts the extract section into extraction options.
func (c *Config) ExtractOptions() schedstruct.Options {
	opts := schedstruct.DefaultOptions()
	if mode, ok := schedstruct.ParseMode(c.Extract.Mode); ok {
		opts.Mode = mode
	}
	opts.Layout.HeaderRows = c.Extract.HeaderRows
	if c.Extract.MaxGroupScan > 0 {
		opts.Layout.MaxGroupScan = c.Extract.MaxGroupScan
	}
	opts.Layout.DefaultProgram = c.Extract.DefaultProgram
	opts.DateCol = c.Extract.DateCol
	opts.WeekdayCol = c.Extract.WeekdayCol
	opts.TimeCol = c.Extract.TimeCol
	opts.AcademicYearStart = c.Extract.AcademicYearStart
	return opts
}

// CandidateOptions converts the extract section into detection options.
func (c *Config) CandidateOptions() candidates.Options {
	opts := candidates.DefaultOptions()
	if c.Extract.MinPossibleMatchLen > 0 {
		opts.MinPossibleMatchLen = c.Extract.MinPossibleMatchLen
	}
	if c.Extract.MaxSamples > 0 {
		opts.MaxSamples = c.Extract.MaxSamples
	}
	return opts
}
