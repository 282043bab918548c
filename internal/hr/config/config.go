// Package config loads the service configuration from YAML. Secrets may be
// overridden from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gartstein/hr/internal/hr/db"
	"gopkg.in/yaml.v3"
)

const (
	DispatcherMemory = "memory"
	DispatcherKafka  = "kafka"
)

// DefaultPath is used when CONFIG_PATH is not set.
var DefaultPath = filepath.Join("internal", "hr", "config", "config.yaml")

// Config struct for YAML configuration
type Config struct {
	GRPCPort int    `yaml:"GRPC_PORT"`
	HTTPPort int    `yaml:"HTTP_PORT"`
	LogLevel string `yaml:"LOG_LEVEL"`

	DBHost     string `yaml:"DB_HOST"`
	DBPort     int    `yaml:"DB_PORT"`
	DBUser     string `yaml:"DB_USER"`
	DBPassword string `yaml:"DB_PASSWORD"`
	DBName     string `yaml:"DB_NAME"`
	DBSSLMode  string `yaml:"DB_SSLMODE"`

	KafkaBrokers []string `yaml:"KAFKA_BROKERS"`
	Topic        string   `yaml:"TOPIC"`
	ImportTopic  string   `yaml:"IMPORT_TOPIC"`
	ImportGroup  string   `yaml:"IMPORT_GROUP_ID"`

	JWTSecret string        `yaml:"JWT_SECRET"`
	JWTTTL    time.Duration `yaml:"JWT_TTL"`

	// Dispatcher is "memory" for the in-process pool or "kafka".
	Dispatcher       string        `yaml:"DISPATCHER"`
	ImportWorkers    int           `yaml:"IMPORT_WORKERS"`
	ImportQueueSize  int           `yaml:"IMPORT_QUEUE_SIZE"`
	ImportBatchSize  int           `yaml:"IMPORT_BATCH_SIZE"`
	ImportRetryDelay time.Duration `yaml:"IMPORT_RETRY_DELAY"`
	// BulkCopy commits import batches with COPY through pgx instead of gorm.
	BulkCopy      bool   `yaml:"BULK_COPY"`
	UploadDir     string `yaml:"UPLOAD_DIR"`
	MaxUploadKB   int64  `yaml:"MAX_UPLOAD_KB"`
	EventsEnabled bool   `yaml:"EVENTS_ENABLED"`

	ShutdownTimeout time.Duration `yaml:"SHUTDOWN_TIMEOUT"`
	HealthInterval  time.Duration `yaml:"HEALTH_INTERVAL"`
}

// Load reads the file at CONFIG_PATH, or DefaultPath when unset.
func Load() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = DefaultPath
	}
	return LoadFile(path)
}

func LoadFile(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(file)
}

// Parse decodes raw YAML, applies environment overrides and defaults, and
// validates the result.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.DBPassword = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.KafkaBrokers = nil
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				c.KafkaBrokers = append(c.KafkaBrokers, b)
			}
		}
	}
}

func (c *Config) applyDefaults() {
	setDefault(&c.GRPCPort, 50051)
	setDefault(&c.HTTPPort, 8080)
	setDefault(&c.LogLevel, "info")
	setDefault(&c.DBPort, 5432)
	setDefault(&c.DBSSLMode, "disable")
	setDefault(&c.Topic, "hr-events")
	setDefault(&c.ImportTopic, "hr-imports")
	setDefault(&c.ImportGroup, "hr-import-workers")
	setDefault(&c.JWTTTL, 24*time.Hour)
	setDefault(&c.Dispatcher, DispatcherMemory)
	setDefault(&c.ImportWorkers, 4)
	setDefault(&c.ImportQueueSize, 100)
	setDefault(&c.ImportBatchSize, 200)
	setDefault(&c.ImportRetryDelay, 500*time.Millisecond)
	setDefault(&c.UploadDir, filepath.Join(os.TempDir(), "hr-uploads"))
	setDefault(&c.MaxUploadKB, 2048)
	setDefault(&c.ShutdownTimeout, 30*time.Second)
	setDefault(&c.HealthInterval, 10*time.Second)
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.Dispatcher {
	case DispatcherMemory:
	case DispatcherKafka:
		if len(c.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("KAFKA_BROKERS is required by the kafka dispatcher"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DISPATCHER %q", c.Dispatcher))
	}
	if c.EventsEnabled && len(c.KafkaBrokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required when EVENTS_ENABLED is set"))
	}
	if c.ImportBatchSize < 1 {
		errs = append(errs, errors.New("IMPORT_BATCH_SIZE must be positive"))
	}
	return errors.Join(errs...)
}

// Database returns the connection settings of the repository.
func (c *Config) Database() *db.Config {
	return &db.Config{
		Host:     c.DBHost,
		Port:     c.DBPort,
		User:     c.DBUser,
		Password: c.DBPassword,
		DBName:   c.DBName,
		SSLMode:  c.DBSSLMode,
	}
}
