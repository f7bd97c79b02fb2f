package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/bousai-map/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DataFile        string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	AllowedOrigins  []string

	// Source column labels.
	Columns domain.ColumnMap

	// Kafka export configuration.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	// ExportSchedule is a cron spec for cmd/export; empty runs once.
	ExportSchedule string
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory is read first; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	columns, err := loadColumns()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DataFile:        sharedcfg.EnvOrDefault("DATA_FILE", "data/raw/bousai_data.xlsx"),
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		AllowedOrigins:  splitList(sharedcfg.EnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
		Columns:         columns,
		KafkaEnabled:    os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:    sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:      sharedcfg.EnvOrDefault("KAFKA_TOPIC", "shelter-features"),
		ExportSchedule:  strings.TrimSpace(os.Getenv("EXPORT_SCHEDULE")),
	}

	if cfg.DataFile == "" {
		return nil, errors.New("DATA_FILE is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if cfg.ExportSchedule != "" {
		if _, err := cron.ParseStandard(cfg.ExportSchedule); err != nil {
			return nil, fmt.Errorf("invalid EXPORT_SCHEDULE: %w", err)
		}
	}

	return cfg, nil
}

// loadColumns resolves the column labels: defaults, then COLUMNS_FILE, then
// the individual COLUMN_* variables.
func loadColumns() (domain.ColumnMap, error) {
	cols := domain.DefaultColumns()

	if path := os.Getenv("COLUMNS_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cols, fmt.Errorf("read COLUMNS_FILE: %w", err)
		}
		var fromFile domain.ColumnMap
		if err := yaml.Unmarshal(data, &fromFile); err != nil {
			return cols, fmt.Errorf("parse COLUMNS_FILE: %w", err)
		}
		overlay(&cols, fromFile)
	}

	overlay(&cols, domain.ColumnMap{
		Name:      os.Getenv("COLUMN_NAME"),
		Latitude:  os.Getenv("COLUMN_LATITUDE"),
		Longitude: os.Getenv("COLUMN_LONGITUDE"),
		Capacity:  os.Getenv("COLUMN_CAPACITY"),
		District:  os.Getenv("COLUMN_DISTRICT"),
	})

	if cols.Latitude == cols.Longitude {
		return cols, errors.New("COLUMN_LATITUDE and COLUMN_LONGITUDE must differ")
	}
	return cols, nil
}

// overlay copies the non-blank labels of src onto dst.
func overlay(dst *domain.ColumnMap, src domain.ColumnMap) {
	set := func(field *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*field = v
		}
	}
	set(&dst.Name, src.Name)
	set(&dst.Latitude, src.Latitude)
	set(&dst.Longitude, src.Longitude)
	set(&dst.Capacity, src.Capacity)
	set(&dst.District, src.District)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
