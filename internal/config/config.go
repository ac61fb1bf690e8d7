// Package config handles loading and parsing application configuration.
// It supports two sources (in priority order):
//  1. An environment variable:  CONFIG_PATH=/path/to/config.yaml
//  2. A command-line flag:      --config=/path/to/config.yaml
//
// The parsed values are returned as a *Config pointer so the struct is
// shared by reference rather than copied everywhere.
package config

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root configuration structure. Every field maps to a key
// in the YAML file AND can be overridden by the corresponding environment
// variable (env:"...").
//
// env-required:"true" means the app refuses to start if that value is
// missing; better to crash at boot than to silently use a wrong default.
type Config struct {
	// Env controls log format and verbosity.
	// Valid values: "dev", "staging", "prod"
	Env string `yaml:"env" env:"ENV" env-default:"dev"`

	// DataDir is the directory holding every entity snapshot file
	// (courses.csv, teachers.csv, students.csv, payments.csv,
	// attendance.csv, users.csv). Each file is owned exclusively by its
	// store; no other process is expected to write them.
	DataDir string `yaml:"data_dir" env:"DATA_DIR" env-required:"true"`

	// Report configures the report worker pool and output locations.
	Report Report `yaml:"report"`
}

// Report holds settings for report generation.
type Report struct {
	// Dir is where generated text reports land.
	Dir string `yaml:"dir" env:"REPORT_DIR" env-default:"reports"`

	// ArchivePath is the SQLite file snapshots are exported into for
	// downstream reporting readers.
	ArchivePath string `yaml:"archive_path" env:"REPORT_ARCHIVE_PATH" env-default:"reports/archive.db"`

	// Workers is the size of the fixed pool running report jobs.
	Workers int `yaml:"workers" env:"REPORT_WORKERS" env-default:"3"`

	// DrainTimeout bounds how long shutdown waits for in-flight report
	// jobs to finish.
	DrainTimeout time.Duration `yaml:"drain_timeout" env:"REPORT_DRAIN_TIMEOUT" env-default:"5s"`
}

// MustLoad reads, validates, and returns the application config.
//
// The name follows the Go "Must" convention: it fatals on failure, so if
// it returns, the config is guaranteed valid.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "Path to the configuration YAML file")
		flag.Parse()
		configPath = *flags
	}

	if configPath == "" {
		log.Fatal("config path is not set: use --config flag or CONFIG_PATH env var")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exist: %s", configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err.Error())
	}

	return &cfg
}
