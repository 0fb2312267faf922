// Package config loads command defaults from the environment.
//
// An optional .env file is read first; variables already set in the
// process environment take precedence over it. Every field has a default,
// so an empty environment yields the stock conversion settings.
package config

import (
	"io/fs"
	"strconv"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/FocuswithJustin/flatbible/core/errors"
)

// DefaultEnvFile is read by Load when no files are given.
const DefaultEnvFile = ".env"

// Config holds conversion defaults.
type Config struct {
	Input     string `env:"INPUT" envDefault:"data/input_bible.json"`
	Output    string `env:"OUTPUT" envDefault:"data/output_bible.json"`
	Name      string `env:"NAME" envDefault:"King James Version"`
	Minify    bool   `env:"MINIFY" envDefault:"false"`
	SQLite    string `env:"SQLITE"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	S3 S3Config `envPrefix:"S3_"`
}

// S3Config holds object storage settings for publishing.
type S3Config struct {
	Region    string `env:"REGION" envDefault:"us-east-1"`
	Endpoint  string `env:"ENDPOINT"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	PathStyle bool   `env:"PATH_STYLE" envDefault:"false"`
}

// Prefix is prepended to every variable name.
const Prefix = "FLATBIBLE_"

// Load reads the given .env files (DefaultEnvFile when none are given),
// ignoring files that do not exist, and parses FLATBIBLE_* variables.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{DefaultEnvFile}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, &errors.ParseError{Format: "dotenv", Path: f, Message: err.Error(), Err: err}
		}
	}

	cfg, err := env.ParseAsWithOptions[Config](env.Options{Prefix: Prefix})
	if err != nil {
		return nil, &errors.ValidationError{Field: "environment", Message: err.Error(), Err: err}
	}
	return &cfg, nil
}

// Vars returns the settings as interpolation variables for the command
// line parser.
func (c *Config) Vars() map[string]string {
	return map[string]string{
		"input":         c.Input,
		"output":        c.Output,
		"name":          c.Name,
		"minify":        strconv.FormatBool(c.Minify),
		"sqlite":        c.SQLite,
		"log_level":     c.LogLevel,
		"log_format":    c.LogFormat,
		"s3_region":     c.S3.Region,
		"s3_endpoint":   c.S3.Endpoint,
		"s3_path_style": strconv.FormatBool(c.S3.PathStyle),
	}
}
