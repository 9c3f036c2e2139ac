package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config for TOML, YAML and JSON config files. Keys are
// the environment variable names in lower snake case; absent keys leave the
// environment value untouched.
type fileConfig struct {
	Port               string `json:"port" yaml:"port" toml:"port"`
	RateLimitPerMinute int    `json:"rate_limit_per_minute" yaml:"rate_limit_per_minute" toml:"rate_limit_per_minute"`
	LogLevel           string `json:"log_level" yaml:"log_level" toml:"log_level"`

	DataBackend  string `json:"data_backend" yaml:"data_backend" toml:"data_backend"`
	DataFile     string `json:"data_file" yaml:"data_file" toml:"data_file"`
	SQLiteDBPath string `json:"sqlite_db_path" yaml:"sqlite_db_path" toml:"sqlite_db_path"`
	DatabaseURL  string `json:"database_url" yaml:"database_url" toml:"database_url"`

	GoogleSpreadsheetID      string `json:"google_spreadsheet_id" yaml:"google_spreadsheet_id" toml:"google_spreadsheet_id"`
	GoogleSheetRange         string `json:"google_sheet_name" yaml:"google_sheet_name" toml:"google_sheet_name"`
	GoogleServiceAccountFile string `json:"google_service_account_file" yaml:"google_service_account_file" toml:"google_service_account_file"`

	S3Bucket   string `json:"s3_bucket" yaml:"s3_bucket" toml:"s3_bucket"`
	S3Key      string `json:"s3_key" yaml:"s3_key" toml:"s3_key"`
	AWSRegion  string `json:"aws_region" yaml:"aws_region" toml:"aws_region"`
	AWSProfile string `json:"aws_profile" yaml:"aws_profile" toml:"aws_profile"`

	AMQPURL      string `json:"amqp_url" yaml:"amqp_url" toml:"amqp_url"`
	AMQPExchange string `json:"amqp_exchange" yaml:"amqp_exchange" toml:"amqp_exchange"`
	AMQPQueue    string `json:"amqp_queue" yaml:"amqp_queue" toml:"amqp_queue"`

	ZeroACVPolicy string `json:"zero_acv_policy" yaml:"zero_acv_policy" toml:"zero_acv_policy"`
	CacheTTL      string `json:"cache_ttl" yaml:"cache_ttl" toml:"cache_ttl"`
	CacheSize     int    `json:"cache_size" yaml:"cache_size" toml:"cache_size"`
}

// ApplyFile overlays a TOML, YAML or JSON config file on top of c.
func (c *Config) ApplyFile(filePath string) error {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("error accessing config file: %w", err)
	}
	if fileInfo.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", filePath)
	}

	fileData, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".toml":
		if err := toml.Unmarshal(fileData, &fc); err != nil {
			return fmt.Errorf("error parsing TOML file: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(fileData, &fc); err != nil {
			return fmt.Errorf("error parsing YAML file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(fileData, &fc); err != nil {
			return fmt.Errorf("error parsing JSON file: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}

	return c.apply(fc)
}

func (c *Config) apply(fc fileConfig) error {
	setString(&c.Port, fc.Port)
	setInt(&c.RateLimitPerMinute, fc.RateLimitPerMinute)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.DataBackend, fc.DataBackend)
	setString(&c.DataFile, fc.DataFile)
	setString(&c.SQLiteDBPath, fc.SQLiteDBPath)
	setString(&c.DatabaseURL, fc.DatabaseURL)
	setString(&c.GoogleSpreadsheetID, fc.GoogleSpreadsheetID)
	setString(&c.GoogleSheetRange, fc.GoogleSheetRange)
	setString(&c.GoogleServiceAccountFile, fc.GoogleServiceAccountFile)
	setString(&c.S3Bucket, fc.S3Bucket)
	setString(&c.S3Key, fc.S3Key)
	setString(&c.AWSRegion, fc.AWSRegion)
	setString(&c.AWSProfile, fc.AWSProfile)
	setString(&c.AMQPURL, fc.AMQPURL)
	setString(&c.AMQPExchange, fc.AMQPExchange)
	setString(&c.AMQPQueue, fc.AMQPQueue)
	setString(&c.ZeroACVPolicy, fc.ZeroACVPolicy)
	setInt(&c.CacheSize, fc.CacheSize)

	if fc.CacheTTL != "" {
		d, err := time.ParseDuration(fc.CacheTTL)
		if err != nil {
			return fmt.Errorf("invalid cache_ttl %q: %w", fc.CacheTTL, err)
		}
		c.CacheTTL = d
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
