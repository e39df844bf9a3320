package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/docker/go-units"
	"github.com/pingcap/errors"
	"github.com/pingcap/tidb/br/pkg/storage"
)

const defaultPageSizeBytes = units.MiB

type S3Config struct {
	Region          string `toml:"region,omitempty"`
	AccessKey       string `toml:"access_key,omitempty"`
	SecretAccessKey string `toml:"secret_key,omitempty"`
	Provider        string `toml:"provider,omitempty"`
	Endpoint        string `toml:"endpoint,omitempty"`
	Force           bool   `toml:"force,omitempty"`
	RoleArn         string `toml:"role_arn,omitempty"`
}

type GCSConfig struct {
	Credential string `toml:"credential,omitempty"`
}

type ParquetConfig struct {
	PageSize    string `toml:"page_size"`
	Compression string `toml:"compression"`

	// PageSizeBytes is derived at runtime and not read from config.
	PageSizeBytes int64 `toml:"-"`
}

type CSVConfig struct {
	Separator string `toml:"separator,omitempty"`
	EndLine   string `toml:"endline,omitempty"`
}

type Config struct {
	Parquet   ParquetConfig `toml:"parquet"`
	CSV       CSVConfig     `toml:"csv"`
	S3Config  *S3Config     `toml:"s3,omitempty"`
	GCSConfig *GCSConfig    `toml:"gcs,omitempty"`
}

// Default returns a Config with the built-in defaults: snappy-compressed
// parquet with 1MiB pages and comma-separated CSV.
func Default() *Config {
	return &Config{
		Parquet: ParquetConfig{
			Compression:   "snappy",
			PageSizeBytes: defaultPageSizeBytes,
		},
		CSV: CSVConfig{Separator: ","},
	}
}

// Load reads a TOML config file and resolves derived values. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Annotatef(err, "parse config %s", path)
	}
	if err := Normalize(cfg); err != nil {
		return nil, errors.Trace(err)
	}
	if err := Validate(cfg); err != nil {
		return nil, errors.Trace(err)
	}
	return cfg, nil
}

// Normalize resolves derived config values after loading.
func Normalize(cfg *Config) error {
	if cfg.Parquet.Compression == "" {
		cfg.Parquet.Compression = "snappy"
	}
	if cfg.CSV.Separator == "" {
		cfg.CSV.Separator = ","
	}

	pageBytes, err := cfg.Parquet.resolvePageSizeBytes()
	if err != nil {
		return err
	}
	cfg.Parquet.PageSizeBytes = pageBytes
	return nil
}

// Validate returns a user-friendly error if the configuration is invalid.
func Validate(cfg *Config) error {
	var errs []string

	switch strings.ToLower(cfg.Parquet.Compression) {
	case "snappy", "gzip", "zstd", "uncompressed":
	default:
		errs = append(errs, "parquet.compression must be snappy, gzip, zstd or uncompressed")
	}
	if cfg.Parquet.PageSizeBytes <= 0 {
		errs = append(errs, "parquet.page_size must be greater than 0")
	}
	if len(cfg.CSV.Separator) != 1 {
		errs = append(errs, "csv.separator must be a single character")
	}
	if cfg.S3Config != nil && cfg.GCSConfig != nil {
		errs = append(errs, "only one of [s3] or [gcs] can be configured")
	}

	if len(errs) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("invalid config:\n")
	for _, err := range errs {
		sb.WriteString(" - ")
		sb.WriteString(err)
		sb.WriteString("\n")
	}
	return fmt.Errorf("%s", strings.TrimRight(sb.String(), "\n"))
}

func (c *ParquetConfig) resolvePageSizeBytes() (int64, error) {
	if c.PageSize != "" {
		bytes, err := units.FromHumanSize(c.PageSize)
		if err != nil {
			return 0, fmt.Errorf("invalid page_size %q: %w", c.PageSize, err)
		}
		if bytes <= 0 {
			return 0, fmt.Errorf("invalid page_size %q: must be greater than 0", c.PageSize)
		}
		return bytes, nil
	}
	return defaultPageSizeBytes, nil
}

// GetStore initializes and returns an ExternalStorage instance rooted at path
// based on the provided configuration.
func GetStore(ctx context.Context, c *Config, path string) (storage.ExternalStorage, error) {
	var op *storage.BackendOptions
	if c.S3Config != nil {
		op = &storage.BackendOptions{S3: storage.S3BackendOptions{
			Region:          c.S3Config.Region,
			AccessKey:       c.S3Config.AccessKey,
			SecretAccessKey: c.S3Config.SecretAccessKey,
			Provider:        c.S3Config.Provider,
			Endpoint:        c.S3Config.Endpoint,
			RoleARN:         c.S3Config.RoleArn,
		}}
	} else if c.GCSConfig != nil {
		op = &storage.BackendOptions{GCS: storage.GCSBackendOptions{
			CredentialsFile: c.GCSConfig.Credential,
		}}
	}

	s, err := storage.ParseBackend(path, op)
	if err != nil {
		return nil, errors.Trace(err)
	}

	return storage.NewWithDefaultOpt(ctx, s)
}
