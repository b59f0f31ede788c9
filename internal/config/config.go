// Package config provides YAML-based configuration management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Storage and catalog backends.
const (
	BackendLocal  = "local"
	BackendMinio  = "minio"
	BackendMemory = "memory"
	BackendDuckDB = "duckdb"
)

// AppConfig represents the root configuration document
type AppConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Advanced AdvancedConfig `yaml:"advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `yaml:"port"`
	BindAddress  string `yaml:"bind_address"`
	EnableCORS   bool   `yaml:"enable_cors"`
	AllowOrigins string `yaml:"allow_origins"`
	ReadTimeout  int    `yaml:"read_timeout_seconds"`
	WriteTimeout int    `yaml:"write_timeout_seconds"`
	IdleTimeout  int    `yaml:"idle_timeout_seconds"`
	BodyLimit    string `yaml:"body_limit"`
}

// StorageConfig contains raw file storage settings
type StorageConfig struct {
	Backend          string      `yaml:"backend"`
	DataDirectory    string      `yaml:"data_directory"`
	UploadsDirectory string      `yaml:"uploads_directory"`
	ReportsDirectory string      `yaml:"reports_directory"`
	MaxUploadSize    string      `yaml:"max_upload_size"`
	Minio            MinioConfig `yaml:"minio"`
}

// MinioConfig contains S3-compatible object store settings
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// CatalogConfig selects where upload and analysis records live
type CatalogConfig struct {
	Backend      string `yaml:"backend"`
	DuckDBPath   string `yaml:"duckdb_path"`
	DuckDBMemory string `yaml:"duckdb_memory_limit"`
}

// AnalysisConfig contains analysis tuning
type AnalysisConfig struct {
	AnomalyThreshold   float64 `yaml:"anomaly_threshold"`
	MaxFeaturesDisplay int     `yaml:"max_features_display"`
	SampleRows         int     `yaml:"validation_sample_rows"`
}

// AdvancedConfig contains logging options
type AdvancedConfig struct {
	LogLevel             string `yaml:"log_level"`
	EnableRequestLogging bool   `yaml:"enable_request_logging"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8000,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 60,
			IdleTimeout:  120,
			BodyLimit:    "60MB",
		},
		Storage: StorageConfig{
			Backend:          BackendLocal,
			DataDirectory:    "./data",
			UploadsDirectory: "./data/uploads",
			ReportsDirectory: "./data/reports",
			MaxUploadSize:    "50MiB",
			Minio: MinioConfig{
				Region: "us-east-1",
				Bucket: "mlexplainer-uploads",
			},
		},
		Catalog: CatalogConfig{
			Backend:      BackendMemory,
			DuckDBPath:   "./data/catalog.duckdb",
			DuckDBMemory: "512MB",
		},
		Analysis: AnalysisConfig{
			AnomalyThreshold:   3.0,
			MaxFeaturesDisplay: 10,
			SampleRows:         5,
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			EnableRequestLogging: true,
		},
	}
}

// LoadConfig loads configuration from a YAML file, writing the defaults
// when the file does not exist yet.
func LoadConfig(configPath string) (*AppConfig, error) {
	config := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	config.applyEnvironmentOverrides()
	config.resolvePaths(filepath.Dir(configPath))

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save writes the configuration as YAML
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# ML Results Explainer configuration\n# This file is auto-generated on first run\n\n")
	content := append(header, output...)

	if dir := filepath.Dir(configPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	// DATA_DIR moves every directory that still sits under the old data directory.
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		old := c.Storage.DataDirectory
		c.Storage.DataDirectory = dataDir
		c.Storage.UploadsDirectory = rebase(c.Storage.UploadsDirectory, old, dataDir)
		c.Storage.ReportsDirectory = rebase(c.Storage.ReportsDirectory, old, dataDir)
		c.Catalog.DuckDBPath = rebase(c.Catalog.DuckDBPath, old, dataDir)
	}

	if size := os.Getenv("MAX_UPLOAD_SIZE"); size != "" {
		c.Storage.MaxUploadSize = size
	}
	if v := os.Getenv("ANOMALY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Analysis.AnomalyThreshold = f
		}
	}
	if v := os.Getenv("MAX_FEATURES_DISPLAY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Analysis.MaxFeaturesDisplay = n
		}
	}
	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("CATALOG_BACKEND"); v != "" {
		c.Catalog.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Advanced.LogLevel = v
	}

	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		c.Storage.Minio.Endpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		c.Storage.Minio.AccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		c.Storage.Minio.SecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		c.Storage.Minio.Bucket = v
	}
}

func rebase(path, oldRoot, newRoot string) string {
	rel, err := filepath.Rel(filepath.Clean(oldRoot), filepath.Clean(path))
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.Join(newRoot, rel)
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	for _, p := range []*string{
		&c.Storage.DataDirectory,
		&c.Storage.UploadsDirectory,
		&c.Storage.ReportsDirectory,
		&c.Catalog.DuckDBPath,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(configDir, *p)
		}
	}
}

// Validate checks values that would otherwise fail late at runtime.
func (c *AppConfig) Validate() error {
	if _, err := humanize.ParseBytes(c.Storage.MaxUploadSize); err != nil {
		return fmt.Errorf("invalid max_upload_size %q: %w", c.Storage.MaxUploadSize, err)
	}
	if _, err := humanize.ParseBytes(c.Server.BodyLimit); err != nil {
		return fmt.Errorf("invalid body_limit %q: %w", c.Server.BodyLimit, err)
	}
	switch c.Storage.Backend {
	case BackendLocal:
	case BackendMinio:
		if c.Storage.Minio.Endpoint == "" || c.Storage.Minio.Bucket == "" {
			return fmt.Errorf("minio storage requires endpoint and bucket")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Catalog.Backend {
	case BackendMemory, BackendDuckDB:
	default:
		return fmt.Errorf("unknown catalog backend %q", c.Catalog.Backend)
	}
	if c.Analysis.AnomalyThreshold <= 0 {
		return fmt.Errorf("anomaly_threshold must be positive, got %v", c.Analysis.AnomalyThreshold)
	}
	if c.Analysis.MaxFeaturesDisplay <= 0 {
		return fmt.Errorf("max_features_display must be positive, got %d", c.Analysis.MaxFeaturesDisplay)
	}
	if c.Analysis.SampleRows <= 0 {
		return fmt.Errorf("validation_sample_rows must be positive, got %d", c.Analysis.SampleRows)
	}
	return nil
}

// GetMaxUploadSize returns the upload size limit in bytes
func (c *AppConfig) GetMaxUploadSize() int64 {
	n, err := humanize.ParseBytes(c.Storage.MaxUploadSize)
	if err != nil {
		return 50 * 1024 * 1024
	}
	return int64(n)
}

// GetBodyLimit returns the request body limit in bytes
func (c *AppConfig) GetBodyLimit() int64 {
	n, err := humanize.ParseBytes(c.Server.BodyLimit)
	if err != nil {
		return c.GetMaxUploadSize()
	}
	return int64(n)
}

// GetUploadDir returns the absolute uploads directory path
func (c *AppConfig) GetUploadDir() string {
	return c.Storage.UploadsDirectory
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDirectory,
		c.Storage.ReportsDirectory,
	}
	if c.Storage.Backend == BackendLocal {
		dirs = append(dirs, c.Storage.UploadsDirectory)
	}
	if c.Catalog.Backend == BackendDuckDB {
		dirs = append(dirs, filepath.Dir(c.Catalog.DuckDBPath))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
