package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"

	"carbonadvisor/ml"
	"carbonadvisor/monitoring"
)

type Config struct {
	Http struct {
		Port           int           `yaml:"port"`
		Timeout        time.Duration `yaml:"timeout"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
		MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	} `yaml:"http"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Log monitoring.LogConfig `yaml:"log"`
	ML  struct {
		SchemaPath     string `yaml:"schema_path"`
		ModelType      string `yaml:"model_type"`
		ModelPath      string `yaml:"model_path"`
		CacheSize      int    `yaml:"cache_size"`
		StrictSchema   bool   `yaml:"strict_schema"`
		WatchArtifacts bool   `yaml:"watch_artifacts"`
	} `yaml:"ml"`
}

// Default returns the configuration used for any field the file leaves out.
func Default() Config {
	var cfg Config
	cfg.Http.Port = 8080
	cfg.Http.Timeout = 30 * time.Second
	cfg.Http.AllowedOrigins = []string{"*"}
	cfg.Http.MaxBodyBytes = 64 << 10
	cfg.Database.Path = "./data/estimates.db"
	cfg.Log = monitoring.LogConfig{
		Level:      "info",
		Format:     "json",
		MaxSizeMB:  50,
		MaxBackups: 3,
		MaxAgeDays: 14,
	}
	cfg.ML.SchemaPath = "./models/schema.json"
	cfg.ML.ModelType = ml.ModelTypeLinear
	cfg.ML.ModelPath = "./models/emission_model.json"
	cfg.ML.CacheSize = 1024
	return cfg
}

// Load decodes a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config := Default()
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Resolve finds the config file, looking in the parent directory when the
// binary is run from cmd/. Relative artifact and database paths are rebased
// onto the directory the file was found in.
func Resolve(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) && !filepath.IsAbs(path) {
		if _, perr := os.Stat(filepath.Join("..", path)); perr == nil {
			path = filepath.Join("..", path)
		}
	}
	config, err := Load(path)
	if err != nil {
		return nil, err
	}
	base := filepath.Dir(path)
	config.Database.Path = rebase(base, config.Database.Path)
	config.ML.SchemaPath = rebase(base, config.ML.SchemaPath)
	config.ML.ModelPath = rebase(base, config.ML.ModelPath)
	if config.Log.File != "" {
		config.Log.File = rebase(base, config.Log.File)
	}
	return config, nil
}

func (c *Config) Validate() error {
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return fmt.Errorf("http.port out of range: %d", c.Http.Port)
	}
	if c.ML.SchemaPath == "" {
		return errors.New("ml.schema_path is required")
	}
	if c.ML.ModelPath == "" {
		return errors.New("ml.model_path is required")
	}
	known := false
	for _, t := range ml.ModelTypes() {
		if t == c.ML.ModelType {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("ml.model_type %q is not supported", c.ML.ModelType)
	}
	if c.ML.CacheSize < 0 {
		return errors.New("ml.cache_size must not be negative")
	}
	return nil
}

func rebase(base, path string) string {
	if path == "" || filepath.IsAbs(path) || path == ":memory:" {
		return path
	}
	return filepath.Join(base, path)
}
