package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port        int               `yaml:"port"`
		CORSOrigins []string          `yaml:"corsOrigins"`
		APIKeys     map[string]string `yaml:"apiKeys"` // tenant -> key
		MaxUploadMB int               `yaml:"maxUploadMB"`
		RateLimit   struct {
			Capacity        int `yaml:"capacity"`
			RefillPerSecond int `yaml:"refillPerSecond"`
		} `yaml:"rateLimit"`
	} `yaml:"server"`

	Storage struct {
		Driver string `yaml:"driver"` // memory | sqlite | mysql | postgres
	} `yaml:"storage"`

	Database struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
	} `yaml:"database"`

	Postgres struct {
		DSN string `yaml:"dsn"`
	} `yaml:"postgres"`

	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`

	Minio struct {
		Enabled    bool   `yaml:"enabled"`
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Classifier struct {
		URL            string `yaml:"url"`
		TimeoutSeconds int    `yaml:"timeoutSeconds"`
	} `yaml:"classifier"`

	LLM struct {
		APIKey         string `yaml:"apiKey"`
		BaseURL        string `yaml:"baseURL"`
		Model          string `yaml:"model"`
		MaxTokens      int    `yaml:"maxTokens"`
		TimeoutSeconds int    `yaml:"timeoutSeconds"`
	} `yaml:"llm"`

	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
}

// Load baca file config.yaml. File yang tidak ada berarti pakai default.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// secrets selalu boleh di-override dari environment
func (c *Config) applyEnv() {
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	} else if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		c.Minio.AccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		c.Minio.SecretKey = v
	}
	if v := os.Getenv("CLASSIFIER_URL"); v != "" {
		c.Classifier.URL = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = 10
	}
	if c.Server.RateLimit.Capacity <= 0 {
		c.Server.RateLimit.Capacity = 60
	}
	if c.Server.RateLimit.RefillPerSecond <= 0 {
		c.Server.RateLimit.RefillPerSecond = 1
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.SQLite.Path == "" {
		c.SQLite.Path = "cyberveli.db"
	}
	if c.Minio.BucketName == "" {
		c.Minio.BucketName = "cyberveli-uploads"
	}
	if c.Classifier.URL == "" {
		c.Classifier.URL = "http://localhost:8000/predict"
	}
	if c.Classifier.TimeoutSeconds <= 0 {
		c.Classifier.TimeoutSeconds = 60
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://openrouter.ai/api/v1"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "openai/gpt-4o-mini"
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 1200
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = 60
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks the combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "sqlite":
	case "mysql":
		if c.Database.Host == "" || c.Database.Name == "" {
			return fmt.Errorf("config: mysql driver needs database.host and database.name")
		}
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("config: postgres driver needs postgres.dsn or DATABASE_URL")
		}
	default:
		return fmt.Errorf("config: unknown storage.driver %q", c.Storage.Driver)
	}
	if c.Minio.Enabled && c.Minio.Endpoint == "" {
		return fmt.Errorf("config: minio.enabled needs minio.endpoint")
	}
	return nil
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

func (c *Config) ClassifierTimeout() time.Duration {
	return time.Duration(c.Classifier.TimeoutSeconds) * time.Second
}

func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// MaxUploadBytes is the upload cap in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}
