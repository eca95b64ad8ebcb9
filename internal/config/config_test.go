package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func clearEnv(t *testing.T) {
	for _, k := range []string{"LLM_API_KEY", "OPENROUTER_API_KEY", "DATABASE_PASSWORD", "DATABASE_URL", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY", "CLASSIFIER_URL"} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.LLM.BaseURL)
	assert.Equal(t, 60*time.Second, cfg.ClassifierTimeout())
	assert.EqualValues(t, 10<<20, cfg.MaxUploadBytes())
	assert.Empty(t, cfg.LLM.APIKey)
}

func TestLoad_FileAndEnv(t *testing.T) {
	clearEnv(t)
	p := writeConfig(t, `
server:
  port: 9090
  apiKeys:
    acme: secret
storage:
  driver: MySQL
database:
  host: db
  user: veli
  password: from-file
  name: cyberveli
classifier:
  url: http://classifier:8000/predict
llm:
  model: openai/gpt-4o
`)
	t.Setenv("DATABASE_PASSWORD", "from-env")
	t.Setenv("OPENROUTER_API_KEY", "sk-or")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "mysql", cfg.Storage.Driver)
	assert.Equal(t, "secret", cfg.Server.APIKeys["acme"])
	assert.Equal(t, "from-env", cfg.Database.Password)
	assert.Equal(t, "sk-or", cfg.LLM.APIKey)
	assert.Equal(t, "openai/gpt-4o", cfg.LLM.Model)
	assert.Equal(t, "veli:from-env@tcp(db:3306)/cyberveli?parseTime=true&charset=utf8mb4&loc=UTC", cfg.MySQLDSN())
}

func TestLoad_LLMKeyPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_API_KEY", "primary")
	t.Setenv("OPENROUTER_API_KEY", "secondary")
	cfg, err := Load(writeConfig(t, "llm:\n  apiKey: file\n"))
	require.NoError(t, err)
	assert.Equal(t, "primary", cfg.LLM.APIKey)
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)
	cases := map[string]string{
		"unknown driver":    "storage:\n  driver: mongo\n",
		"postgres no dsn":   "storage:\n  driver: postgres\n",
		"mysql no host":     "storage:\n  driver: mysql\n",
		"minio no endpoint": "minio:\n  enabled: true\n",
		"bad yaml":          "server: [",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}
