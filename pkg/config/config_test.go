package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "collector.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
service_name = "compustat-collector"

[database]
driver = "mysql"
dsn = "user:pass@tcp(localhost:3306)/compustat"

[collector]
qlib_dir = "/tmp/qlib"
request_retry = 2
retry_sleep = 1

[cache]
backend = "tiered"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "compustat-collector", cfg.ServiceName)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "/tmp/qlib", cfg.Collector.QlibDir)
	assert.Equal(t, 2, cfg.Collector.RequestRetry)
	assert.Equal(t, 1, cfg.Collector.RetrySleep)
	assert.Equal(t, "day", cfg.Collector.Freq)
	assert.Equal(t, "tiered", cfg.Cache.Backend)
	assert.Equal(t, 8080, cfg.HTTP.Port)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, `
[database]
dsn = "postgres://localhost/compustat"
`)
	t.Setenv("COLLECTOR_COLLECTOR_REQUEST_RETRY", "7")
	t.Setenv("COLLECTOR_DATABASE_DRIVER", "clickhouse")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Collector.RequestRetry)
	assert.Equal(t, "clickhouse", cfg.Database.Driver)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("COLLECTOR_DATABASE_DSN", "postgres://localhost/compustat")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5, cfg.Collector.RequestRetry)
	assert.Equal(t, 3, cfg.Collector.RetrySleep)
	assert.Equal(t, "memory", cfg.Cache.Backend)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing dsn", `service_name = "x"`},
		{"bad driver", "[database]\ndriver = \"oracle\"\ndsn = \"x\""},
		{"zero retry", "[database]\ndsn = \"x\"\n[collector]\nrequest_retry = 0"},
		{"unsupported freq", "[database]\ndsn = \"x\"\n[collector]\nfreq = \"1min\""},
		{"topic without brokers", "[database]\ndsn = \"x\"\n[kafka]\ntopic = \"constituents\""},
		{"rate limit without qps", "[database]\ndsn = \"x\"\n[rate_limit]\nenabled = true\nqps = 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
