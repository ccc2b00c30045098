package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/roach88/storefront/internal/pricing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// isolate points HOME at an empty dir and clears overrides.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{EnvAPIURL, EnvSessionDB, EnvTimeout, EnvLogLevel} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultBaseURL, cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Search.Debounce)
	assert.True(t, cfg.Cart.ClearRemoteOnCheckout)
	assert.False(t, cfg.Cart.RefetchOnFailure)
	assert.Equal(t, pricing.DefaultPolicy(), cfg.Policy())
	assert.Equal(t, language.Und, cfg.Language())
}

func TestLoad_NoFile(t *testing.T) {
	isolate(t)

	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, cfg.API.BaseURL)
	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, ".storefront", "session.db"), cfg.Session.Path)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), "")
	assert.Error(t, err)
}

func TestLoad_YAML(t *testing.T) {
	isolate(t)
	path := writeFile(t, "config.yaml", `
api:
  base_url: https://shop.example/api
  timeout: 3s
search:
  debounce: 250ms
catalog:
  locale: sv
session:
  path: /tmp/shop/session.db
cart:
  refetch_on_failure: true
  clear_remote_on_checkout: false
pricing:
  tax_rate: 0.2
  free_shipping_over: 100
  flat_shipping: 4.5
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "https://shop.example/api", cfg.API.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.API.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Search.Debounce)
	assert.Equal(t, language.Swedish, cfg.Language())
	assert.Equal(t, "/tmp/shop/session.db", cfg.Session.Path)
	assert.True(t, cfg.Cart.RefetchOnFailure)
	assert.False(t, cfg.Cart.ClearRemoteOnCheckout)
	assert.Equal(t, pricing.Policy{TaxRate: 0.2, FreeShippingOverCents: 10000, FlatShippingCents: 450}, cfg.Policy())
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_PartialYAMLKeepsDefaults(t *testing.T) {
	isolate(t)
	path := writeFile(t, "config.yaml", "api:\n  timeout: 2s\n")

	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.API.Timeout)
	assert.Equal(t, DefaultBaseURL, cfg.API.BaseURL)
	assert.Equal(t, pricing.DefaultPolicy(), cfg.Policy())
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	path := writeFile(t, "config.yaml", "api:\n  base_url: https://file.example/api\n")
	t.Setenv(EnvAPIURL, "http://env.example:8080/api/")
	t.Setenv(EnvTimeout, "750ms")
	t.Setenv(EnvSessionDB, "/var/lib/shop.db")

	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "http://env.example:8080/api", cfg.API.BaseURL)
	assert.Equal(t, 750*time.Millisecond, cfg.API.Timeout)
	assert.Equal(t, "/var/lib/shop.db", cfg.Session.Path)
}

func TestLoad_DotEnv(t *testing.T) {
	isolate(t)
	envFile := writeFile(t, ".env", EnvAPIURL+"=http://dotenv.example/api\n"+EnvLogLevel+"=WARN\n")

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, "http://dotenv.example/api", cfg.API.BaseURL)
	assert.Equal(t, "warn", cfg.Logging.Level)

	// The process environment wins over the file.
	t.Setenv(EnvAPIURL, "http://process.example/api")
	cfg, err = Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, "http://process.example/api", cfg.API.BaseURL)

	_, err = Load("", filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "bad url", yaml: "api:\n  base_url: localhost:5000\n"},
		{name: "zero timeout", yaml: "api:\n  timeout: 0s\n"},
		{name: "tax over one", yaml: "pricing:\n  tax_rate: 1.5\n"},
		{name: "negative shipping", yaml: "pricing:\n  flat_shipping: -1\n"},
		{name: "log level", yaml: "logging:\n  level: loud\n"},
		{name: "log format", yaml: "logging:\n  format: xml\n"},
		{name: "locale", yaml: "catalog:\n  locale: \"!!\"\n"},
		{name: "bad yaml", yaml: "api: [\n"},
		{name: "bad env timeout", yaml: "{}\n", env: map[string]string{EnvTimeout: "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeFile(t, "config.yaml", tt.yaml), "")
			assert.Error(t, err)
		})
	}
}

func TestLogging_NewLogger(t *testing.T) {
	var buf bytes.Buffer
	Logging{Level: "warn", Format: "json"}.NewLogger(&buf, false).Info("hidden")
	assert.Empty(t, buf.String())

	Logging{Level: "warn", Format: "json"}.NewLogger(&buf, true).Debug("shown", "gen", 3)
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"gen":3`)

	buf.Reset()
	Logging{Level: "info", Format: "text"}.NewLogger(&buf, false).Info("hello", "flow", "f-1")
	assert.Contains(t, buf.String(), "msg=hello flow=f-1")
}
