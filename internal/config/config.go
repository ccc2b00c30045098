// Package config loads storefront settings.
//
// Precedence, lowest first: built-in defaults, the YAML file, a .env file,
// then the process environment. The merged result is checked against an
// embedded CUE schema before use.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/joho/godotenv"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/roach88/storefront/internal/engine"
	"github.com/roach88/storefront/internal/money"
	"github.com/roach88/storefront/internal/pricing"
)

//go:embed schema.cue
var schemaSource string

// Environment variables that override the file.
const (
	EnvAPIURL    = "STOREFRONT_API_URL"
	EnvSessionDB = "STOREFRONT_SESSION_DB"
	EnvTimeout   = "STOREFRONT_TIMEOUT"
	EnvLogLevel  = "STOREFRONT_LOG_LEVEL"
)

// DefaultBaseURL is the development server address.
const DefaultBaseURL = "http://localhost:5000/api"

// Config is the full settings tree. Durations are written in YAML as Go
// duration strings ("10s", "500ms").
type Config struct {
	API     API     `yaml:"api" json:"api"`
	Search  Search  `yaml:"search" json:"search"`
	Catalog Catalog `yaml:"catalog" json:"catalog"`
	Session Session `yaml:"session" json:"session"`
	Cart    Cart    `yaml:"cart" json:"cart"`
	Pricing Pricing `yaml:"pricing" json:"pricing"`
	Logging Logging `yaml:"logging" json:"logging"`
}

type API struct {
	BaseURL string        `yaml:"base_url" json:"base_url"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

type Search struct {
	Debounce time.Duration `yaml:"debounce" json:"debounce"`
}

type Catalog struct {
	// Locale is a BCP 47 tag used to collate titles and authors.
	Locale string `yaml:"locale" json:"locale"`
}

type Session struct {
	Path string `yaml:"path" json:"path"`
}

type Cart struct {
	RefetchOnFailure      bool `yaml:"refetch_on_failure" json:"refetch_on_failure"`
	ClearRemoteOnCheckout bool `yaml:"clear_remote_on_checkout" json:"clear_remote_on_checkout"`
}

// Pricing amounts are in dollars.
type Pricing struct {
	TaxRate          float64 `yaml:"tax_rate" json:"tax_rate"`
	FreeShippingOver float64 `yaml:"free_shipping_over" json:"free_shipping_over"`
	FlatShipping     float64 `yaml:"flat_shipping" json:"flat_shipping"`
}

type Logging struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Default returns the built-in settings.
func Default() Config {
	p := pricing.DefaultPolicy()
	return Config{
		API:     API{BaseURL: DefaultBaseURL, Timeout: 10 * time.Second},
		Search:  Search{Debounce: engine.DefaultDebounce},
		Catalog: Catalog{Locale: "und"},
		Session: Session{Path: filepath.Join("~", ".storefront", "session.db")},
		Cart:    Cart{ClearRemoteOnCheckout: true},
		Pricing: Pricing{
			TaxRate:          p.TaxRate,
			FreeShippingOver: float64(p.FreeShippingOverCents) / 100,
			FlatShipping:     float64(p.FlatShippingCents) / 100,
		},
		Logging: Logging{Level: "info", Format: "text"},
	}
}

// DefaultPath is ~/.storefront/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".storefront", "config.yaml")
	}
	return filepath.Join(home, ".storefront", "config.yaml")
}

// Load builds the configuration. An empty path reads DefaultPath when it
// exists; an explicit path must exist. envFile names a dotenv file whose
// values apply unless the process environment already sets them; a
// missing envFile is ignored.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if err := cfg.readFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}

	env, err := environ(envFile)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.applyEnv(env); err != nil {
		return Config{}, err
	}

	cfg.Session.Path = expandHome(cfg.Session.Path)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// environ merges the dotenv file under the process environment.
func environ(envFile string) (map[string]string, error) {
	env := map[string]string{}
	if envFile != "" {
		vals, err := godotenv.Read(envFile)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config: read %s: %w", envFile, err)
		default:
			env = vals
		}
	}
	for _, key := range []string{EnvAPIURL, EnvSessionDB, EnvTimeout, EnvLogLevel} {
		if v, ok := os.LookupEnv(key); ok {
			env[key] = v
		}
	}
	return env, nil
}

func (c *Config) applyEnv(env map[string]string) error {
	if v := env[EnvAPIURL]; v != "" {
		c.API.BaseURL = strings.TrimRight(v, "/")
	}
	if v := env[EnvSessionDB]; v != "" {
		c.Session.Path = v
	}
	if v := env[EnvTimeout]; v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvTimeout, err)
		}
		c.API.Timeout = d
	}
	if v := env[EnvLogLevel]; v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	return nil
}

// Validate checks the settings against the embedded schema and parses the
// locale tag.
func (c Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config: schema: %w", err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.Encode(c))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("config: invalid: %s", strings.TrimSpace(cueerrors.Details(err, nil)))
	}

	if _, err := language.Parse(c.Catalog.Locale); err != nil {
		return fmt.Errorf("config: catalog.locale %q: %w", c.Catalog.Locale, err)
	}
	return nil
}

// Policy returns the pricing policy in cents.
func (c Config) Policy() pricing.Policy {
	return pricing.Policy{
		TaxRate:               c.Pricing.TaxRate,
		FreeShippingOverCents: money.ToCents(c.Pricing.FreeShippingOver),
		FlatShippingCents:     money.ToCents(c.Pricing.FlatShipping),
	}
}

// Language returns the collation locale, or language.Und when unset.
func (c Config) Language() language.Tag {
	tag, err := language.Parse(c.Catalog.Locale)
	if err != nil {
		return language.Und
	}
	return tag
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
