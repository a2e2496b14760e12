// Package config loads versescout settings. Precedence, lowest first:
// built-in defaults, the TOML file, a .env file, VERSESCOUT_* environment
// variables, then command-line flags applied by the caller.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const envPrefix = "VERSESCOUT_"

// Login modes.
const (
	LoginVisit = "visit"
	LoginPrint = "print"
)

// Store drivers, mirrored from prefs so this package stays a leaf.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// Defaults.
const (
	DefaultAPIURL           = "http://localhost:8080"
	DefaultRequestTimeout   = 30 * time.Second
	DefaultNarrowBreakpoint = 100
	DefaultDevAddr          = "127.0.0.1:8080"
	DefaultDailyChatLimit   = 20
)

// Config is the full client and dev-server configuration.
type Config struct {
	APIURL           string        `toml:"api_url"`
	Token            string        `toml:"token,omitempty"`
	LoginMode        string        `toml:"login_mode"`
	RequestTimeout   time.Duration `toml:"request_timeout"`
	NarrowBreakpoint int           `toml:"narrow_breakpoint"`
	Theme            string        `toml:"theme,omitempty"`

	Store StoreConfig `toml:"store"`
	Log   LogConfig   `toml:"log"`
	Dev   DevConfig   `toml:"dev"`
}

// StoreConfig selects where preferences and the session cookie live.
type StoreConfig struct {
	Driver string `toml:"driver"`
	Path   string `toml:"path"`
}

// LogConfig controls the log file.
type LogConfig struct {
	Path  string `toml:"path,omitempty"`
	Level string `toml:"level"`
}

// DevConfig configures the bundled reference backend.
type DevConfig struct {
	Addr           string    `toml:"addr"`
	Secret         string    `toml:"secret,omitempty"`
	DailyChatLimit int       `toml:"daily_chat_limit"`
	AllowedOrigins []string  `toml:"allowed_origins,omitempty"`
	LLM            LLMConfig `toml:"llm"`
}

// LLMConfig optionally backs dev-server chat answers with a model.
type LLMConfig struct {
	Provider string `toml:"provider,omitempty"`
	Endpoint string `toml:"endpoint,omitempty"`
	Model    string `toml:"model,omitempty"`
}

// DefaultPath returns ~/.config/versescout/config.toml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Dir returns the versescout config directory.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "versescout"), nil
}

// Default returns the built-in configuration.
func Default() Config {
	storePath := ""
	if dir, err := Dir(); err == nil {
		storePath = filepath.Join(dir, "prefs.json")
	}
	return Config{
		APIURL:           DefaultAPIURL,
		LoginMode:        LoginVisit,
		RequestTimeout:   DefaultRequestTimeout,
		NarrowBreakpoint: DefaultNarrowBreakpoint,
		Store:            StoreConfig{Driver: StoreFile, Path: storePath},
		Log:              LogConfig{Level: "info"},
		Dev:              DevConfig{Addr: DefaultDevAddr, DailyChatLimit: DefaultDailyChatLimit},
	}
}

// Load builds the configuration from path (DefaultPath when empty). A
// missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return cfg, err
		}
		path = p
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	_ = godotenv.Load()
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate checks values that would otherwise fail later and less clearly.
func (c Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: api_url %q must be an http(s) URL", c.APIURL)
	}
	switch c.LoginMode {
	case LoginVisit, LoginPrint:
	default:
		return fmt.Errorf("config: login_mode %q must be %q or %q", c.LoginMode, LoginVisit, LoginPrint)
	}
	switch c.Store.Driver {
	case StoreMemory:
	case StoreFile, StoreSQLite, "":
		if c.Store.Path == "" {
			return fmt.Errorf("config: store.path is required for the %q driver", c.Store.Driver)
		}
	default:
		return fmt.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	if c.RequestTimeout <= 0 {
		return errors.New("config: request_timeout must be positive")
	}
	if c.NarrowBreakpoint < 1 {
		return errors.New("config: narrow_breakpoint must be at least 1")
	}
	if c.Theme != "" && c.Theme != "dark" && c.Theme != "light" {
		return fmt.Errorf("config: theme %q must be dark or light", c.Theme)
	}
	return nil
}

// Write saves cfg as TOML at path with owner-only permissions.
func Write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		f.Close()
		return fmt.Errorf("encode config: %w", err)
	}
	return f.Close()
}

func applyEnv(cfg *Config) error {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	str("API_URL", &cfg.APIURL)
	str("TOKEN", &cfg.Token)
	str("LOGIN_MODE", &cfg.LoginMode)
	str("THEME", &cfg.Theme)
	str("STORE_DRIVER", &cfg.Store.Driver)
	str("STORE_PATH", &cfg.Store.Path)
	str("LOG_PATH", &cfg.Log.Path)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("DEV_ADDR", &cfg.Dev.Addr)
	str("DEV_SECRET", &cfg.Dev.Secret)
	str("LLM_PROVIDER", &cfg.Dev.LLM.Provider)
	str("LLM_ENDPOINT", &cfg.Dev.LLM.Endpoint)
	str("LLM_MODEL", &cfg.Dev.LLM.Model)

	if v, ok := os.LookupEnv(envPrefix + "REQUEST_TIMEOUT"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %sREQUEST_TIMEOUT: %w", envPrefix, err)
		}
		cfg.RequestTimeout = d
	}
	ints := []struct {
		name string
		dst  *int
	}{
		{"NARROW_BREAKPOINT", &cfg.NarrowBreakpoint},
		{"DEV_CHAT_LIMIT", &cfg.Dev.DailyChatLimit},
	}
	for _, e := range ints {
		v, ok := os.LookupEnv(envPrefix + e.name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s%s: %w", envPrefix, e.name, err)
		}
		*e.dst = n
	}
	if v, ok := os.LookupEnv(envPrefix + "DEV_ALLOWED_ORIGINS"); ok {
		cfg.Dev.AllowedOrigins = splitList(v)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
