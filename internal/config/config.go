package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultAPIURL is used when neither the config file nor env names a backend.
const DefaultAPIURL = "http://localhost:5000"

type Config struct {
	API struct {
		BaseURL        string `yaml:"base_url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"api"`

	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Cache struct {
		ServicesTTLSeconds int `yaml:"services_ttl_seconds"`
	} `yaml:"cache"`

	Metrics struct {
		Address string `yaml:"address"`
	} `yaml:"metrics"`

	UI struct {
		FocusRefreshPerSecond    float64 `yaml:"focus_refresh_per_second"`
		NoticeSeconds            int     `yaml:"notice_seconds"`
		WrongRoleRedirectSeconds int     `yaml:"wrong_role_redirect_seconds"`
	} `yaml:"ui"`

	// StateDir holds the session files and the default log file. Not read from YAML.
	StateDir string `yaml:"-"`
}

// Load reads configuration with precedence defaults < file < env. path may be
// empty, in which case HANDYHUB_CONFIG or <stateDir>/config.yaml is tried.
// A missing file is not an error.
func Load(path, stateDir string) (*Config, error) {
	// An optional .env in the working directory seeds the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config.Load: .env: %w", err)
	}

	cfg := defaults()
	cfg.StateDir = stateDir

	if path == "" {
		path = os.Getenv("HANDYHUB_CONFIG")
	}
	if path == "" && stateDir != "" {
		path = filepath.Join(stateDir, "config.yaml")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config.Load: %w", err)
		default:
			// Support ${ENV_VAR} placeholders in YAML config.
			data = []byte(os.ExpandEnv(string(data)))
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config.Load: parse %s: %w", path, err)
			}
		}
	}

	applyEnv(cfg)
	cfg.fill()
	return cfg, nil
}

func defaults() *Config {
	var cfg Config
	cfg.API.BaseURL = DefaultAPIURL
	cfg.API.TimeoutSeconds = 30
	cfg.Log.Level = "info"
	cfg.Cache.ServicesTTLSeconds = 300
	cfg.UI.FocusRefreshPerSecond = 1
	cfg.UI.NoticeSeconds = 4
	cfg.UI.WrongRoleRedirectSeconds = 2
	return &cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("HANDYHUB_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("HANDYHUB_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("HANDYHUB_REDIS_ADDR"); v != "" {
		cfg.Redis.Address = v
	}
	if v := os.Getenv("HANDYHUB_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = n
		}
	}
	if v := os.Getenv("HANDYHUB_METRICS_ADDR"); v != "" {
		cfg.Metrics.Address = v
	}
}

// fill restores defaults for zeroed fields and derives the log path.
func (c *Config) fill() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultAPIURL
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.File == "" && c.StateDir != "" {
		c.Log.File = filepath.Join(c.StateDir, "handyhub.log")
	}
}

func (c *Config) APITimeout() time.Duration {
	if c.API.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

func (c *Config) ServicesTTL() time.Duration {
	if c.Cache.ServicesTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Cache.ServicesTTLSeconds) * time.Second
}

func (c *Config) NoticeTimeout() time.Duration {
	if c.UI.NoticeSeconds <= 0 {
		return 4 * time.Second
	}
	return time.Duration(c.UI.NoticeSeconds) * time.Second
}

func (c *Config) WrongRoleRedirectDelay() time.Duration {
	if c.UI.WrongRoleRedirectSeconds <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.UI.WrongRoleRedirectSeconds) * time.Second
}

// FocusRefreshRate is the allowed focus-triggered reloads per second.
func (c *Config) FocusRefreshRate() float64 {
	if c.UI.FocusRefreshPerSecond <= 0 {
		return 1
	}
	return c.UI.FocusRefreshPerSecond
}
