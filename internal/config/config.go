package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/renderinc/uservoice-export/internal/uservoice"
)

const (
	DefaultOutput         = "output.csv"
	DefaultTimeoutSeconds = 30
)

var validate = validator.New()

// Config holds everything an export run needs
type Config struct {
	// UserVoice account
	Subdomain string `json:"subdomain" yaml:"subdomain" validate:"required_without=BaseURL"`
	Token     string `json:"uservoice_ui_token" yaml:"uservoice_ui_token" validate:"required"`
	BaseURL   string `json:"base_url" yaml:"base_url" validate:"omitempty,url"` // overrides the subdomain URL

	// Records created before this are skipped. Empty means "since the last
	// complete archived run", or everything without an archive.
	LastImportDate string `json:"last_import_date" yaml:"last_import_date"`

	Output         string `json:"output" yaml:"output" validate:"required"`
	ArchivePath    string `json:"archive_path" yaml:"archive_path"`
	IndexPath      string `json:"index_path" yaml:"index_path"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds" validate:"gte=0"`
	Strict         bool   `json:"strict" yaml:"strict"`
}

// Load reads path (JSON, or YAML for .yaml/.yml), applies environment
// overrides and defaults, and validates the result. An empty path skips the
// file.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is Load without validation, for commands that only need the local
// archive settings.
func Read(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("USERVOICE_SUBDOMAIN"); v != "" {
		c.Subdomain = v
	}
	if v := os.Getenv("USERVOICE_TOKEN"); v != "" {
		c.Token = v
	}
	if v := os.Getenv("USERVOICE_LAST_IMPORT_DATE"); v != "" {
		c.LastImportDate = v
	}
}

func (c *Config) applyDefaults() {
	if c.Output == "" {
		c.Output = DefaultOutput
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = DefaultTimeoutSeconds
	}
}

// Validate checks required fields and the cutoff format
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Cutoff(); err != nil {
		return fmt.Errorf("invalid config: last_import_date: %w", err)
	}
	return nil
}

// Cutoff parses LastImportDate; empty yields the zero time
func (c *Config) Cutoff() (time.Time, error) {
	if strings.TrimSpace(c.LastImportDate) == "" {
		return time.Time{}, nil
	}
	return uservoice.ParseTime(c.LastImportDate)
}

// APIBaseURL is the UserVoice v2 API root
func (c *Config) APIBaseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return uservoice.BaseURL(c.Subdomain)
}

// Timeout is the per-request HTTP timeout
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
