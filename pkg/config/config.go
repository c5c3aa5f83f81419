// Package config loads server configuration from a file and DOCREPO_ environment
// variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/adfharrison1/go-docrepo/pkg/logger"
	"github.com/adfharrison1/go-docrepo/pkg/query"
	"github.com/adfharrison1/go-docrepo/pkg/repository"
)

// EnvPrefix prefixes every environment override, e.g. DOCREPO_PORT
const EnvPrefix = "DOCREPO"

// Config is the server configuration
type Config struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	DataFile       string        `mapstructure:"data_file"`
	DefaultLimit   int           `mapstructure:"default_limit"`
	BackgroundSave time.Duration `mapstructure:"background_save"`

	// Connection settings
	AppID     string `mapstructure:"app_id"`
	AppName   string `mapstructure:"app_name"`
	MasterKey string `mapstructure:"master_key"`
	ServerURL string `mapstructure:"server_url"`

	Log     logger.Config `mapstructure:"log"`
	Classes []ClassConfig `mapstructure:"classes"`
}

// ClassConfig describes one class served by a repository. Classes and
// relations are lists because configuration keys are case-insensitive.
type ClassConfig struct {
	Name         string           `mapstructure:"name"`
	Fields       []string         `mapstructure:"fields"`
	Hidden       []string         `mapstructure:"hidden"`
	TextFields   []string         `mapstructure:"text_fields"`
	Relations    []RelationConfig `mapstructure:"relations"`
	AutoPopulate []PopulateConfig `mapstructure:"autopopulate"`
	Indexes      []string         `mapstructure:"indexes"`
	UseMasterKey bool             `mapstructure:"use_master_key"`
}

// RelationConfig maps a pointer field to the class it refers to
type RelationConfig struct {
	Field string `mapstructure:"field"`
	Class string `mapstructure:"class"`
}

// PopulateConfig is a default population rule
type PopulateConfig struct {
	Path   string   `mapstructure:"path"`
	Select []string `mapstructure:"select"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "")
	v.SetDefault("port", 8080)
	v.SetDefault("data_file", "docrepo_data.godb")
	v.SetDefault("default_limit", 100)
	v.SetDefault("background_save", "0s")
	v.SetDefault("app_id", "")
	v.SetDefault("app_name", "docrepo")
	v.SetDefault("master_key", "")
	v.SetDefault("server_url", "")
	v.SetDefault("log.level", "INFO")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.add_source", false)
}

// Load reads the configuration. An empty path looks for an optional docrepo.(yaml|json|toml)
// in the working directory; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("docrepo")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the server cannot run with
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.DefaultLimit < 0 {
		return fmt.Errorf("default_limit must not be negative, got %d", c.DefaultLimit)
	}
	if c.BackgroundSave < 0 {
		return fmt.Errorf("background_save must not be negative, got %s", c.BackgroundSave)
	}

	seen := make(map[string]bool, len(c.Classes))
	for i, class := range c.Classes {
		if class.Name == "" {
			return fmt.Errorf("class %d: name is required", i)
		}
		if seen[class.Name] {
			return fmt.Errorf("class %s: declared twice", class.Name)
		}
		seen[class.Name] = true
		for _, rel := range class.Relations {
			if rel.Field == "" || rel.Class == "" {
				return fmt.Errorf("class %s: relations need a field and a class", class.Name)
			}
		}
		for _, p := range class.AutoPopulate {
			if p.Path == "" {
				return fmt.Errorf("class %s: autopopulate entries need a path", class.Name)
			}
		}
	}
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Class returns the configuration of a class
func (c *Config) Class(name string) (ClassConfig, bool) {
	for _, class := range c.Classes {
		if class.Name == name {
			return class, true
		}
	}
	return ClassConfig{}, false
}

// Options converts the class configuration into repository options
func (c ClassConfig) Options() []repository.Option {
	var opts []repository.Option
	if len(c.Fields) > 0 {
		opts = append(opts, repository.WithSchema(c.Fields...))
	}
	if len(c.Hidden) > 0 {
		opts = append(opts, repository.WithHidden(c.Hidden...))
	}
	if len(c.TextFields) > 0 {
		opts = append(opts, repository.WithTextFields(c.TextFields...))
	}
	for _, rel := range c.Relations {
		opts = append(opts, repository.WithRelation(rel.Field, rel.Class))
	}
	for _, p := range c.AutoPopulate {
		opts = append(opts, repository.WithAutoPopulate(query.Populate{Path: p.Path, Select: p.Select}))
	}
	if c.UseMasterKey {
		opts = append(opts, repository.WithMasterKey(true))
	}
	return opts
}
