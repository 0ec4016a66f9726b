// Package config loads pengy settings with viper. Precedence, highest first:
// PENGY_* environment variables, ./.pengy/config.yaml, ~/.pengy/config.yaml, defaults.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/m4xw311/pengy/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	DirName        = ".pengy"
	configFileName = "config.yaml"

	DefaultMaxStep  = 10
	DefaultMaxRetry = 3

	DefaultEmbeddingModel = "text-embedding-3-small"
)

type FilesystemAccess struct {
	Hidden   []string `mapstructure:"hidden" yaml:"hidden"`
	ReadOnly []string `mapstructure:"read_only" yaml:"read_only"`
}

type MCPServer struct {
	Name    string   `mapstructure:"name" yaml:"name"`
	Command string   `mapstructure:"command" yaml:"command"`
	Args    []string `mapstructure:"args" yaml:"args"`
}

type Toolset struct {
	Name  string   `mapstructure:"name" yaml:"name"`
	Tools []string `mapstructure:"tools" yaml:"tools"`
}

type Web struct {
	MaxChars          int     `mapstructure:"max_chars" yaml:"max_chars"`
	CacheEntries      int     `mapstructure:"cache_entries" yaml:"cache_entries"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
}

type Config struct {
	LLMClient            string           `mapstructure:"llm" yaml:"llm"`
	Model                string           `mapstructure:"model" yaml:"model"`
	BaseURL              string           `mapstructure:"base_url" yaml:"base_url,omitempty"`
	Vision               bool             `mapstructure:"vision" yaml:"vision"`
	EmbeddingModel       string           `mapstructure:"embedding_model" yaml:"embedding_model"`
	MaxStep              int              `mapstructure:"max_step" yaml:"max_step"`
	MaxRetry             int              `mapstructure:"max_retry" yaml:"max_retry"`
	LogLevel             string           `mapstructure:"log_level" yaml:"log_level"`
	LogFile              string           `mapstructure:"log_file" yaml:"log_file,omitempty"`
	Toolsets             []Toolset        `mapstructure:"toolsets" yaml:"toolsets"`
	AdditionalMCPServers []MCPServer      `mapstructure:"additional_mcp_servers" yaml:"additional_mcp_servers"`
	AllowedCommands      []string         `mapstructure:"allowed_commands" yaml:"allowed_commands"`
	FilesystemAccess     FilesystemAccess `mapstructure:"filesystem_access" yaml:"filesystem_access"`
	Web                  Web              `mapstructure:"web" yaml:"web"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LLMClient:      "mock",
		EmbeddingModel: DefaultEmbeddingModel,
		MaxStep:        DefaultMaxStep,
		MaxRetry:       DefaultMaxRetry,
		LogLevel:       "info",
		FilesystemAccess: FilesystemAccess{
			Hidden: []string{DirName + "/config.yaml"},
		},
		Web: Web{MaxChars: 50000, CacheEntries: 64, RequestsPerSecond: 2},
	}
}

// LoadConfig loads configuration from the user's home directory and the
// current working directory, with the latter taking precedence.
func LoadConfig() (*Config, error) {
	home, _ := os.UserHomeDir()
	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrapf(err, "could not get working directory")
	}
	return Load(GlobalPath(home), ProjectPath(wd))
}

// Load reads the given files in order; missing files are skipped.
func Load(paths ...string) (*Config, error) {
	def := Default()
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("llm", def.LLMClient)
	v.SetDefault("max_step", def.MaxStep)
	v.SetDefault("max_retry", def.MaxRetry)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("vision", false)
	v.SetDefault("embedding_model", def.EmbeddingModel)
	v.SetDefault("filesystem_access.hidden", def.FilesystemAccess.Hidden)
	v.SetDefault("web.max_chars", def.Web.MaxChars)
	v.SetDefault("web.cache_entries", def.Web.CacheEntries)
	v.SetDefault("web.requests_per_second", def.Web.RequestsPerSecond)

	v.SetEnvPrefix("PENGY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"llm", "model", "base_url", "vision", "embedding_model", "max_step", "max_retry", "log_level", "log_file"} {
		if err := v.BindEnv(key); err != nil {
			return nil, errors.Wrapf(err, "binding %s env", key)
		}
	}

	loaded := false
	for _, p := range paths {
		if p == "" || !fileExists(p) {
			continue
		}
		v.SetConfigFile(p)
		var err error
		if !loaded {
			err = v.ReadInConfig()
		} else {
			err = v.MergeInConfig()
		}
		if err != nil {
			return nil, errors.Wrapf(err, "error loading config %s", p)
		}
		loaded = true
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrapf(err, "unmarshaling config")
	}
	if cfg.MaxStep <= 0 {
		cfg.MaxStep = DefaultMaxStep
	}
	if cfg.MaxRetry <= 0 {
		cfg.MaxRetry = DefaultMaxRetry
	}
	return cfg, nil
}

// WriteDefault writes the built-in configuration to path, creating parent dirs.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "could not create config directory")
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return errors.Wrapf(err, "marshaling default config")
	}
	return os.WriteFile(path, data, 0644)
}

// GlobalPath returns the user-level config path under home.
func GlobalPath(home string) string {
	if home == "" {
		return ""
	}
	return filepath.Join(home, DirName, configFileName)
}

// ProjectPath returns the project-level config path under dir.
func ProjectPath(dir string) string {
	return filepath.Join(dir, DirName, configFileName)
}

// GetToolset finds a toolset by name. ok is false when no such toolset is configured.
func (c *Config) GetToolset(name string) (*Toolset, bool) {
	for i := range c.Toolsets {
		if c.Toolsets[i].Name == name {
			return &c.Toolsets[i], true
		}
	}
	return nil, false
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
