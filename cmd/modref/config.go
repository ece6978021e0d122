package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/natefinch/atomic"

	"github.com/ircdocs/modref/pkg/site"
	"github.com/ircdocs/modref/pkg/templating"
)

// ServerConfig holds the configuration for the HTTP servers and shared
// resources.
type ServerConfig struct {
	DocsAddr     string `json:"docs_addr"`
	ApiAddr      string `json:"api_addr"`
	LogLevel     string `json:"log_level"`
	DatabasePath string `json:"database_path"`
	TemplateDir  string `json:"template_dir"`
}

// Config is the top-level configuration struct that aggregates all other
// configs.
type Config struct {
	Server    *ServerConfig      `json:"server_config"`
	Site      *site.Config       `json:"site_config"`
	Templates *templating.Config `json:"template_config"`
}

// DefaultServerConfig creates a server configuration with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		DocsAddr:     ":8477",
		ApiAddr:      ":8478",
		LogLevel:     "info",
		DatabasePath: "./data/modref.db?_journal_mode=WAL&_busy_timeout=5000",
		TemplateDir:  "./data/templates",
	}
}

// DefaultConfig creates the full default configuration.
func DefaultConfig() *Config {
	siteCfg := site.DefaultConfig()
	tmplCfg := templating.DefaultConfig()
	return &Config{
		Server:    DefaultServerConfig(),
		Site:      &siteCfg,
		Templates: &tmplCfg,
	}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// The server can still run with defaults.
				fmt.Printf("warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}

// ConfigManager handles thread-safe access to the configuration and keeps
// the template manager in sync with config updates.
type ConfigManager struct {
	config     *Config
	mu         sync.RWMutex
	configPath string
	logger     *slog.Logger
	tm         *templating.Manager
}

// NewConfigManager loads the config and initializes the manager.
func NewConfigManager(path string) (*ConfigManager, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return &ConfigManager{
		config:     cfg,
		configPath: path,
		// Log to stdout before the application-specific logger is set.
		logger: slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{})),
	}, nil
}

// SetTemplateManager registers the template manager to receive config
// updates.
func (cm *ConfigManager) SetTemplateManager(tm *templating.Manager) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.tm = tm
	if tm != nil {
		tm.SetConfig(*cm.config.Templates)
	}
}

// SetLogger sets the logger. That's about it.
func (cm *ConfigManager) SetLogger(logger *slog.Logger) {
	cm.logger = logger
}

// Get returns a thread-safe copy of the current configuration. The
// sections are copied too, so callers can modify the result freely.
func (cm *ConfigManager) Get() Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	cfg := *cm.config
	if cm.config.Server != nil {
		server := *cm.config.Server
		cfg.Server = &server
	}
	if cm.config.Site != nil {
		siteCfg := *cm.config.Site
		cfg.Site = &siteCfg
	}
	if cm.config.Templates != nil {
		tmplCfg := *cm.config.Templates
		cfg.Templates = &tmplCfg
	}
	return cfg
}

// Update updates the configuration, applies it to the template manager,
// and saves it to disk. A template config the engine rejects on Refresh
// rolls back.
func (cm *ConfigManager) Update(newConfig Config) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.tm != nil && newConfig.Templates != nil {
		oldTmplConfig := cm.config.Templates

		cm.tm.SetConfig(*newConfig.Templates)
		if err := cm.tm.Refresh(); err != nil {
			cm.tm.SetConfig(*oldTmplConfig)
			_ = cm.tm.Refresh()
			return fmt.Errorf("template configuration rejected: %w", err)
		}
	}

	*cm.config = newConfig

	data, err := json.MarshalIndent(cm.config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err = atomic.WriteFile(cm.configPath, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
