// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	cfgtypes "opengauss.org/monitor-publisher-go/internal/types/config"
	errtypes "opengauss.org/monitor-publisher-go/internal/types/err"
	loggertypes "opengauss.org/monitor-publisher-go/internal/types/logger"
	"opengauss.org/monitor-publisher-go/internal/util/logger"
)

// DefaultPublisherName is used when the config file leaves the name empty.
const DefaultPublisherName = "opengauss-publisher"

// DefaultActivateDelay is how long to wait between writing a status-page
// configuration and resuming its schedules when the file does not say.
const DefaultActivateDelay = 5 * time.Second

var (
	globalConfig atomic.Pointer[cfgtypes.PublisherConfig]
	configMu     sync.RWMutex
)

// Loader handles file-based configuration loading with hot-reload support
type Loader struct {
	cfgPath string
	logger  logger.Logger
}

// New creates a new configuration loader
func New(cfgPath string) *Loader {

	return &Loader{
		cfgPath: cfgPath,
		logger:  logger.DefaultLogger(os.Stdout, loggertypes.LogLevelInfo).WithName("config-loader"),
	}
}

// LoadConfig loads configuration from file
func (l *Loader) LoadConfig() (*cfgtypes.PublisherConfig, error) {
	if l.cfgPath == "" {
		err := errors.New("config path is required")
		l.logger.Error(err, "config path is empty")
		return nil, err
	}

	cfg, err := l.parseConfigFile(l.cfgPath)
	if err != nil {
		return nil, err
	}

	l.logger.Info("configuration loaded successfully", "path", l.cfgPath)
	return cfg, nil
}

// parseConfigFile parses the YAML config file
func (l *Loader) parseConfigFile(path string) (*cfgtypes.PublisherConfig, error) {
	// Resolve symlinks to handle Kubernetes ConfigMap mounts
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		resolved = path
	}

	if _, err := os.Stat(resolved); os.IsNotExist(err) {
		l.logger.Error(err, "config file not exist", "path", resolved)
		return nil, err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		l.logger.Error(err, "failed to read config file", "path", resolved)
		return nil, err
	}

	var cfg cfgtypes.PublisherConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		l.logger.Error(err, "failed to parse config file", "path", resolved)
		return nil, err
	}

	// Apply default values
	// when some fields are missing in config file
	l.applyDefaults(&cfg)

	return &cfg, nil
}

// applyDefaults fills in missing configuration with defaults
func (l *Loader) applyDefaults(cfg *cfgtypes.PublisherConfig) {
	if cfg.Publisher.Info.Name == "" {
		cfg.Publisher.Info.Name = DefaultPublisherName
	}
	if cfg.Publisher.Logging == nil {
		cfg.Publisher.Logging = loggertypes.DefaultPublisherLogging()
	}
	if cfg.Publisher.Worker.PoolSize <= 0 {
		cfg.Publisher.Worker.PoolSize = 4
	}
	if cfg.Publisher.Worker.QueueSize <= 0 {
		cfg.Publisher.Worker.QueueSize = 256
	}
	if cfg.Publisher.StatusPage.ActivateDelay == "" {
		cfg.Publisher.StatusPage.ActivateDelay = DefaultActivateDelay.String()
	}
}

// ValidateConfig validates the configuration
func (l *Loader) ValidateConfig(cfg *cfgtypes.PublisherConfig) error {
	if cfg == nil {
		l.logger.Error(errtypes.PublisherConfigIsNil, "config validation failed")
		return errtypes.PublisherConfigIsNil
	}

	if cfg.Publisher.Info.IP == "" {
		err := errors.New("publisher ip is empty")
		l.logger.Error(err, "config validation failed")
		return err
	}

	if cfg.Publisher.Info.Port == "" {
		err := errors.New("publisher port is empty")
		l.logger.Error(err, "config validation failed")
		return err
	}

	if _, err := time.ParseDuration(cfg.Publisher.StatusPage.ActivateDelay); err != nil {
		l.logger.Error(err, "config validation failed", "activateDelay", cfg.Publisher.StatusPage.ActivateDelay)
		return err
	}

	if cfg.Publisher.Info.Name == "" {
		cfg.Publisher.Info.Name = DefaultPublisherName
		l.logger.Sugar().Debug("publisher name is empty, using default")
	}

	return nil
}

// ActivateDelay returns the parsed status-page activation delay.
func (l *Loader) ActivateDelay(cfg *cfgtypes.PublisherConfig) time.Duration {
	if cfg == nil {
		return DefaultActivateDelay
	}
	d, err := time.ParseDuration(cfg.Publisher.StatusPage.ActivateDelay)
	if err != nil || d <= 0 {
		return DefaultActivateDelay
	}
	return d
}

// PrintConfig prints the configuration
func (l *Loader) PrintConfig(cfg *cfgtypes.PublisherConfig) {
	if cfg == nil {
		l.logger.Info("config is nil")
		return
	}
	l.logger.Info("current configuration",
		"name", cfg.Publisher.Info.Name,
		"ip", cfg.Publisher.Info.IP,
		"port", cfg.Publisher.Info.Port,
		"storage", cfg.Publisher.Storage.Path,
		"metrics_port", cfg.Publisher.Metrics.Port,
		"status_page_config", cfg.Publisher.StatusPage.ConfigPath,
	)
}

// GetGlobalConfig returns the current global configuration
func GetGlobalConfig() *cfgtypes.PublisherConfig {
	return globalConfig.Load()
}

// SetGlobalConfig sets the global configuration
func SetGlobalConfig(cfg *cfgtypes.PublisherConfig) {
	configMu.Lock()
	defer configMu.Unlock()
	globalConfig.Store(cfg)
}

// WatchConfigAndReload watches the config file and reloads on changes
// This function implements hot-reload for both configuration and logging
func (l *Loader) WatchConfigAndReload(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		l.logger.Error(err, "failed to create config watcher")
		return err
	}
	defer watcher.Close()

	// Watch both the file and its directory to handle symlink swaps (Kubernetes ConfigMap)
	cfgFile := l.cfgPath
	cfgDir := filepath.Dir(cfgFile)

	if err := watcher.Add(cfgDir); err != nil {
		l.logger.Error(err, "failed to watch config directory", "dir", cfgDir)
		return err
	}

	// Try to watch the file directly (best-effort)
	_ = watcher.Add(cfgFile)

	l.logger.Info("config file watcher started", "path", cfgFile)

	// Debounce events
	var (
		pending bool
		last    time.Time
	)

	reload := func() {
		l.logger.Info("config file changed, reloading...")

		newCfg, err := l.parseConfigFile(cfgFile)
		if err != nil {
			l.logger.Error(err, "failed to reload config")
			return
		}

		if err := l.ValidateConfig(newCfg); err != nil {
			l.logger.Error(err, "invalid config after reload")
			return
		}

		SetGlobalConfig(newCfg)

		// Hot-reload logging configuration
		if err := l.reloadLogging(newCfg); err != nil {
			l.logger.Error(err, "failed to reload logging")
		}

		l.logger.Info("configuration reloaded successfully")
	}

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("config watcher stopped")
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			// Handle Write, Create, Remove, Rename, Chmod events
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Chmod) != 0 {
				// Check if the event pertains to the config file or directory
				if filepath.Base(event.Name) == filepath.Base(cfgFile) || filepath.Dir(event.Name) == cfgDir {
					// Debounce: if not pending or enough time has passed
					if !pending || time.Since(last) > 250*time.Millisecond {
						pending = true
						last = time.Now()
						// Slight delay to let file settle
						go func() {
							time.Sleep(300 * time.Millisecond)
							reload()
							pending = false
						}()
					}
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Error(err, "config watcher error")
		}
	}
}

// reloadLogging reloads the logging configuration
// when config file changes, it helps dynamically
// adjust the log level for dynamic debugging
func (l *Loader) reloadLogging(cfg *cfgtypes.PublisherConfig) error {

	if cfg == nil {
		return errors.New("config is nil")
	}

	logging := cfg.Publisher.Logging
	if logging == nil {
		logging = loggertypes.DefaultPublisherLogging()
	}

	// Create new logger with updated levels
	newLogger := logger.NewLogger(os.Stdout, logging).WithName("config-loader")

	// Update loader's logger
	l.logger = newLogger

	l.logger.Info("logging configuration reloaded")
	return nil
}
