// ABOUTME: Wires configuration into the logger, stores, caches and patch engine.
// ABOUTME: Shared by the serve command and the one-shot CLI commands.

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jfeddern/PatchRelay/internal/cache"
	"github.com/jfeddern/PatchRelay/internal/config"
	"github.com/jfeddern/PatchRelay/internal/engine"
	"github.com/jfeddern/PatchRelay/internal/providers"
	"github.com/jfeddern/PatchRelay/internal/store"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type application struct {
	engine *engine.Engine
	memory *cache.MemoryCache // set when persistence is disabled
}

// newLogger builds the JSON logger, teeing to a rotating file when log_file is set
func newLogger(cfg *config.Config, stderr io.Writer) (*logrus.Logger, func(), error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(stderr)

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log_level %q: %w", cfg.LogLevel, err)
	}
	logger.SetLevel(level)

	if cfg.LogFile == "" {
		return logger, func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	logger.SetOutput(io.MultiWriter(stderr, file))
	return logger, func() { file.Close() }, nil
}

func newApplication(cfg *config.Config, logger *logrus.Logger) (*application, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	policy := cache.DefaultPolicy()
	policy.TTL = cfg.Cache.TTL
	policy.Jitter = cfg.Cache.Jitter

	app := &application{}

	var projectCache engine.Cache
	if cfg.Cache.Persist {
		projectCache = cache.NewFileCache(cfg.CacheDir(), policy, logger)
	} else {
		app.memory = cache.NewMemoryCache(policy, logger)
		projectCache = app.memory
	}

	providerConfig := &providers.ProviderConfig{
		CommandTimeout: cfg.CommandTimeout,
		MockMode:       cfg.Mock,
	}

	app.engine = engine.NewEngine(engine.Dependencies{
		Locator:  providers.CreateLocator(providerConfig),
		Managers: providers.CreatePackageManager,
		Runner:   providers.CreateRunner(providerConfig, logger),
		Cache:    projectCache,
		State:    store.NewStateStore(cfg.StatePath(), policy.Now, logger),
		History:  store.NewHistoryStore(cfg.HistoryPath(), cfg.HistoryLimit, policy.Now, logger),
	}, &engine.Config{
		Projects:        cfg.Projects,
		RefreshInterval: cfg.RefreshInterval,
		Policy:          policy,
	}, logger)

	return app, nil
}
