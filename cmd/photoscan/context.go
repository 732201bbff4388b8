package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/ibralyousef/polaroid-batch-scanner/internal/config"
	"github.com/ibralyousef/polaroid-batch-scanner/internal/history"
	"github.com/ibralyousef/polaroid-batch-scanner/internal/layout"
	"github.com/ibralyousef/polaroid-batch-scanner/internal/logging"
	"github.com/ibralyousef/polaroid-batch-scanner/internal/naming"
	"github.com/ibralyousef/polaroid-batch-scanner/internal/retry"
	"github.com/ibralyousef/polaroid-batch-scanner/internal/scanner"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// ensureLogger builds the process logger from config; failures fall back to
// a no-op logger so the CLI keeps working.
func (c *commandContext) ensureLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) layoutStore() (*layout.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return layout.NewStore(cfg.LayoutPath()), nil
}

func (c *commandContext) prefixStore() (*naming.PrefixStore, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return naming.NewPrefixStore(cfg.PrefixesPath()), nil
}

func (c *commandContext) historyStore() (*history.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return history.Open(cfg.HistoryPath())
}

func (c *commandContext) scannerClient() (*scanner.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return scanner.New(
		cfg.Scanner.ScanimageBinary,
		cfg.Scanner.Device,
		cfg.Scanner.CaptureTimeout,
		retry.Policy{
			MaxAttempts: cfg.Scanner.InitAttempts,
			Backoff:     retrySeconds(cfg.Scanner.InitBackoffSeconds),
		},
		scanner.WithLogger(c.ensureLogger()),
	)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
