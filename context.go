package main

import (
	"io"
	"strings"
	"sync"

	"github.com/nijaru/yt-transcript/config"
	"github.com/nijaru/yt-transcript/db"
	"github.com/nijaru/yt-transcript/logger"
	"github.com/nijaru/yt-transcript/transcript"
	"github.com/nijaru/yt-transcript/youtube"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// commandContext loads configuration once and builds the shared pieces each
// subcommand needs.
type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
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
		c.config, c.configErr = config.Load(path)
	})
	return c.config, c.configErr
}

func (c *commandContext) logger(console io.Writer) (*logrus.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logger.New(cfg.Log, console)
}

func (c *commandContext) service(log *logrus.Logger) (*transcript.Service, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	client := youtube.NewClient(youtube.Config{
		BaseURL: cfg.Provider.BaseURL,
		Timeout: cfg.Provider.Timeout.Duration,
		HL:      cfg.Provider.HL,
		GL:      cfg.Provider.GL,
	}, youtube.WithLogger(log))

	return transcript.NewService(client,
		transcript.WithDefaultLanguages(cfg.Transcript.DefaultLanguages),
		transcript.WithLogger(log),
	), nil
}

// openJournal returns nil without error when no database path is configured.
func (c *commandContext) openJournal() (*db.Journal, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Database.Path == "" {
		return nil, nil
	}
	journal, err := db.Open(cfg.Database.Path, cfg.Database.MaxConnections)
	if err != nil {
		return nil, errors.Wrap(err, "open lookup journal")
	}
	return journal, nil
}
