package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"newscast/internal/checkpoint"
	"newscast/internal/config"
	"newscast/internal/logging"
	"newscast/internal/notifications"
	"newscast/internal/providers"
	"newscast/internal/providers/llmscript"
	"newscast/internal/providers/youtube"
	"newscast/internal/render"
	"newscast/internal/runlock"
	"newscast/internal/store"
	"newscast/internal/timeline"
	"newscast/internal/wizard"
)

// factories build the external collaborators. Tests replace them with fakes.
type factories struct {
	providers func(cfg *config.Config, logger *slog.Logger) (providers.Set, error)
	render    func(cfg *config.Config) render.Service
	notifier  func(cfg *config.Config) notifications.Service
}

func defaultFactories() factories {
	return factories{
		providers: buildProviders,
		render: func(cfg *config.Config) render.Service {
			return render.NewHTTPService(cfg.Render)
		},
		notifier: notifications.NewService,
	}
}

type checkpointStore interface {
	checkpoint.Store
	Close() error
}

type commandContext struct {
	configFlag *string
	envFlag    *string
	factories  factories

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger

	store   checkpointStore
	manager *checkpoint.Manager
}

func newCommandContext(configFlag, envFlag *string, factories factories) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		envFlag:    envFlag,
		factories:  factories,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		if c.envFlag != nil {
			if envPath := strings.TrimSpace(*c.envFlag); envPath != "" {
				if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
					c.configErr = fmt.Errorf("load %s: %w", envPath, err)
					return
				}
			}
		}
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

func (c *commandContext) loggerValue() *slog.Logger {
	c.loggerOnce.Do(func() {
		logger, err := logging.NewFromConfig(c.config)
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

// checkpoints opens the configured store on first use.
func (c *commandContext) checkpoints(ctx context.Context) (*checkpoint.Manager, error) {
	if c.manager != nil {
		return c.manager, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.store = st
	c.manager = checkpoint.NewManager(st, c.loggerValue())
	return c.manager, nil
}

func openStore(ctx context.Context, cfg *config.Config) (checkpointStore, error) {
	if cfg.Store.Driver == "postgres" {
		st, err := store.OpenPostgres(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
	st, err := store.Open(cfg)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// lockProduction takes the single-writer lock for id. Every command that writes an
// existing production's checkpoint holds it until the command returns.
func (c *commandContext) lockProduction(id string) (*runlock.Lock, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return runlock.Acquire(cfg.Paths.LockDir, id)
}

// loadProduction restores id from the checkpoint store.
func (c *commandContext) loadProduction(ctx context.Context, id string) (*wizard.Production, error) {
	mgr, err := c.checkpoints(ctx)
	if err != nil {
		return nil, err
	}
	snap, err := mgr.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return wizard.FromSnapshot(snap, nil), nil
}

// runner wires a wizard runner. Collaborators are only built when withProviders is set,
// so status and recovery commands work without provider credentials.
func (c *commandContext) runner(ctx context.Context, withProviders bool) (*wizard.Runner, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	mgr, err := c.checkpoints(ctx)
	if err != nil {
		return nil, err
	}
	logger := c.loggerValue()
	deps := wizard.Deps{
		Checkpoints: mgr,
		Timeline:    timeline.NewBuilder(timeline.OptionsFromConfig(cfg.Timeline), logger),
		Notifier:    c.factories.notifier(cfg),
		Logger:      logger,
	}
	if withProviders {
		set, err := c.factories.providers(cfg, logger)
		if err != nil {
			return nil, err
		}
		deps.Providers = set
		deps.Renderer = render.NewCoordinator(c.factories.render(cfg), render.NewCostLedger(cfg.Render.CostPerMinute), logger)
	}
	return wizard.NewRunner(cfg, deps), nil
}

func (c *commandContext) close() error {
	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	c.store = nil
	c.manager = nil
	return err
}

func buildProviders(cfg *config.Config, logger *slog.Logger) (providers.Set, error) {
	set := providers.Set{
		News:     providers.NewHTTPNews(cfg),
		Selector: providers.BriefSelector{DefaultMax: cfg.Pipeline.MaxNewsItems},
		Speech:   providers.NewHTTPSpeech(cfg),
		Video:    providers.NewVideoFromConfig(cfg, logger),
	}
	scripts, err := llmscript.New(cfg.LLM, logger)
	if err != nil {
		return set, err
	}
	set.Scripts = scripts
	set.Reviewer = scripts
	if cfg.Publish.Enabled {
		publisher, err := youtube.New(cfg.Publish, logger)
		if err != nil {
			return set, err
		}
		set.Publisher = publisher
	}
	return set, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
