package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/m4xw311/pengy/config"
	"github.com/m4xw311/pengy/errors"
	"github.com/m4xw311/pengy/llm"
	"github.com/m4xw311/pengy/logger"
	"github.com/m4xw311/pengy/profile"
	"github.com/m4xw311/pengy/tools"
	"github.com/m4xw311/pengy/tools/mcp"
)

// runtime is what every command shares: configuration, logging and the
// connected MCP servers.
type runtime struct {
	cfg       *config.Config
	dir       string
	providers []tools.Provider
	clients   []*mcp.Client
}

func newRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, errors.Wrapf(err, "error loading configuration")
	}
	if err := configureLogger(cfg); err != nil {
		return nil, err
	}
	dir, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrapf(err, "could not get working directory")
	}

	reg := tools.NewRegistry()
	clients := mcp.ConnectAll(ctx, cfg.AdditionalMCPServers, reg)
	return &runtime{cfg: cfg, dir: dir, providers: reg.Providers(), clients: clients}, nil
}

// configureLogger applies flag overrides on top of the configured level and file.
func configureLogger(cfg *config.Config) error {
	levelName := rootFlags.logLevel
	if levelName == "" {
		levelName = cfg.LogLevel
	}
	if levelName != "" {
		level, err := logger.ParseLevel(levelName)
		if err != nil {
			return err
		}
		logger.Default.SetLevel(level)
	}

	file := rootFlags.logFile
	if file == "" {
		file = cfg.LogFile
	}
	if file != "" {
		if err := logger.Default.OpenFile(file); err != nil {
			return errors.Wrapf(err, "could not open log file %s", file)
		}
	}
	return nil
}

// workspace returns the workspace rooted at dir, or at the working directory
// when dir is empty.
func (rt *runtime) workspace(dir string) *tools.Workspace {
	if dir == "" {
		dir = rt.dir
	}
	return tools.NewWorkspace(dir, rt.cfg)
}

// builder creates a profile builder backed by the configured LLM.
func (rt *runtime) builder(ctx context.Context, dir string) (*profile.Builder, error) {
	client, err := llm.NewClient(ctx, rt.cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "error initializing %s client", rt.cfg.LLMClient)
	}
	return &profile.Builder{
		Executor:  llm.NewModel(client),
		Config:    rt.cfg,
		Workspace: rt.workspace(dir),
		Providers: rt.providers,
	}, nil
}

func (rt *runtime) Close() {
	for _, c := range rt.clients {
		if err := c.Stop(); err != nil {
			logger.Warn("failed to stop MCP server", "server", c.Name(), "error", err)
		}
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}
