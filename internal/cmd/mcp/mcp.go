// Package mcp parses MCP command flags and serves a story over MCP.
package mcp

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/louisbranch/storyweft/internal/engine"
	mcpserver "github.com/louisbranch/storyweft/internal/mcp"
	entrypoint "github.com/louisbranch/storyweft/internal/platform/cmd"
	"github.com/louisbranch/storyweft/internal/scenes/lua"
	"github.com/louisbranch/storyweft/internal/storage/sqlite"
)

// Config holds MCP command configuration.
type Config struct {
	BundleDir string `env:"STORYWEFT_BUNDLE_DIR" envDefault:"stories"`
	Scene     string `env:"STORYWEFT_SCENE"`
	DBPath    string `env:"STORYWEFT_DB_PATH" envDefault:"storyweft.db"`
	Story     string `env:"STORYWEFT_STORY"`
	Slot      string `env:"STORYWEFT_SLOT" envDefault:"auto"`

	Resume bool `env:"STORYWEFT_RESUME"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.BundleDir, "bundle", cfg.BundleDir, "Directory of .lua scene scripts")
	fs.StringVar(&cfg.Scene, "scene", cfg.Scene, "Starting scene (defaults to the bundle's first scene)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the save database")
	fs.StringVar(&cfg.Story, "story", cfg.Story, "Story name saves are filed under (defaults to the bundle dir)")
	fs.StringVar(&cfg.Slot, "slot", cfg.Slot, "Save slot name")
	fs.BoolVar(&cfg.Resume, "resume", cfg.Resume, "Resume from the save slot instead of starting fresh")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if cfg.Story == "" {
		cfg.Story = cfg.BundleDir
	}
	return cfg, nil
}

// Run serves the configured story over MCP on stdio.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMCP, func(ctx context.Context) error {
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open save store: %w", err)
		}
		defer store.Close()

		bundle, err := lua.Load(os.DirFS(cfg.BundleDir), ".")
		if err != nil {
			return fmt.Errorf("load bundle %s: %w", cfg.BundleDir, err)
		}
		registry := engine.NewRegistry()
		if err := bundle.Register(registry); err != nil {
			return err
		}

		sessionCfg := mcpserver.SessionConfig{
			Registry: registry,
			Saves:    store,
			Story:    cfg.Story,
			Slot:     cfg.Slot,
		}
		if cfg.Resume {
			record, err := store.GetSave(ctx, cfg.Story, cfg.Slot)
			if err != nil {
				return fmt.Errorf("load save %s/%s: %w", cfg.Story, cfg.Slot, err)
			}
			sessionCfg.Status = record.Status
		} else {
			start := cfg.Scene
			if start == "" {
				start = bundle.Names()[0]
			}
			scene, err := bundle.Scene(start)
			if err != nil {
				return err
			}
			sessionCfg.Scene = scene
			sessionCfg.World = map[string]any{}
		}

		session, err := mcpserver.NewSession(ctx, sessionCfg)
		if err != nil {
			return err
		}
		server, err := mcpserver.NewServer(session)
		if err != nil {
			return err
		}
		return server.Serve(ctx)
	})
}
