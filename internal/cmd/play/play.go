// Package play parses play command flags and runs a story in the
// terminal.
package play

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/storyweft/internal/engine"
	entrypoint "github.com/louisbranch/storyweft/internal/platform/cmd"
	"github.com/louisbranch/storyweft/internal/scenes/lua"
	"github.com/louisbranch/storyweft/internal/storage"
	"github.com/louisbranch/storyweft/internal/storage/sqlite"
)

// Config holds play command configuration.
type Config struct {
	BundleDir string `env:"STORYWEFT_BUNDLE_DIR" envDefault:"stories"`
	Scene     string `env:"STORYWEFT_SCENE"`
	DBPath    string `env:"STORYWEFT_DB_PATH" envDefault:"storyweft.db"`
	Story     string `env:"STORYWEFT_STORY"`
	Slot      string `env:"STORYWEFT_SLOT" envDefault:"auto"`

	Resume      bool `env:"STORYWEFT_RESUME"`
	ForceChoice bool `env:"STORYWEFT_FORCE_CHOICE"`
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
	fs.BoolVar(&cfg.ForceChoice, "force-choice", cfg.ForceChoice, "Prompt even when a choice has a single option")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if cfg.Story == "" {
		cfg.Story = cfg.BundleDir
	}
	return cfg, nil
}

// Run plays a story on the terminal until it concludes or the player
// quits. A quit is a clean exit; the autosave slot holds the resumable
// status either way.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServicePlay, func(ctx context.Context) error {
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open save store: %w", err)
		}
		defer store.Close()

		game, err := buildGame(ctx, cfg, store, newTerminalHandler(os.Stdin, os.Stdout, store, cfg.Story, cfg.Slot))
		if err != nil {
			return err
		}

		tracer := otel.Tracer("storyweft/play")
		ctx, span := tracer.Start(ctx, "story.run", trace.WithAttributes(
			attribute.String("story", cfg.Story),
			attribute.String("slot", cfg.Slot),
		))
		defer span.End()

		err = game.Run(ctx)
		if errors.Is(err, engine.ErrStopped) {
			return nil
		}
		return err
	})
}

// buildGame assembles the registry and either restores the save slot or
// starts the configured scene.
func buildGame(ctx context.Context, cfg Config, store storage.SaveStore, handler engine.Handler) (*engine.Game, error) {
	bundle, err := lua.Load(os.DirFS(cfg.BundleDir), ".")
	if err != nil {
		return nil, fmt.Errorf("load bundle %s: %w", cfg.BundleDir, err)
	}
	registry := engine.NewRegistry()
	if err := bundle.Register(registry); err != nil {
		return nil, err
	}

	engineCfg := engine.Config{
		Handler:     handler,
		Registry:    registry,
		ForceChoice: cfg.ForceChoice,
	}

	if cfg.Resume {
		record, err := store.GetSave(ctx, cfg.Story, cfg.Slot)
		if err != nil {
			return nil, fmt.Errorf("load save %s/%s: %w", cfg.Story, cfg.Slot, err)
		}
		return engine.Restore(engineCfg, record.Status)
	}

	start := cfg.Scene
	if start == "" {
		start = bundle.Names()[0]
	}
	scene, err := bundle.Scene(start)
	if err != nil {
		return nil, err
	}
	engineCfg.Scene = scene
	engineCfg.World = map[string]any{}
	return engine.New(engineCfg)
}
