// Package daemon runs the writer loop and the socket server together.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/yiblet/kopa/internal/clipboard"
	"github.com/yiblet/kopa/internal/clipboard/nativeboard"
	"github.com/yiblet/kopa/internal/clipboard/sysboard"
	"github.com/yiblet/kopa/internal/config"
	"github.com/yiblet/kopa/internal/datadir"
	"github.com/yiblet/kopa/internal/logging"
	"github.com/yiblet/kopa/internal/server"
	"github.com/yiblet/kopa/internal/store"
	"github.com/yiblet/kopa/internal/store/dbstore"
	"github.com/yiblet/kopa/internal/store/memstore"
	"github.com/yiblet/kopa/internal/watcher"
)

// Options configures Run.
type Options struct {
	Dir    *datadir.Dir
	Config *config.Config

	// ConfigManager, when set, is watched for live changes.
	ConfigManager *config.ConfigManager

	// Ephemeral keeps history in memory only.
	Ephemeral bool

	// Level is adjusted when log_level changes on disk.
	Level  *slog.LevelVar
	Logger *slog.Logger

	// Clipboard overrides the backend named in Config.
	Clipboard clipboard.Clipboard
}

// OpenClipboard returns the backend called name.
func OpenClipboard(name string) (clipboard.Clipboard, error) {
	switch name {
	case clipboard.BackendSystem, "":
		board, err := sysboard.New()
		if err != nil {
			return nil, err
		}
		return board, nil
	case clipboard.BackendNative:
		board, err := nativeboard.New()
		if err != nil {
			return nil, err
		}
		return board, nil
	default:
		return nil, fmt.Errorf("unknown clipboard backend %q", name)
	}
}

// OpenStore opens the history store for dir.
func OpenStore(ctx context.Context, dir *datadir.Dir, ephemeral bool) (store.HistoryStore, error) {
	if ephemeral {
		return memstore.NewMemoryStore(), nil
	}
	st, err := dbstore.NewSQLiteStore(ctx, dir.DBPath())
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Run serves until ctx is cancelled or a component fails to start.
func Run(ctx context.Context, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	st, err := OpenStore(ctx, opts.Dir, opts.Ephemeral)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer st.Close()

	count, err := st.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}

	clip := opts.Clipboard
	if clip == nil {
		if clip, err = OpenClipboard(cfg.Clipboard); err != nil {
			return fmt.Errorf("failed to open clipboard: %w", err)
		}
	}

	logger.Info("starting daemon",
		"data_dir", opts.Dir.Root(),
		"ephemeral", opts.Ephemeral,
		"entries", count,
		"clipboard", cfg.Clipboard,
	)

	srv := server.New(opts.Dir.SocketPath(), server.NewRouter(st, clip, logger), logger)
	ln, err := srv.Listen()
	if err != nil {
		return err
	}

	w := watcher.New(st, clip, watcher.Options{
		PollInterval: cfg.PollInterval(),
		RetryBackoff: cfg.RetryBackoff(),
	}, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(ctx, ln)
	})
	g.Go(func() error {
		return w.Run(ctx)
	})
	if opts.ConfigManager != nil {
		g.Go(func() error {
			return watchConfig(ctx, opts.ConfigManager, cfg, w, opts.Level, logger)
		})
	}

	err = g.Wait()
	logger.Info("daemon stopped")
	return err
}

// watchConfig applies poll interval and log level changes as they are saved.
// Other keys only take effect on restart.
func watchConfig(ctx context.Context, cm *config.ConfigManager, current *config.Config, w *watcher.Watcher, level *slog.LevelVar, logger *slog.Logger) error {
	// fsnotify needs the directory to exist
	if err := os.MkdirAll(filepath.Dir(cm.GetConfigPath()), 0o755); err != nil {
		logger.Warn("config reload disabled", "error", err)
		return nil
	}

	prev := *current
	err := cm.Watch(ctx, func(next *config.Config) {
		applyConfig(&prev, next, w, level, logger)
	}, func(err error) {
		logger.Warn("config reload failed", "path", cm.GetConfigPath(), "error", err)
	})
	if err != nil {
		logger.Warn("config reload disabled", "error", err)
	}
	return nil
}

func applyConfig(prev, next *config.Config, w *watcher.Watcher, level *slog.LevelVar, logger *slog.Logger) {
	if next.PollIntervalMs != prev.PollIntervalMs {
		w.SetInterval(next.PollInterval())
		logger.Info("poll interval changed", "interval", next.PollInterval())
	}
	if next.LogLevel != prev.LogLevel && level != nil {
		if l, err := logging.ParseLevel(next.LogLevel); err == nil {
			level.Set(l)
			logger.Info("log level changed", "level", next.LogLevel)
		}
	}
	if next.DataDir != prev.DataDir || next.Clipboard != prev.Clipboard || next.RetryBackoffMs != prev.RetryBackoffMs {
		logger.Info("config change needs a daemon restart to take effect")
	}
	*prev = *next
}
