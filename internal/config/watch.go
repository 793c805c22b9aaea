package config

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mamaar/rbrefactor/pkg/refactor"
	"github.com/mamaar/rbrefactor/pkg/watch"
)

// DefaultDebounce is how long the watcher waits for edits to settle.
const DefaultDebounce = 100 * time.Millisecond

// Watch reloads the config file at path whenever it changes and passes the
// result, with environment overrides applied, to onChange. Invalid files are
// logged and skipped so the previous configuration stays in effect. Watch
// blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, logger *slog.Logger, onChange func(refactor.EngineConfig)) error {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); err != nil {
		return err
	}

	w, err := watch.NewWatcher(dir, DefaultDebounce, logger, watch.WithFilter(watch.File(path)), watch.NonRecursive())
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	batches := make(chan []watch.ChangeEvent, 1)
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx, batches) }()

	for {
		select {
		case <-batches:
			cfg, err := Resolve(path)
			if err != nil {
				logger.Error("config reload failed", "path", path, "err", err)
				continue
			}
			logger.Info("config reloaded", "path", path,
				"extract_to_variable", cfg.ExtractToVariable,
				"occurrences", cfg.Occurrences.String(),
				"single_line_style", cfg.SingleLineStyle.String())
			onChange(cfg)
		case err := <-errc:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}
