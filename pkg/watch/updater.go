package watch

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mamaar/rbrefactor/pkg/document"
)

// DocumentUpdater refreshes open documents whose files change on disk.
// Clients that do not send didChange (MCP tools, the CLI) see edits made by
// other programs this way.
type DocumentUpdater struct {
	store  *document.Store
	logger *slog.Logger
}

func NewUpdater(store *document.Store, logger *slog.Logger) *DocumentUpdater {
	return &DocumentUpdater{store: store, logger: logger}
}

// HandleChanges processes a batch of file-change events. Removed files stay
// open with their last content.
func (u *DocumentUpdater) HandleChanges(ctx context.Context, events []ChangeEvent) {
	start := time.Now()
	reloaded := 0

	for _, ev := range events {
		uri := document.PathToURI(ev.Path)
		if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
			if _, open := u.store.Get(uri); open {
				u.logger.Warn("open document removed from disk", "uri", uri)
			}
			continue
		}
		if _, open := u.store.Get(uri); !open {
			continue
		}

		content, err := os.ReadFile(ev.Path)
		if err != nil {
			u.logger.Error("reload: read failed", "file", ev.Path, "err", err)
			continue
		}
		tree, changed, err := u.store.Reload(ctx, uri, content)
		if err != nil {
			u.logger.Error("reload: parse failed", "file", ev.Path, "err", err)
			continue
		}
		if changed {
			reloaded++
			u.logger.Debug("document reloaded", "uri", uri, "version", tree.Version)
		}
	}

	u.logger.Info("batch complete",
		"files", len(events),
		"reloaded", reloaded,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
}

// Sync runs w and applies every batch until ctx is cancelled.
func (u *DocumentUpdater) Sync(ctx context.Context, w *Watcher) error {
	batches := make(chan []ChangeEvent, 1)
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx, batches) }()

	for {
		select {
		case batch := <-batches:
			u.HandleChanges(ctx, batch)
		case err := <-errc:
			return err
		}
	}
}
