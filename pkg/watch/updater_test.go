package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mamaar/rbrefactor/pkg/document"
)

func setupStore(t *testing.T) (*DocumentUpdater, *document.Store, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "app.rb")
	writeFile(t, dir, "app.rb", "puts 1\n")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := document.NewStore(logger)
	if _, err := store.Open(context.Background(), document.PathToURI(path), 1, "puts 1\n"); err != nil {
		t.Fatal(err)
	}
	return NewUpdater(store, logger), store, path
}

func TestUpdater_ModifyReloadsOpenDocument(t *testing.T) {
	u, store, path := setupStore(t)
	writeFile(t, filepath.Dir(path), "app.rb", "puts 2\n")

	u.HandleChanges(context.Background(), []ChangeEvent{{Path: path, Op: fsnotify.Write}})

	tree, ok := store.Get(document.PathToURI(path))
	if !ok {
		t.Fatal("document should still be open")
	}
	if got := string(tree.Source()); got != "puts 2\n" {
		t.Errorf("expected reloaded content, got %q", got)
	}
	if tree.Version != 2 {
		t.Errorf("expected version 2, got %d", tree.Version)
	}
}

func TestUpdater_UnchangedContentKeepsVersion(t *testing.T) {
	u, store, path := setupStore(t)

	u.HandleChanges(context.Background(), []ChangeEvent{{Path: path, Op: fsnotify.Write}})

	tree, _ := store.Get(document.PathToURI(path))
	if tree.Version != 1 {
		t.Errorf("expected version 1, got %d", tree.Version)
	}
}

func TestUpdater_IgnoresClosedDocuments(t *testing.T) {
	u, store, path := setupStore(t)
	other := filepath.Join(filepath.Dir(path), "other.rb")
	writeFile(t, filepath.Dir(path), "other.rb", "puts 3\n")

	u.HandleChanges(context.Background(), []ChangeEvent{{Path: other, Op: fsnotify.Create}})

	if _, ok := store.Get(document.PathToURI(other)); ok {
		t.Error("files that are not open must not be opened by the updater")
	}
}

func TestUpdater_RemoveKeepsLastContent(t *testing.T) {
	u, store, path := setupStore(t)
	_ = os.Remove(path)

	u.HandleChanges(context.Background(), []ChangeEvent{{Path: path, Op: fsnotify.Remove}})

	tree, ok := store.Get(document.PathToURI(path))
	if !ok || string(tree.Source()) != "puts 1\n" {
		t.Error("removed file should stay open with its last content")
	}
}

func TestUpdater_Sync(t *testing.T) {
	u, store, path := setupStore(t)
	dir := filepath.Dir(path)

	w, err := NewWatcher(dir, 50*time.Millisecond, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- u.Sync(ctx, w) }()

	writeFile(t, dir, "app.rb", "puts 42\n")

	deadline := time.After(2 * time.Second)
	for {
		tree, _ := store.Get(document.PathToURI(path))
		if string(tree.Source()) == "puts 42\n" {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("document was not reloaded, still %q", tree.Source())
		case <-time.After(20 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
