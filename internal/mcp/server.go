package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mamaar/rbrefactor/pkg/document"
	"github.com/mamaar/rbrefactor/pkg/refactor"
	"github.com/mamaar/rbrefactor/pkg/watch"
)

// MCPServer holds the shared state for the MCP tool handlers: the open
// documents, the refactoring engine, and an optional filesystem watcher
// that reloads open documents when their files change.
type MCPServer struct {
	mu      sync.Mutex
	engine  *refactor.DefaultEngine
	store   *document.Store
	root    string
	watcher *watch.Watcher
	cancel  context.CancelFunc // stops watcher goroutine
	logger  *slog.Logger
}

// NewMCPServer creates a new MCPServer. Relative paths given to tools are
// resolved against root.
func NewMCPServer(engine *refactor.DefaultEngine, root string, logger *slog.Logger) *MCPServer {
	return &MCPServer{
		engine: engine,
		store:  document.NewStore(logger),
		root:   root,
		logger: logger,
	}
}

// NewServer builds the MCP protocol server with every tool registered.
func NewServer(state *MCPServer, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"rbrefactor-mcp",
		version,
		server.WithToolCapabilities(false),
		server.WithLogging(),
		server.WithRecovery(),
	)
	RegisterAllTools(s, state)
	return s
}

// Watch starts reloading open documents under the root when their files
// change on disk. It replaces any previous watcher.
func (s *MCPServer) Watch(debounce time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	w, err := watch.NewWatcher(s.root, debounce, s.logger)
	if err != nil {
		return fmt.Errorf("watch %s: %w", s.root, err)
	}
	s.watcher = w

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	updater := watch.NewUpdater(s.store, s.logger)
	go func() {
		if err := updater.Sync(ctx, w); err != nil && ctx.Err() == nil {
			s.logger.Error("watcher error", "err", err)
		}
	}()

	s.logger.Info("watching for changes", "root", s.root)
	return nil
}

// Engine returns the refactoring engine.
func (s *MCPServer) Engine() *refactor.DefaultEngine {
	return s.engine
}

// Store returns the open documents.
func (s *MCPServer) Store() *document.Store {
	return s.store
}

// resolvePath makes path absolute against the server root.
func (s *MCPServer) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(s.root, path)
}

func (s *MCPServer) stopLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.watcher != nil {
		_ = s.watcher.Close()
		s.watcher = nil
	}
}

// Close stops the watcher and releases resources.
func (s *MCPServer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}
