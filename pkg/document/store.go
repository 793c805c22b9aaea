// Package document keeps the versioned text of open documents and their
// parsed trees.
package document

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mamaar/rbrefactor/pkg/syntax"
	"github.com/mamaar/rbrefactor/pkg/types"
)

// Change is one content change of a didChange notification. A nil Range
// replaces the whole document.
type Change struct {
	Range *types.Range
	Text  string
}

// Store holds the latest parsed version of every open document. Trees handed
// out by the store are immutable snapshots; later changes install new trees.
type Store struct {
	mu     sync.RWMutex
	docs   map[string]*syntax.Tree
	logger *slog.Logger
}

func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		docs:   make(map[string]*syntax.Tree),
		logger: logger,
	}
}

// Open parses text and installs it as version of uri, replacing any
// previous content.
func (s *Store) Open(ctx context.Context, uri string, version int, text string) (*syntax.Tree, error) {
	tree, err := syntax.Parse(ctx, uri, version, []byte(text))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.docs[uri] = tree
	s.mu.Unlock()

	s.logger.Debug("document opened", "uri", uri, "version", version, "bytes", len(text), "syntaxErrors", tree.HasErrors())
	return tree, nil
}

// Change applies changes in order to the open document and installs the
// result as version. Versions must increase.
func (s *Store) Change(ctx context.Context, uri string, version int, changes []Change) (*syntax.Tree, error) {
	s.mu.RLock()
	current, ok := s.docs[uri]
	s.mu.RUnlock()
	if !ok {
		return nil, types.Errorf(types.InvalidOperation, "document %s is not open", uri)
	}
	if version <= current.Version {
		return nil, &types.RefactorError{
			Type:    types.StaleDocument,
			Message: fmt.Sprintf("change to version %d does not follow version %d", version, current.Version),
			File:    uri,
		}
	}

	text := current.Source()
	for i, c := range changes {
		next, err := applyChange(text, c)
		if err != nil {
			return nil, fmt.Errorf("change %d of %s: %w", i, uri, err)
		}
		text = next
	}

	tree, err := syntax.Parse(ctx, uri, version, text)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	latest, ok := s.docs[uri]
	if !ok {
		return nil, types.Errorf(types.InvalidOperation, "document %s was closed", uri)
	}
	// Versions never go backwards, even when changes race.
	if latest.Version >= version {
		return nil, &types.RefactorError{
			Type:    types.StaleDocument,
			Message: fmt.Sprintf("version %d was superseded by version %d", version, latest.Version),
			File:    uri,
		}
	}
	s.docs[uri] = tree

	s.logger.Debug("document changed", "uri", uri, "version", version, "changes", len(changes))
	return tree, nil
}

func applyChange(text []byte, c Change) ([]byte, error) {
	if c.Range == nil {
		return []byte(c.Text), nil
	}
	lines := syntax.NewLineIndex(text)
	start := lines.Offset(c.Range.Start)
	end := lines.Offset(c.Range.End)
	if start > end {
		return nil, types.Errorf(types.InvalidOperation, "range end %d:%d precedes start %d:%d",
			c.Range.End.Line, c.Range.End.Character, c.Range.Start.Line, c.Range.Start.Character)
	}

	out := make([]byte, 0, len(text)-(end-start)+len(c.Text))
	out = append(out, text[:start]...)
	out = append(out, c.Text...)
	out = append(out, text[end:]...)
	return out, nil
}

// Close forgets uri. It reports whether the document was open.
func (s *Store) Close(uri string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.docs[uri]
	delete(s.docs, uri)
	return ok
}

// Get returns the current snapshot of uri.
func (s *Store) Get(uri string) (*syntax.Tree, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tree, ok := s.docs[uri]
	return tree, ok
}

// URIs lists the open documents in sorted order.
func (s *Store) URIs() []string {
	s.mu.RLock()
	uris := make([]string, 0, len(s.docs))
	for uri := range s.docs {
		uris = append(uris, uri)
	}
	s.mu.RUnlock()
	sort.Strings(uris)
	return uris
}

// Reload replaces the content of an open document with text read from disk,
// bumping its version. Documents that are not open are ignored.
func (s *Store) Reload(ctx context.Context, uri string, text []byte) (*syntax.Tree, bool, error) {
	current, ok := s.Get(uri)
	if !ok {
		return nil, false, nil
	}
	if string(current.Source()) == string(text) {
		return current, false, nil
	}
	tree, err := s.Change(ctx, uri, current.Version+1, []Change{{Text: string(text)}})
	if err != nil {
		return nil, false, err
	}
	return tree, true, nil
}

// ReadFile parses the file at path as version 0 of its file URI.
func ReadFile(ctx context.Context, path string) (*syntax.Tree, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.RefactorError{
			Type:    types.FileSystemError,
			Message: fmt.Sprintf("failed to read %s", path),
			File:    path,
			Cause:   err,
		}
	}
	return syntax.Parse(ctx, PathToURI(path), 0, content)
}

// URIToPath converts a file URI to a local path, decoding escaped
// characters. Anything that is not a file URI is returned unchanged.
func URIToPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return uri
	}
	return filepath.FromSlash(u.Path)
}

// PathToURI converts a file path to an absolute file URI.
func PathToURI(path string) string {
	if strings.HasPrefix(path, "file://") {
		return path
	}
	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}
