package lsp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mamaar/rbrefactor/pkg/document"
)

// handleDidOpen parses and stores a newly opened document
func (s *Server) handleDidOpen(ctx context.Context, message *Message) error {
	var params DidOpenTextDocumentParams
	if err := json.Unmarshal(message.Params, &params); err != nil {
		return fmt.Errorf("invalid didOpen params: %w", err)
	}

	doc := params.TextDocument
	if doc.LanguageID != "" && doc.LanguageID != "ruby" {
		s.logger.Debug("ignoring non-ruby document", "uri", doc.URI, "language", doc.LanguageID)
		return nil
	}

	_, err := s.store.Open(ctx, doc.URI, doc.Version, doc.Text)
	return err
}

// handleDidChange applies content changes and installs the new version
func (s *Server) handleDidChange(ctx context.Context, message *Message) error {
	var params DidChangeTextDocumentParams
	if err := json.Unmarshal(message.Params, &params); err != nil {
		return fmt.Errorf("invalid didChange params: %w", err)
	}

	changes := make([]document.Change, 0, len(params.ContentChanges))
	for _, c := range params.ContentChanges {
		changes = append(changes, document.Change{Range: c.Range, Text: c.Text})
	}

	_, err := s.store.Change(ctx, params.TextDocument.URI, params.TextDocument.Version, changes)
	return err
}

// handleDidClose drops a document
func (s *Server) handleDidClose(message *Message) error {
	var params DidCloseTextDocumentParams
	if err := json.Unmarshal(message.Params, &params); err != nil {
		return fmt.Errorf("invalid didClose params: %w", err)
	}

	if !s.store.Close(params.TextDocument.URI) {
		s.logger.Debug("closing unknown document", "uri", params.TextDocument.URI)
	}
	return nil
}
