package lsp

import (
	"context"
	"encoding/json"

	"github.com/mamaar/rbrefactor/pkg/types"
)

// prepareCodeAction captures the document snapshot a codeAction request
// runs against. Failures produce an empty action list.
func (s *Server) prepareCodeAction(message *Message) (job, *Message) {
	var params CodeActionParams
	if err := json.Unmarshal(message.Params, &params); err != nil {
		return nil, errorResponse(message.ID, CodeInvalidParams, "Invalid params", err.Error())
	}

	empty := successResponse(message.ID, []CodeAction{})
	if !types.KindMatches(types.CodeActionKindRefactorExtract, params.Context.Only) {
		return nil, empty
	}

	tree, ok := s.store.Get(params.TextDocument.URI)
	if !ok {
		return nil, empty
	}

	req := types.ExtractVariableRequest{
		URI:     tree.URI,
		Version: tree.Version,
		Range:   params.Range,
	}
	return func(ctx context.Context) *Message {
		result, err := s.engine.ExtractVariable(ctx, tree, req)
		if err != nil {
			if types.IsErrorType(err, types.Cancelled) {
				return refactorErrorResponse(message.ID, err)
			}
			return empty
		}
		return successResponse(message.ID, []CodeAction{toCodeAction(tree.URI, tree.Version, result)})
	}, nil
}

// prepareExtractVariable handles rbrefactor/extractVariable, which names the
// document version explicitly and reports why no action is available.
func (s *Server) prepareExtractVariable(message *Message) (job, *Message) {
	var params ExtractVariableParams
	if err := json.Unmarshal(message.Params, &params); err != nil {
		return nil, errorResponse(message.ID, CodeInvalidParams, "Invalid params", err.Error())
	}

	uri := params.TextDocument.URI
	tree, ok := s.store.Get(uri)
	if !ok {
		return nil, refactorErrorResponse(message.ID, types.Errorf(types.InvalidOperation, "document %s is not open", uri))
	}

	req := types.ExtractVariableRequest{
		URI:     uri,
		Version: params.TextDocument.Version,
		Range:   params.Range,
		Name:    params.Name,
	}
	return func(ctx context.Context) *Message {
		result, err := s.engine.ExtractVariable(ctx, tree, req)
		if err != nil {
			return refactorErrorResponse(message.ID, err)
		}
		return successResponse(message.ID, toCodeAction(uri, tree.Version, result))
	}, nil
}

func toCodeAction(uri string, version int, result *types.CodeActionResult) CodeAction {
	edits := make([]TextEdit, 0, len(result.Edits))
	for _, e := range result.Edits {
		edits = append(edits, TextEdit{Range: e.Range, NewText: e.NewText})
	}

	action := CodeAction{
		Title: result.Title,
		Kind:  result.Kind,
		Edit: &WorkspaceEdit{
			DocumentChanges: []TextDocumentEdit{{
				TextDocument: VersionedTextDocumentIdentifier{
					TextDocumentIdentifier: TextDocumentIdentifier{URI: uri},
					Version:                version,
				},
				Edits: edits,
			}},
		},
	}
	if result.SelectOnApply != nil {
		action.Data = CodeActionData{SelectOnApply: result.SelectOnApply}
	}
	return action
}
