package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mamaar/rbrefactor/internal/config"
	"github.com/mamaar/rbrefactor/pkg/document"
	"github.com/mamaar/rbrefactor/pkg/refactor"
	"github.com/mamaar/rbrefactor/pkg/types"
)

// MethodExtractVariable computes an Extract Variable action for an explicit
// document version and reports failures as errors.
const MethodExtractVariable = "rbrefactor/extractVariable"

// Server represents the LSP server
type Server struct {
	mu           sync.Mutex
	store        *document.Store
	engine       *refactor.DefaultEngine
	logger       *slog.Logger
	info         ServerInfo
	capabilities ServerCapabilities

	// base comes from the config file and environment; client settings
	// from initializationOptions and didChangeConfiguration override it.
	base     refactor.EngineConfig
	client   config.Settings
	rootPath string

	ready        bool
	initialized  bool
	shuttingDown bool
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

func WithStore(store *document.Store) Option {
	return func(s *Server) { s.store = store }
}

func WithVersion(version string) Option {
	return func(s *Server) { s.info.Version = version }
}

// NewServer creates a new LSP server around engine. The engine's current
// configuration is the base that client settings are applied to.
func NewServer(engine *refactor.DefaultEngine, opts ...Option) *Server {
	s := &Server{
		engine: engine,
		base:   engine.Config(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		info:   ServerInfo{Name: "rbrefactor-lsp", Version: "dev"},
		capabilities: ServerCapabilities{
			TextDocumentSync: &TextDocumentSyncOptions{
				OpenClose: true,
				Change:    TextDocumentSyncKindIncremental,
			},
			CodeActionProvider: &CodeActionOptions{
				CodeActionKinds: []string{types.CodeActionKindRefactorExtract},
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = document.NewStore(s.logger)
	}
	return s
}

// Store exposes the open documents.
func (s *Server) Store() *document.Store { return s.store }

// RootPath is the workspace root sent by the client, if any.
func (s *Server) RootPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rootPath
}

// SetBaseConfig replaces the file and environment configuration. Client
// settings stay applied on top.
func (s *Server) SetBaseConfig(cfg refactor.EngineConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.base = cfg
	s.applyConfigLocked()
}

func (s *Server) applyConfigLocked() {
	cfg, err := s.client.Apply(s.base)
	if err != nil {
		s.logger.Warn("ignoring invalid client settings", "err", err)
		cfg = s.base
	}
	s.engine.SetConfig(cfg)
}

// Start starts the LSP server on stdio when port is 0 and on TCP otherwise.
func (s *Server) Start(ctx context.Context, port int) error {
	if port == 0 {
		return s.ServeStdio(ctx)
	}
	return s.ServeTCP(ctx, fmt.Sprintf(":%d", port))
}

// ServeStdio serves the LSP over stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	s.logger.Info("starting LSP server on stdio")
	return s.ServeStream(ctx, os.Stdin, os.Stdout)
}

// ServeStream serves a single client over a Content-Length framed stream.
func (s *Server) ServeStream(ctx context.Context, reader io.Reader, writer io.Writer) error {
	return s.serve(ctx, NewConnection(reader, writer))
}

// ServeTCP serves the LSP over TCP
func (s *Server) ServeTCP(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	stop := context.AfterFunc(ctx, func() { _ = listener.Close() })
	defer stop()
	defer listener.Close()

	s.logger.Info("starting LSP server on tcp", "addr", listener.Addr().String())

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("failed to accept connection", "err", err)
			continue
		}

		go func() {
			defer conn.Close()
			if err := s.ServeStream(ctx, conn, conn); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("error serving connection", "remote", conn.RemoteAddr().String(), "err", err)
			}
		}()
	}
}

// session is the per-connection request state.
type session struct {
	conn    MessageConn
	group   *errgroup.Group
	mu      sync.Mutex
	pending map[string]context.CancelFunc
}

func (ss *session) track(id interface{}, cancel context.CancelFunc) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.pending[idKey(id)] = cancel
}

func (ss *session) done(id interface{}) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.pending, idKey(id))
}

func (ss *session) cancel(id interface{}) bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	cancel, ok := ss.pending[idKey(id)]
	if ok {
		cancel()
	}
	return ok
}

func idKey(id interface{}) string {
	b, _ := json.Marshal(id)
	return string(b)
}

// errExit ends the message loop after an exit notification.
var errExit = errors.New("exit")

// serve runs the message loop. Notifications are applied in arrival order on
// this goroutine; requests that compute actions run concurrently on a
// snapshot taken before the next message is read.
func (s *Server) serve(ctx context.Context, conn MessageConn) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ss := &session{
		conn:    conn,
		group:   &errgroup.Group{},
		pending: make(map[string]context.CancelFunc),
	}
	defer func() {
		cancel()
		_ = ss.group.Wait()
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		message, err := conn.ReadMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Info("connection closed")
				return nil
			}
			return fmt.Errorf("failed to read message: %w", err)
		}

		s.logger.Debug("received message", "method", message.Method, "id", message.ID)

		if err := s.dispatch(ctx, ss, message); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}
			return err
		}
	}
}

func (s *Server) dispatch(ctx context.Context, ss *session, message *Message) error {
	if message.Method == "" {
		// Responses to server-initiated requests; none are sent.
		return nil
	}

	if message.Method == "exit" {
		return errExit
	}

	if !message.IsRequest() {
		s.handleNotification(ctx, ss, message)
		return nil
	}

	if !s.isReady() && message.Method != "initialize" {
		return s.write(ss, errorResponse(message.ID, CodeServerNotReady, "server not initialized", nil))
	}
	if s.isShuttingDown() && message.Method != "shutdown" {
		return s.write(ss, errorResponse(message.ID, CodeInvalidRequest, "server is shutting down", nil))
	}

	switch message.Method {
	case "initialize":
		return s.write(ss, s.handleInitialize(message))
	case "shutdown":
		return s.write(ss, s.handleShutdown(message))
	case "textDocument/codeAction":
		return s.async(ctx, ss, message, s.prepareCodeAction)
	case MethodExtractVariable:
		return s.async(ctx, ss, message, s.prepareExtractVariable)
	default:
		s.logger.Debug("unhandled method", "method", message.Method)
		return s.write(ss, errorResponse(message.ID, CodeMethodNotFound, "method not found: "+message.Method, nil))
	}
}

// job computes the response of a request against the snapshot captured
// when it was prepared.
type job func(ctx context.Context) *Message

// async prepares message synchronously and runs the resulting job on the
// session's errgroup with a context that $/cancelRequest cancels.
func (s *Server) async(ctx context.Context, ss *session, message *Message, prepare func(*Message) (job, *Message)) error {
	run, immediate := prepare(message)
	if immediate != nil {
		return s.write(ss, immediate)
	}

	reqCtx, cancel := context.WithCancel(ctx)
	ss.track(message.ID, cancel)
	ss.group.Go(func() error {
		defer cancel()
		defer ss.done(message.ID)
		response := run(reqCtx)
		if err := ss.conn.WriteMessage(response); err != nil {
			s.logger.Error("failed to write response", "method", message.Method, "err", err)
		}
		return nil
	})
	return nil
}

func (s *Server) write(ss *session, response *Message) error {
	if response == nil {
		return nil
	}
	if err := ss.conn.WriteMessage(response); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}

func (s *Server) isReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *Server) isShuttingDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shuttingDown
}

func (s *Server) handleNotification(ctx context.Context, ss *session, message *Message) {
	var err error
	switch message.Method {
	case "initialized":
		s.mu.Lock()
		s.initialized = true
		s.mu.Unlock()
	case "textDocument/didOpen":
		err = s.handleDidOpen(ctx, message)
	case "textDocument/didChange":
		err = s.handleDidChange(ctx, message)
	case "textDocument/didClose":
		err = s.handleDidClose(message)
	case "workspace/didChangeConfiguration":
		err = s.handleDidChangeConfiguration(message)
	case "$/cancelRequest":
		var params CancelParams
		if err = json.Unmarshal(message.Params, &params); err == nil {
			if ss.cancel(params.ID) {
				s.logger.Debug("request cancelled", "id", params.ID)
			}
		}
	default:
		s.logger.Debug("unhandled notification", "method", message.Method)
	}
	if err != nil {
		s.logger.Warn("notification failed", "method", message.Method, "err", err)
	}
}

func (s *Server) handleInitialize(message *Message) *Message {
	var params InitializeParams
	if err := json.Unmarshal(message.Params, &params); err != nil {
		return errorResponse(message.ID, CodeInvalidParams, "Invalid params", err.Error())
	}

	s.mu.Lock()
	s.ready = true
	s.rootPath = document.URIToPath(params.RootURI)
	if s.rootPath == "" {
		s.rootPath = params.RootPath
	}
	if len(params.InitializationOptions) > 0 {
		settings, err := decodeSettings(params.InitializationOptions)
		if err == nil {
			_, err = settings.Apply(s.base)
		}
		if err != nil {
			s.mu.Unlock()
			return errorResponse(message.ID, CodeInvalidParams, "Invalid initializationOptions", err.Error())
		}
		s.client = settings
		s.applyConfigLocked()
	}
	rootPath := s.rootPath
	s.mu.Unlock()

	s.logger.Info("initialize", "root", rootPath, "client", params.ClientInfo)

	return successResponse(message.ID, InitializeResult{
		Capabilities: s.capabilities,
		ServerInfo:   &ServerInfo{Name: s.info.Name, Version: s.info.Version},
	})
}

func (s *Server) handleShutdown(message *Message) *Message {
	s.mu.Lock()
	s.shuttingDown = true
	s.mu.Unlock()
	return successResponse(message.ID, nil)
}

func (s *Server) handleDidChangeConfiguration(message *Message) error {
	var params DidChangeConfigurationParams
	if err := json.Unmarshal(message.Params, &params); err != nil {
		return err
	}
	settings, err := decodeSettings(params.Settings)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = settings
	s.applyConfigLocked()
	s.logger.Info("configuration changed", "extract_to_variable", s.engine.Config().ExtractToVariable)
	return nil
}

// decodeSettings accepts settings either at the top level or nested under
// an "rbrefactor" section.
func decodeSettings(raw json.RawMessage) (config.Settings, error) {
	var settings config.Settings
	if len(raw) == 0 || string(raw) == "null" {
		return settings, nil
	}
	var section struct {
		RBRefactor *config.Settings `json:"rbrefactor"`
	}
	if err := json.Unmarshal(raw, &section); err != nil {
		return settings, fmt.Errorf("decode settings: %w", err)
	}
	if section.RBRefactor != nil {
		return *section.RBRefactor, nil
	}
	if err := json.Unmarshal(raw, &settings); err != nil {
		return settings, fmt.Errorf("decode settings: %w", err)
	}
	return settings, nil
}

func successResponse(id interface{}, result interface{}) *Message {
	if result == nil {
		result = json.RawMessage("null")
	}
	return &Message{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}
}

func errorResponse(id interface{}, code int, message string, data interface{}) *Message {
	return &Message{
		JSONRPC: "2.0",
		ID:      id,
		Error: &ResponseError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// refactorErrorResponse maps engine errors to JSON-RPC error codes.
func refactorErrorResponse(id interface{}, err error) *Message {
	code := CodeRequestFailed
	kind, ok := types.ErrorTypeOf(err)
	switch {
	case !ok:
		code = CodeInternalError
	case kind == types.StaleDocument:
		code = CodeContentModified
	case kind == types.Cancelled:
		code = CodeRequestCancelled
	case kind == types.InternalInconsistency:
		code = CodeInternalError
	}

	var data interface{}
	if ok {
		data = ErrorData{Kind: kind.String()}
	}
	return errorResponse(id, code, strings.TrimSpace(err.Error()), data)
}
