package refactor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/mamaar/rbrefactor/pkg/analysis"
	"github.com/mamaar/rbrefactor/pkg/syntax"
	"github.com/mamaar/rbrefactor/pkg/types"
)

const instrumentationName = "github.com/mamaar/rbrefactor/pkg/refactor"

// RefactorEngine computes Extract Variable code actions on parsed documents.
type RefactorEngine interface {
	// ExtractVariable resolves an LSP range request against tree.
	ExtractVariable(ctx context.Context, tree *syntax.Tree, req types.ExtractVariableRequest) (*types.CodeActionResult, error)
	// ExtractVariableAt works on a byte-offset selection.
	ExtractVariableAt(ctx context.Context, tree *syntax.Tree, sel types.Selection, name string) (*types.CodeActionResult, error)

	Config() EngineConfig
	SetConfig(cfg EngineConfig)
}

// EngineConfig contains configuration options for the refactoring engine
type EngineConfig struct {
	// ExtractToVariable gates the whole feature.
	ExtractToVariable bool
	// Occurrences selects whether only the selection or every equal
	// expression in the scope is replaced.
	Occurrences analysis.OccurrencePolicy
	// SingleLineStyle is LayoutExpand or LayoutInline.
	SingleLineStyle Layout
	// VariableName is the name hint for the new variable.
	VariableName string
}

// DefaultConfig returns the default engine configuration
func DefaultConfig() EngineConfig {
	return EngineConfig{
		ExtractToVariable: false,
		Occurrences:       analysis.SingleOccurrence,
		SingleLineStyle:   LayoutExpand,
		VariableName:      analysis.DefaultVariableName,
	}
}

// Option configures a DefaultEngine.
type Option func(*DefaultEngine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *DefaultEngine) { e.logger = logger }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *DefaultEngine) { e.tracer = tp.Tracer(instrumentationName) }
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(e *DefaultEngine) { e.meter = mp.Meter(instrumentationName) }
}

// DefaultEngine implements the RefactorEngine interface
type DefaultEngine struct {
	config atomic.Pointer[EngineConfig]
	logger *slog.Logger
	tracer trace.Tracer
	meter  metric.Meter

	requests metric.Int64Counter
	failures metric.Int64Counter
	duration metric.Float64Histogram
}

func CreateEngine(opts ...Option) *DefaultEngine {
	return CreateEngineWithConfig(DefaultConfig(), opts...)
}

func CreateEngineWithConfig(config EngineConfig, opts ...Option) *DefaultEngine {
	e := &DefaultEngine{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer: tracenoop.NewTracerProvider().Tracer(instrumentationName),
		meter:  metricnoop.NewMeterProvider().Meter(instrumentationName),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.config.Store(&config)

	var err error
	if e.requests, err = e.meter.Int64Counter("rbrefactor.extract_variable.requests",
		metric.WithDescription("Extract Variable requests by outcome")); err != nil {
		e.logger.Warn("failed to create counter", "err", err)
	}
	if e.failures, err = e.meter.Int64Counter("rbrefactor.extract_variable.failures",
		metric.WithDescription("Extract Variable requests that produced no action")); err != nil {
		e.logger.Warn("failed to create counter", "err", err)
	}
	if e.duration, err = e.meter.Float64Histogram("rbrefactor.extract_variable.duration",
		metric.WithDescription("Extract Variable computation time"), metric.WithUnit("s")); err != nil {
		e.logger.Warn("failed to create histogram", "err", err)
	}
	return e
}

// Config returns a snapshot of the current configuration.
func (e *DefaultEngine) Config() EngineConfig {
	return *e.config.Load()
}

// SetConfig replaces the configuration. Requests already running keep the
// snapshot they started with.
func (e *DefaultEngine) SetConfig(cfg EngineConfig) {
	e.config.Store(&cfg)
}

func (e *DefaultEngine) ExtractVariable(ctx context.Context, tree *syntax.Tree, req types.ExtractVariableRequest) (*types.CodeActionResult, error) {
	lines := tree.Lines()
	sel := types.Selection{
		Start:   lines.Offset(req.Range.Start),
		End:     lines.Offset(req.Range.End),
		Version: req.Version,
	}
	return e.ExtractVariableAt(ctx, tree, sel, req.Name)
}

func (e *DefaultEngine) ExtractVariableAt(ctx context.Context, tree *syntax.Tree, sel types.Selection, name string) (*types.CodeActionResult, error) {
	cfg := e.Config()
	started := time.Now()

	ctx, span := e.tracer.Start(ctx, "ExtractVariable", trace.WithAttributes(
		attribute.String("document.uri", tree.URI),
		attribute.Int("document.version", tree.Version),
		attribute.Int("selection.start", sel.Start),
		attribute.Int("selection.end", sel.End),
	))
	defer span.End()

	result, err := e.extract(ctx, tree, sel, name, cfg)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		if kind, ok := types.ErrorTypeOf(err); ok {
			outcome = kind.String()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
		e.logger.Debug("extract variable declined", "uri", tree.URI, "outcome", outcome, "err", err)
	} else {
		span.SetAttributes(attribute.String("variable.name", result.Name), attribute.Int("edits", len(result.Edits)))
		e.logger.Debug("extract variable", "uri", tree.URI, "name", result.Name, "edits", len(result.Edits))
	}
	span.SetAttributes(attribute.String("outcome", outcome))
	e.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	e.duration.Record(ctx, time.Since(started).Seconds())

	if err != nil {
		return nil, err
	}
	return result, nil
}

var localName = regexp.MustCompile(`^[a-z_][A-Za-z0-9_]*$`)

// reservedWords cannot name a local variable.
var reservedWords = map[string]bool{
	"__ENCODING__": true, "__FILE__": true, "__LINE__": true,
	"alias": true, "and": true, "begin": true, "break": true, "case": true,
	"class": true, "def": true, "defined?": true, "do": true, "else": true,
	"elsif": true, "end": true, "ensure": true, "false": true, "for": true,
	"if": true, "in": true, "module": true, "next": true, "nil": true,
	"not": true, "or": true, "redo": true, "rescue": true, "retry": true,
	"return": true, "self": true, "super": true, "then": true, "true": true,
	"undef": true, "unless": true, "until": true, "when": true, "while": true,
	"yield": true,
}

// ValidLocalName reports whether name can be used as a local variable.
func ValidLocalName(name string) bool {
	return localName.MatchString(name) && !reservedWords[name]
}

func (e *DefaultEngine) extract(ctx context.Context, tree *syntax.Tree, sel types.Selection, name string, cfg EngineConfig) (*types.CodeActionResult, error) {
	if !cfg.ExtractToVariable {
		return nil, types.Errorf(types.FeatureDisabled, "extract to variable is disabled")
	}
	if sel.Version != tree.Version {
		return nil, &types.RefactorError{
			Type:    types.StaleDocument,
			Message: fmt.Sprintf("request is for version %d but the document is at version %d", sel.Version, tree.Version),
			File:    tree.URI,
		}
	}
	if name == "" {
		name = cfg.VariableName
	}
	if name == "" {
		name = analysis.DefaultVariableName
	}
	if !ValidLocalName(name) {
		return nil, types.Errorf(types.InvalidOperation, "%q is not a valid local variable name", name)
	}

	trace.SpanFromContext(ctx).AddEvent("find enclosing")
	node, err := analysis.FindEnclosing(tree, sel)
	if err != nil {
		return nil, err
	}
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	trace.SpanFromContext(ctx).AddEvent("enclosing scope")
	scope, _, err := analysis.EnclosingScope(tree, node)
	if err != nil {
		return nil, err
	}
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	trace.SpanFromContext(ctx).AddEvent("insertion point")
	occurrences := analysis.FindOccurrences(tree, node, scope, cfg.Occurrences)
	cand, err := ResolveInsertionPoint(tree, node, occurrences, scope, cfg.SingleLineStyle)
	if err != nil {
		return nil, err
	}
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	return BuildEdits(tree, cand, analysis.FreshName(scope, name))
}

func checkCancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &types.RefactorError{Type: types.Cancelled, Message: "request cancelled", Cause: err}
	}
	return nil
}
