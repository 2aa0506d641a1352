// Package engine ties dataset ingestion, the registry and the expression
// pipeline together. It is the surface used by the CLI, REPL, batch sessions
// and the HTTP server.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/leapstack-labs/dataviz/internal/dataset"
	"github.com/leapstack-labs/dataviz/internal/registry"
	"github.com/leapstack-labs/dataviz/pkg/expr"
	"golang.org/x/sync/errgroup"
)

// Engine owns a dataset registry and the expression whitelist derived from it.
type Engine struct {
	registry     *registry.Registry
	builtins     *expr.Builtins
	commentDir   string
	allowNumbers bool
	logger       *slog.Logger
}

// Config holds engine configuration.
type Config struct {
	// CommentDir is where comment sidecars are kept (empty: next to each source file)
	CommentDir string
	// AllowNumericLiterals accepts digit tokens during whitelist validation
	AllowNumericLiterals bool
	// Builtins is the function table (optional, uses expr.DefaultBuiltins if nil)
	Builtins *expr.Builtins
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Result is the output of a successful expression evaluation.
type Result struct {
	Expression string            `json:"expression" yaml:"expression"`
	Anchor     string            `json:"anchor" yaml:"anchor"`
	Vars       map[string]string `json:"vars,omitempty" yaml:"vars,omitempty"` // variable → dataset name
	X          []float64         `json:"x" yaml:"x"`
	Values     []float64         `json:"values" yaml:"values"`
}

// Len returns the number of samples.
func (r *Result) Len() int {
	return len(r.Values)
}

// New creates an engine with an empty registry.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	b := cfg.Builtins
	if b == nil {
		b = expr.DefaultBuiltins()
	}
	return &Engine{
		registry:     registry.New(),
		builtins:     b,
		commentDir:   cfg.CommentDir,
		allowNumbers: cfg.AllowNumericLiterals,
		logger:       logger,
	}
}

// Registry returns the dataset registry.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Builtins returns the function table.
func (e *Engine) Builtins() *expr.Builtins {
	return e.builtins
}

// Ingest reads path and registers the dataset. Failed loads are not registered
// and do not consume an ordinal.
func (e *Engine) Ingest(path string) (*dataset.Dataset, error) {
	ds, err := dataset.Ingest(path, dataset.Options{CommentDir: e.commentDir})
	if err != nil {
		e.logger.Warn("dataset rejected", "path", path, "error", err)
		return nil, err
	}
	return e.register(ds)
}

func (e *Engine) register(ds *dataset.Dataset) (*dataset.Dataset, error) {
	if _, err := e.registry.Register(ds); err != nil {
		return nil, err
	}
	e.logger.Info("dataset loaded", "name", ds.Name(), "path", ds.Path(), "rows", ds.Size())
	return ds, nil
}

// Comment returns the comment slot for the data file at path. The file is
// not read, so comments work for files that fail to ingest.
func (e *Engine) Comment(path string) dataset.Comment {
	return dataset.CommentFor(path, dataset.Options{CommentDir: e.commentDir})
}

// IngestAll reads every path concurrently and registers the successes in
// argument order, so ordinals follow the order paths were given. The returned
// slices are aligned with paths: exactly one of datasets[i] and errs[i] is set.
func (e *Engine) IngestAll(ctx context.Context, paths []string) ([]*dataset.Dataset, []error) {
	parsed := make([]*dataset.Dataset, len(paths))
	errs := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			parsed[i], errs[i] = dataset.Ingest(path, dataset.Options{CommentDir: e.commentDir})
			return nil
		})
	}
	_ = g.Wait()

	for i, ds := range parsed {
		if errs[i] != nil {
			e.logger.Warn("dataset rejected", "path", paths[i], "error", errs[i])
			continue
		}
		if _, err := e.register(ds); err != nil {
			parsed[i], errs[i] = nil, err
		}
	}
	return parsed, errs
}

// Whitelist returns the identifiers expressions may currently use.
// It must be rebuilt after datasets are added or removed.
func (e *Engine) Whitelist() expr.Whitelist {
	return expr.Whitelist{
		Datasets:     e.registry.DatasetNames(),
		Functions:    e.builtins.Names(),
		Files:        e.registry.FileNames(),
		AllowNumbers: e.allowNumbers,
	}
}

// Validate checks src against the current whitelist.
func (e *Engine) Validate(src string) bool {
	return e.Whitelist().Validate(src)
}

// Compile validates and compiles src. A whitelist failure is a
// *ValidationError wrapping ErrInvalidExpression; a syntax error is an
// *expr.ParseError.
func (e *Engine) Compile(src string) (*expr.Program, error) {
	w := e.Whitelist()
	if !w.Validate(src) {
		return nil, &ValidationError{Expression: src, Unknown: w.Unknown(src)}
	}
	prog, err := expr.CompileNames(src, e.builtins, variableNames(w))
	if err != nil {
		return nil, err
	}
	return prog, nil
}

// variableNames is every word that names a dataset. Such words bind to the
// dataset even when spelled like a constant or a number.
func variableNames(w expr.Whitelist) expr.Set {
	names := make(expr.Set, len(w.Datasets)+len(w.Files))
	for n := range w.Datasets {
		names[n] = struct{}{}
	}
	for n := range w.Files {
		names[n] = struct{}{}
	}
	return names
}

// Bindings resolves each variable of prog to a registered dataset.
// Unresolvable names are left out.
func (e *Engine) Bindings(prog *expr.Program) map[string]*dataset.Dataset {
	out := make(map[string]*dataset.Dataset, prog.NumVars())
	for _, name := range prog.Vars {
		if ds, ok := e.registry.Resolve(name); ok {
			out[name] = ds
		}
	}
	return out
}

// Anchor returns the named dataset, or the first registered one if name is empty.
func (e *Engine) Anchor(name string) (*dataset.Dataset, error) {
	if name == "" {
		return e.registry.First()
	}
	return e.registry.ByName(name)
}

// EvaluateExpression validates, compiles and evaluates src against the
// registered datasets, anchored on anchorName (or the first dataset).
func (e *Engine) EvaluateExpression(src, anchorName string) (*Result, error) {
	anchor, err := e.Anchor(anchorName)
	if err != nil {
		return nil, fmt.Errorf("anchor: %w", err)
	}

	prog, err := e.Compile(src)
	if err != nil {
		return nil, err
	}

	ev := NewEvaluation(prog, anchor, e.Bindings(prog))
	values, err := ev.Run()
	if err != nil {
		e.logger.Warn("evaluation failed", "expression", src, "anchor", anchor.Name(), "error", err)
		return nil, err
	}

	vars := make(map[string]string, prog.NumVars())
	for slot, ds := range ev.Sources() {
		vars[prog.Vars[slot]] = ds.Name()
	}

	e.logger.Debug("expression evaluated", "expression", src, "anchor", anchor.Name(), "samples", len(values))
	return &Result{
		Expression: src,
		Anchor:     anchor.Name(),
		Vars:       vars,
		X:          anchor.Xs(),
		Values:     values,
	}, nil
}
