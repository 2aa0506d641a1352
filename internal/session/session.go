// Package session runs batch sessions described in YAML: a list of dataset
// files to load, optional comments for them, and expressions to evaluate.
//
//	datasets: [temp.txt, flow.txt]
//	comments:
//	  temp.txt: "calibrated 2024-03"
//	expressions:
//	  - name: ratio
//	    expr: "temp / flow"
//	    anchor: D1
//
// Relative dataset paths are resolved against the session file's directory.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/dataviz/internal/engine"
	"gopkg.in/yaml.v3"
)

// Session is a parsed session file.
type Session struct {
	Datasets    []string          `yaml:"datasets"`
	Comments    map[string]string `yaml:"comments,omitempty"`
	Expressions []Expression      `yaml:"expressions"`

	dir string
}

// Expression is one expression to evaluate.
type Expression struct {
	Name   string `yaml:"name,omitempty"`
	Expr   string `yaml:"expr"`
	Anchor string `yaml:"anchor,omitempty"` // empty: first dataset
}

// LoadError reports an unreadable or malformed session file.
type LoadError struct {
	Path    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("session %s: %s", e.Path, e.Message)
}

// Load reads and checks a session file.
func Load(path string) (*Session, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is user-selected input
	if err != nil {
		return nil, &LoadError{Path: path, Message: err.Error()}
	}
	s, err := Parse(data)
	if err != nil {
		return nil, &LoadError{Path: path, Message: err.Error()}
	}
	s.dir = filepath.Dir(path)
	return s, nil
}

// Parse decodes a session document. Unknown fields are rejected.
func Parse(data []byte) (*Session, error) {
	var s Session
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty session")
		}
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	if len(s.Datasets) == 0 {
		return nil, errors.New("no datasets listed")
	}
	listed := make(map[string]bool, len(s.Datasets))
	for _, p := range s.Datasets {
		listed[p] = true
	}
	for p := range s.Comments {
		if !listed[p] {
			return nil, fmt.Errorf("comment for %q, which is not in datasets", p)
		}
	}
	for i := range s.Expressions {
		ex := &s.Expressions[i]
		if ex.Expr == "" {
			return nil, fmt.Errorf("expression %d has no expr", i+1)
		}
		if ex.Name == "" {
			ex.Name = ex.Expr
		}
	}
	return &s, nil
}

// Resolve returns p relative to the session file's directory.
func (s *Session) Resolve(p string) string {
	if filepath.IsAbs(p) || s.dir == "" {
		return p
	}
	return filepath.Join(s.dir, p)
}

// Report is the outcome of running a session.
type Report struct {
	Datasets    []DatasetOutcome    `json:"datasets" yaml:"datasets"`
	Expressions []ExpressionOutcome `json:"expressions" yaml:"expressions"`
}

// DatasetOutcome records one load attempt.
type DatasetOutcome struct {
	Path  string `json:"path" yaml:"path"`
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Rows  int    `json:"rows" yaml:"rows"`
	Kind  string `json:"kind,omitempty" yaml:"kind,omitempty"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// ExpressionOutcome records one evaluation. Exactly one of Result and Error is set.
type ExpressionOutcome struct {
	Name   string         `json:"name" yaml:"name"`
	Result *engine.Result `json:"result,omitempty" yaml:"result,omitempty"`
	Kind   string         `json:"kind,omitempty" yaml:"kind,omitempty"`
	Error  string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failures counts failed loads and evaluations.
func (r *Report) Failures() int {
	n := 0
	for _, d := range r.Datasets {
		if d.Error != "" {
			n++
		}
	}
	for _, x := range r.Expressions {
		if x.Error != "" {
			n++
		}
	}
	return n
}

// Run loads the session's datasets into eng in listed order, stores their
// comments and evaluates every expression. Comments are stored even for files
// that fail to load. Failed loads and evaluations are recorded in the report;
// only cancellation and comment I/O abort the run.
func (s *Session) Run(ctx context.Context, eng *engine.Engine) (*Report, error) {
	paths := make([]string, len(s.Datasets))
	for i, p := range s.Datasets {
		paths[i] = s.Resolve(p)
	}

	loaded, errs := eng.IngestAll(ctx, paths)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{}
	for i, p := range s.Datasets {
		if text, ok := s.Comments[p]; ok {
			if err := eng.Comment(paths[i]).Save(text); err != nil {
				return nil, fmt.Errorf("saving comment for %s: %w", p, err)
			}
		}

		out := DatasetOutcome{Path: p}
		if errs[i] != nil {
			out.Kind = engine.ErrorKind(errs[i])
			out.Error = errs[i].Error()
		} else {
			out.Name = loaded[i].Name()
			out.Rows = loaded[i].Size()
		}
		report.Datasets = append(report.Datasets, out)
	}

	for _, ex := range s.Expressions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out := ExpressionOutcome{Name: ex.Name}
		res, err := eng.EvaluateExpression(ex.Expr, ex.Anchor)
		if err != nil {
			out.Kind = engine.ErrorKind(err)
			out.Error = err.Error()
		} else {
			out.Result = res
		}
		report.Expressions = append(report.Expressions, out)
	}
	return report, nil
}

// WriteYAML writes the report as a YAML document.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return enc.Close()
}
