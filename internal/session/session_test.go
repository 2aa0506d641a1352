package session

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/dataviz/internal/engine"
	"github.com/leapstack-labs/dataviz/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParse(t *testing.T) {
	s, err := Parse([]byte(`
datasets: [a.txt, b.txt]
comments:
  a.txt: "first run"
  bad.txt: "sensor unplugged at row 2"
expressions:
  - name: doubled
    expr: "D1 + D1"
    anchor: D1
  - expr: "sin(b)"
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"a.txt", "b.txt"}, s.Datasets)
	assert.Equal(t, map[string]string{"a.txt": "first run"}, s.Comments)
	require.Len(t, s.Expressions, 2)
	assert.Equal(t, Expression{Name: "doubled", Expr: "D1 + D1", Anchor: "D1"}, s.Expressions[0])
	assert.Equal(t, "sin(b)", s.Expressions[1].Name, "name defaults to the expression")
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "empty document", input: "", wantErr: "empty session"},
		{name: "no datasets", input: "expressions: []", wantErr: "no datasets"},
		{name: "unknown field", input: "datasets: [a]\nplots: 3", wantErr: "invalid YAML"},
		{name: "missing expr", input: "datasets: [a]\nexpressions:\n  - name: x", wantErr: "has no expr"},
		{name: "comment for unlisted file", input: "datasets: [a]\ncomments: {b: hi}", wantErr: "not in datasets"},
		{name: "malformed", input: "datasets: [a", wantErr: "invalid YAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, loadErr.Path, "nope.yaml")
}

func TestSession_Run(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteSeries(t, dir, "a.txt", 1, 2, 3)
	testutil.WriteFile(t, dir, "bad.txt", "1 2\nnan 3\n")
	testutil.WriteSeries(t, dir, "b.txt", 0, 0, 1)
	path := testutil.WriteFile(t, dir, "session.yaml", `
datasets: [a.txt, bad.txt, b.txt]
comments:
  a.txt: "first run"
expressions:
  - name: doubled
    expr: "D1 + D1"
  - name: ratio
    expr: "a / b"
  - name: typo
    expr: "sinn(a)"
  - name: anchored
    expr: "b"
    anchor: D2
`)

	s, err := Load(path)
	require.NoError(t, err)

	eng := engine.New(engine.Config{CommentDir: filepath.Join(dir, "comments"), Logger: testutil.NewTestLogger(t)})
	report, err := s.Run(context.Background(), eng)
	require.NoError(t, err)

	require.Len(t, report.Datasets, 3)
	assert.Equal(t, "D1--a", report.Datasets[0].Name)
	assert.Equal(t, 3, report.Datasets[0].Rows)
	assert.Equal(t, "ingest", report.Datasets[1].Kind)
	assert.NotEmpty(t, report.Datasets[1].Error)
	assert.Equal(t, "D2--b", report.Datasets[2].Name, "a failed load does not consume an ordinal")

	require.Len(t, report.Expressions, 4)
	assert.Equal(t, []float64{2, 4, 6}, report.Expressions[0].Result.Values)
	assert.Equal(t, "eval", report.Expressions[1].Kind)
	assert.Nil(t, report.Expressions[1].Result)
	assert.Equal(t, "validation", report.Expressions[2].Kind)
	assert.Equal(t, "D2--b", report.Expressions[3].Result.Anchor)
	assert.Equal(t, 3, report.Failures())

	ds, err := eng.Registry().ByName("D1")
	require.NoError(t, err)
	comment, err := ds.LoadComment()
	require.NoError(t, err)
	assert.Equal(t, "first run", comment)

	comment, err = eng.Comment(filepath.Join(dir, "bad.txt")).Load()
	require.NoError(t, err)
	assert.Equal(t, "sensor unplugged at row 2", comment, "comments do not depend on a valid load")
}

func TestSession_RunCancelled(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteSeries(t, dir, "a.txt", 1)
	s, err := Load(testutil.WriteFile(t, dir, "s.yaml", "datasets: [a.txt]\n"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Run(ctx, engine.New(engine.Config{}))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSession_ResolveAbsolute(t *testing.T) {
	dir := t.TempDir()
	abs := testutil.WriteSeries(t, t.TempDir(), "abs.txt", 1)
	s, err := Load(testutil.WriteFile(t, dir, "s.yaml", "datasets: ["+abs+"]\n"))
	require.NoError(t, err)

	assert.Equal(t, abs, s.Resolve(abs))
	assert.Equal(t, filepath.Join(dir, "rel.txt"), s.Resolve("rel.txt"))
}

func TestReport_WriteYAML(t *testing.T) {
	report := &Report{
		Datasets:    []DatasetOutcome{{Path: "a.txt", Name: "D1--a", Rows: 2}},
		Expressions: []ExpressionOutcome{{Name: "x", Kind: "parse", Error: "boom"}},
	}

	var buf bytes.Buffer
	require.NoError(t, report.WriteYAML(&buf))

	var back Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, *report, back)
}

func TestLoad_RelativeToSessionFile(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(sub, 0o750))
	testutil.WriteSeries(t, sub, "a.txt", 5)
	path := testutil.WriteFile(t, dir, "s.yaml", "datasets: [data/a.txt]\nexpressions: [{expr: D1}]\n")

	s, err := Load(path)
	require.NoError(t, err)

	report, err := s.Run(context.Background(), engine.New(engine.Config{}))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Failures())
	assert.Equal(t, []float64{5}, report.Expressions[0].Result.Values)
}
