package commands

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	clitestutil "github.com/leapstack-labs/dataviz/internal/cli/testutil"
	"github.com/leapstack-labs/dataviz/internal/cli/output"
	"github.com/leapstack-labs/dataviz/internal/dataset"
	"github.com/leapstack-labs/dataviz/internal/engine"
	"github.com/leapstack-labs/dataviz/internal/testutil"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		name  string
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{name: "load", cmd: NewLoadCommand(), use: "load <file>..."},
		{name: "show", cmd: NewShowCommand(), use: "show <file>"},
		{name: "comment", cmd: NewCommentCommand(), use: "comment <file>", flags: []string{"set"}},
		{name: "validate", cmd: NewValidateCommand(), use: "validate <expression>", flags: []string{"datasets", "disasm"}},
		{name: "eval", cmd: NewEvalCommand(), use: "eval <expression>", flags: []string{"datasets", "anchor", "export"}},
		{name: "functions", cmd: NewFunctionsCommand(), use: "functions"},
		{name: "exports", cmd: NewExportsCommand(), use: "exports <db>"},
		{name: "run", cmd: NewRunCommand(), use: "run <session.yaml>", flags: []string{"report"}},
		{name: "repl", cmd: NewREPLCommand(), use: "repl", flags: []string{"datasets", "history"}},
		{name: "serve", cmd: NewServeCommand(), use: "serve", flags: []string{"datasets", "addr"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			for _, f := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(f), "flag %q should exist", f)
			}
		})
	}
}

func TestDatasetsFlagShorthand(t *testing.T) {
	cmd := NewEvalCommand()
	f := cmd.Flags().ShorthandLookup("d")
	require.NotNil(t, f)
	assert.Equal(t, "datasets", f.Name)
}

// newShell returns a shell over an empty engine with captured output.
func newShell(t *testing.T) (*shell, *clitestutil.TestRenderer) {
	t.Helper()
	tr := clitestutil.NewTestRenderer(output.ModeMarkdown)
	eng := engine.New(engine.Config{CommentDir: t.TempDir(), Logger: testutil.NewTestLogger(t)})
	return &shell{ctx: context.Background(), eng: eng, r: tr.Renderer}, tr
}

func TestShell_Quit(t *testing.T) {
	sh, _ := newShell(t)

	for _, line := range []string{":quit", ":exit", ":q", "  :q  "} {
		assert.True(t, sh.handle(line), line)
	}
	assert.False(t, sh.handle(""))
	assert.False(t, sh.handle(":help"))
}

func TestShell_LoadListEvaluate(t *testing.T) {
	sh, tr := newShell(t)
	dir := t.TempDir()
	volts := testutil.WriteSeries(t, dir, "volts.txt", 1, 2, 3)
	amps := testutil.WriteSeries(t, dir, "amps.txt", 4, 5, 6)

	sh.handle(":load " + volts + " " + amps)
	assert.Contains(t, tr.Output(), "D1--volts (3 rows)")
	assert.Contains(t, tr.Output(), "D2--amps (3 rows)")

	tr.Reset()
	sh.handle(":list")
	assert.Contains(t, tr.Output(), "| D2 ")

	tr.Reset()
	sh.handle("volts * amps")
	out := tr.Output()
	clitestutil.AssertNoANSI(t, out)
	clitestutil.AssertValidMarkdown(t, out)
	assert.Contains(t, out, "volts * amps (anchor D1--volts)")
	assert.Contains(t, out, "| 18 |")
	assert.Empty(t, tr.ErrorOutput())
}

func TestShell_Errors(t *testing.T) {
	sh, tr := newShell(t)
	sh.handle(":load " + testutil.WriteSeries(t, t.TempDir(), "a.txt", 1, 0))

	tests := []struct {
		line string
		want string
	}{
		{line: "a + b", want: "Validation Error"},
		{line: "a +", want: "Parse Error"},
		{line: "a / a", want: "Eval Error: division by zero at sample 1"},
		{line: ":show D9", want: "Not Found Error"},
		{line: ":load " + filepath.Join(t.TempDir(), "missing.txt"), want: "Ingest Error"},
		{line: ":bogus", want: "unknown command :bogus"},
		{line: ":show", want: "usage: :show"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			tr.Reset()
			assert.False(t, sh.handle(tt.line))
			assert.Contains(t, tr.ErrorOutput(), tt.want)
		})
	}
}

func TestShell_ParseErrorCaret(t *testing.T) {
	sh, tr := newShell(t)
	sh.handle(":load " + testutil.WriteSeries(t, t.TempDir(), "a.txt", 1))
	tr.Reset()

	sh.handle("a + )")
	assert.Contains(t, tr.ErrorOutput(), "  a + )\n      ^")
}

func TestShell_Comment(t *testing.T) {
	sh, tr := newShell(t)
	sh.handle(":load " + testutil.WriteSeries(t, t.TempDir(), "temp.txt", 1))

	tr.Reset()
	sh.handle(":comment D1")
	assert.Contains(t, tr.Output(), "(no comment)")

	sh.handle(":comment D1 sensor D1 in the   north tank")
	ds, err := sh.eng.Registry().ByName("D1")
	require.NoError(t, err)
	data, err := os.ReadFile(ds.CommentPath())
	require.NoError(t, err)
	assert.Equal(t, "sensor D1 in the   north tank", string(data))

	tr.Reset()
	sh.handle(":comment D1--temp")
	assert.Contains(t, tr.Output(), "sensor D1 in the   north tank")
}

func TestShell_Completions(t *testing.T) {
	sh, _ := newShell(t)
	sh.handle(":load " + testutil.WriteSeries(t, t.TempDir(), "temp.txt", 1))

	var words []string
	for _, item := range sh.completions() {
		words = append(words, string(item.GetName()))
	}
	assert.Contains(t, words, "D1 ")
	assert.Contains(t, words, "temp ")
	assert.Contains(t, words, "sin ")
	assert.Contains(t, words, ":load ")
}

func TestPresentError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want []string
	}{
		{
			name: "ingest",
			err:  &dataset.IngestError{Kind: dataset.KindNonNumeric, Path: "x.txt", Line: 4},
			want: []string{"Ingest Error: cannot load x.txt", "line 4 is not two decimal numbers"},
		},
		{
			name: "validation",
			err:  &engine.ValidationError{Expression: "a+b", Unknown: []string{"a", "b"}},
			want: []string{"Validation Error", "unknown: a, b"},
		},
		{
			name: "length mismatch",
			err:  &engine.LengthMismatchError{Dataset: "D2--b", Size: 2, Anchor: "D1--a", AnchorSize: 3},
			want: []string{"Length Mismatch Error: dataset D2--b has 2 rows but anchor D1--a has 3"},
		},
		{
			name: "internal",
			err:  errors.New("disk on fire"),
			want: []string{"Internal Error: disk on fire"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := clitestutil.NewTestRenderer(output.ModeMarkdown)
			presentError(tr.Renderer, "", tt.err)
			for _, w := range tt.want {
				assert.Contains(t, tr.ErrorOutput(), w)
			}
			assert.Empty(t, tr.Output())
		})
	}
}

func TestExportResult_UnsupportedExtension(t *testing.T) {
	_, err := exportResult(context.Background(), filepath.Join(t.TempDir(), "out.xlsx"),
		&engine.Result{X: []float64{0}, Values: []float64{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported export file")
}
