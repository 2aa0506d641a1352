package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/dataviz/internal/cli/output"
	"github.com/leapstack-labs/dataviz/internal/engine"
	"github.com/leapstack-labs/dataviz/internal/export"
	"github.com/spf13/cobra"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	var (
		paths  []string
		disasm bool
	)

	cmd := &cobra.Command{
		Use:   "validate <expression>",
		Short: "Check an expression against the loaded datasets and functions",
		Long: `Check that every name in an expression is a loaded dataset (handle,
display name or file name) or a builtin function, then check its syntax.`,
		Example: `  dataviz validate "sin(D1) + D2" -d a.txt -d b.txt
  dataviz validate "temp / flow" -d temp.txt,flow.txt --disasm`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewCommandContext(cmd)
			if c.LoadDatasets(cmd.Context(), paths) > 0 {
				return ErrReported
			}

			src := args[0]
			w := c.Engine.Whitelist()
			valid := w.Validate(src)

			if c.Renderer.EffectiveMode() == output.ModeJSON {
				unknown := w.Unknown(src)
				if unknown == nil {
					unknown = []string{}
				}
				if err := c.Renderer.JSON(map[string]any{"expression": src, "valid": valid, "unknown": unknown}); err != nil {
					return err
				}
				if !valid {
					return ErrReported
				}
				return nil
			}

			prog, err := c.Engine.Compile(src)
			if err != nil {
				presentError(c.Renderer, src, err)
				return ErrReported
			}
			c.Renderer.Success(fmt.Sprintf("%s is valid (%d variable(s): %s)", src, prog.NumVars(), strings.Join(prog.Vars, ", ")))
			if disasm {
				c.Renderer.Println(output.FormatCodeBlock("", prog.String()))
			}
			return nil
		},
	}

	addDatasetsFlag(cmd, &paths)
	cmd.Flags().BoolVar(&disasm, "disasm", false, "Print the compiled program")
	return cmd
}

// EvalOptions holds options for the eval command.
type EvalOptions struct {
	Datasets []string
	Anchor   string
	Export   string
}

// NewEvalCommand creates the eval command.
func NewEvalCommand() *cobra.Command {
	opts := &EvalOptions{}

	cmd := &cobra.Command{
		Use:   "eval <expression>",
		Short: "Evaluate an expression over loaded datasets",
		Long: `Evaluate an expression once per sample of the anchor dataset.

Names are bound to the y column of the dataset they refer to. The anchor
(default: the first loaded dataset) supplies the x column of the result and
fills the first name that is not a loaded dataset. Every referenced dataset
must have as many rows as the anchor.

With --export the result is also saved: a .parquet path writes a parquet file,
a .db or .sqlite path appends it to a SQLite database.`,
		Example: `  dataviz eval "D1 * D2" -d volts.txt -d amps.txt
  dataviz eval "log(flow)" -d temp.txt,flow.txt --anchor D2 -o csv
  dataviz eval "sin(D1)" -d a.txt --export out.parquet`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, args[0], opts)
		},
	}

	addDatasetsFlag(cmd, &opts.Datasets)
	cmd.Flags().StringVar(&opts.Anchor, "anchor", "", "Dataset whose samples drive the evaluation (default: first loaded)")
	cmd.Flags().StringVar(&opts.Export, "export", "", "Also save the result to a .parquet, .db or .sqlite file")
	return cmd
}

func runEval(cmd *cobra.Command, src string, opts *EvalOptions) error {
	c := NewCommandContext(cmd)
	if len(opts.Datasets) == 0 {
		return errNoDatasets
	}
	if c.LoadDatasets(cmd.Context(), opts.Datasets) > 0 {
		return ErrReported
	}

	res, err := c.Engine.EvaluateExpression(src, opts.Anchor)
	if err != nil {
		presentError(c.Renderer, src, err)
		return ErrReported
	}

	if err := renderResult(c.Renderer, res); err != nil {
		return err
	}

	if opts.Export != "" {
		where, err := exportResult(cmd.Context(), opts.Export, res)
		if err != nil {
			return err
		}
		c.Logger.Info("result exported", "path", opts.Export, "samples", res.Len())
		_, _ = fmt.Fprintf(c.Renderer.ErrWriter(), "Exported %d samples to %s\n", res.Len(), where)
	}
	return nil
}

func renderResult(r *output.Renderer, res *engine.Result) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(res)
	case output.ModeText, output.ModeMarkdown:
		r.Header(2, fmt.Sprintf("%s (anchor %s)", res.Expression, res.Anchor))
	}
	rows := make([][]any, res.Len())
	for i, v := range res.Values {
		rows[i] = []any{i, res.X[i], v}
	}
	return r.Table([]string{"index", "x", "value"}, rows)
}

// exportResult saves res to path based on its extension and returns a
// description of where it went.
func exportResult(ctx context.Context, path string, res *engine.Result) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		if err := export.WriteParquet(path, res); err != nil {
			return "", err
		}
		return path, nil
	case ".db", ".sqlite", ".sqlite3":
		store, err := export.OpenSQLite(path)
		if err != nil {
			return "", err
		}
		defer func() { _ = store.Close() }()
		if err := store.Migrate(); err != nil {
			return "", err
		}
		id, err := store.Save(ctx, res)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s (export %s)", path, id), nil
	default:
		return "", fmt.Errorf("unsupported export file %q: use .parquet, .db or .sqlite", path)
	}
}

// NewFunctionsCommand creates the functions command.
func NewFunctionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "functions",
		Short: "List the functions and constants expressions may use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := NewCommandContext(cmd)
			b := c.Engine.Builtins()

			var rows [][]any
			for _, f := range b.Funcs() {
				rows = append(rows, []any{f.Name, f.Arity, f.Doc})
			}
			for _, name := range b.ConstNames() {
				v, _ := b.Const(name)
				rows = append(rows, []any{"$" + name, 0, fmt.Sprintf("constant %g", v)})
			}
			return c.Renderer.Table([]string{"name", "arity", "description"}, rows)
		},
	}
}

// NewExportsCommand creates the exports command.
func NewExportsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "exports <db>",
		Short: "List results saved to a SQLite export database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewCommandContext(cmd)
			store, err := export.OpenSQLite(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			if err := store.Migrate(); err != nil {
				return err
			}

			list, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]any, len(list))
			for i, e := range list {
				rows[i] = []any{e.ID, e.Expression, e.Anchor, e.Rows, e.CreatedAt.Format("2006-01-02 15:04:05")}
			}
			return c.Renderer.Table([]string{"id", "expression", "anchor", "rows", "created"}, rows)
		},
	}
}
