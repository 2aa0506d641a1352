package commands

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/dataviz/internal/cli/output"
	"github.com/leapstack-labs/dataviz/internal/dataset"
	"github.com/spf13/cobra"
)

// NewLoadCommand creates the load command.
func NewLoadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "load <file>...",
		Short: "Load dataset files and list the resulting registry",
		Long: `Load two-column numeric files in the order given.

Each valid file is named D<n>--<file>, where n counts successful loads only.
Files that fail to parse are reported and do not consume a number.`,
		Example: `  dataviz load temp.txt flow.txt
  dataviz load -o json data/*.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewCommandContext(cmd)
			failed := c.LoadDatasets(cmd.Context(), args)

			if err := renderRegistry(c.Renderer, c.Engine.Registry().All()); err != nil {
				return err
			}
			if failed > 0 {
				return ErrReported
			}
			return nil
		},
	}
}

func renderRegistry(r *output.Renderer, all []*dataset.Dataset) error {
	rows := make([][]any, 0, len(all))
	for _, ds := range all {
		rows = append(rows, []any{ds.Handle(), ds.Name(), ds.Size(), ds.Path()})
	}
	return r.Table([]string{"handle", "name", "rows", "path"}, rows)
}

// NewShowCommand creates the show command.
func NewShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <file>",
		Short: "Print the points of a dataset file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewCommandContext(cmd)
			ds, err := c.Engine.Ingest(args[0])
			if err != nil {
				presentError(c.Renderer, "", err)
				return ErrReported
			}
			return renderPoints(c.Renderer, ds)
		},
	}
}

func renderPoints(r *output.Renderer, ds *dataset.Dataset) error {
	switch r.EffectiveMode() {
	case output.ModeMarkdown:
		r.Header(2, fmt.Sprintf("%s (%d rows)", ds.Name(), ds.Size()))
		r.Println(output.FormatKeyValue("Path", ds.Path()))
		r.Println("")
	case output.ModeText:
		r.Header(2, fmt.Sprintf("%s (%d rows)", ds.Name(), ds.Size()))
	}
	rows := make([][]any, ds.Size())
	for i, p := range ds.Points() {
		rows[i] = []any{i, p.X, p.Y}
	}
	return r.Table([]string{"index", "x", "y"}, rows)
}

// NewCommentCommand creates the comment command.
func NewCommentCommand() *cobra.Command {
	var text string

	cmd := &cobra.Command{
		Use:   "comment <file>",
		Short: "Read or replace the comment stored for a data file",
		Long: `Read or replace the free-text comment for a data file.

Comments live in <file>_description.txt, next to the data file or in
comments_dir when configured. A file without one has an empty comment.
The data file itself is not read, so a file that fails to load can still
carry a comment.`,
		Example: `  dataviz comment temp.txt
  dataviz comment temp.txt --set "sensor 4, calibrated"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewCommandContext(cmd)
			slot := c.Engine.Comment(args[0])

			if cmd.Flags().Changed("set") {
				if err := slot.Save(text); err != nil {
					return fmt.Errorf("failed to save comment: %w", err)
				}
				c.Logger.Info("comment saved", "file", slot.FileName, "path", slot.Path)
				c.Renderer.Success(fmt.Sprintf("Comment saved to %s", slot.Path))
				return nil
			}

			comment, err := slot.Load()
			if err != nil {
				return fmt.Errorf("failed to read comment: %w", err)
			}
			if c.Renderer.EffectiveMode() == output.ModeJSON {
				return c.Renderer.JSON(map[string]string{"file": slot.FileName, "path": slot.Path, "comment": comment})
			}
			if comment == "" {
				c.Renderer.Muted("(no comment)")
				return nil
			}
			c.Renderer.Println(comment)
			return nil
		},
	}

	cmd.Flags().StringVar(&text, "set", "", "Replace the comment with this text")
	return cmd
}

// errNoDatasets is returned when a command that evaluates needs datasets.
var errNoDatasets = errors.New("no datasets loaded; pass files with -d")
