package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/dataviz/internal/cli/config"
	"github.com/leapstack-labs/dataviz/internal/cli/output"
	"github.com/leapstack-labs/dataviz/internal/dataset"
	"github.com/leapstack-labs/dataviz/internal/engine"
	"github.com/leapstack-labs/dataviz/pkg/expr"
	"github.com/spf13/cobra"
)

// ErrReported is returned by commands whose failure has already been shown
// to the user. Callers should exit non-zero without printing it again.
var ErrReported = errors.New("error already reported")

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with an empty engine configured
// from the loaded config.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := config.GetCurrentConfig()
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	eng := engine.New(engine.Config{
		CommentDir:           cfg.CommentsDir,
		AllowNumericLiterals: cfg.Expression.AllowNumericLiterals,
		Logger:               logger,
	})

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Engine:   eng,
		Renderer: r,
	}
}

// LoadDatasets ingests paths in order, reporting each failure. It returns the
// number of failed loads.
func (c *CommandContext) LoadDatasets(ctx context.Context, paths []string) int {
	_, errs := c.Engine.IngestAll(ctx, paths)
	failed := 0
	for _, err := range errs {
		if err != nil {
			presentError(c.Renderer, "", err)
			failed++
		}
	}
	return failed
}

// addDatasetsFlag registers the -d/--datasets flag shared by commands that
// evaluate expressions.
func addDatasetsFlag(cmd *cobra.Command, paths *[]string) {
	cmd.Flags().StringSliceVarP(paths, "datasets", "d", nil, "Dataset files to load, in order (D1, D2, ...)")
	_ = cmd.MarkFlagFilename("datasets", "txt", "dat", "csv")
}

// presentError shows err with a heading specific to its kind. src is the
// expression being evaluated, if any, and is used to point at parse errors.
func presentError(r *output.Renderer, src string, err error) {
	kind := engine.ErrorKind(err)

	var (
		ingestErr *dataset.IngestError
		validErr  *engine.ValidationError
		parseErr  *expr.ParseError
		evalErr   *engine.EvalError
	)
	switch {
	case errors.As(err, &ingestErr):
		var details []string
		if ingestErr.Kind == dataset.KindNonNumeric {
			details = append(details, fmt.Sprintf("line %d is not two decimal numbers", ingestErr.Line))
		}
		r.Failure(kind, fmt.Sprintf("cannot load %s", ingestErr.Path), details...)
	case errors.As(err, &validErr):
		r.Failure(kind, fmt.Sprintf("%q uses names that are not loaded datasets or functions", validErr.Expression),
			"unknown: "+strings.Join(validErr.Unknown, ", "))
	case errors.As(err, &parseErr):
		details := []string{}
		if src != "" && parseErr.Pos.IsValid() {
			details = append(details, "  "+src, "  "+strings.Repeat(" ", parseErr.Pos.Column-1)+"^")
		}
		r.Failure(kind, parseErr.Error(), details...)
	case errors.As(err, &evalErr):
		r.Failure(kind, fmt.Sprintf("%s at sample %d", evalErr.Code, evalErr.Index),
			"no values were produced")
	default:
		r.Failure(kind, err.Error())
	}
}
