package commands

import (
	"fmt"
	"os"

	"github.com/leapstack-labs/dataviz/internal/cli/output"
	"github.com/leapstack-labs/dataviz/internal/session"
	"github.com/spf13/cobra"
)

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	var reportPath string

	cmd := &cobra.Command{
		Use:   "run <session.yaml>",
		Short: "Run a batch session file",
		Long: `Run a session file: load its datasets in order, store their comments,
then evaluate every expression. Failed loads and evaluations are reported
and the run continues.`,
		Example: `  dataviz run session.yaml
  dataviz run session.yaml --report report.yaml -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewCommandContext(cmd)

			s, err := session.Load(args[0])
			if err != nil {
				return err
			}
			report, err := s.Run(cmd.Context(), c.Engine)
			if err != nil {
				return err
			}

			if reportPath != "" {
				if err := writeReport(reportPath, report); err != nil {
					return err
				}
				c.Logger.Info("report written", "path", reportPath)
			}

			if err := renderReport(c.Renderer, report); err != nil {
				return err
			}
			if report.Failures() > 0 {
				return ErrReported
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&reportPath, "report", "", "Write the full report, including values, as YAML")
	_ = cmd.MarkFlagFilename("report", "yaml", "yml")
	return cmd
}

func writeReport(path string, report *session.Report) error {
	f, err := os.Create(path) //nolint:gosec // path is user-selected output
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := report.WriteYAML(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func renderReport(r *output.Renderer, report *session.Report) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(report)
	}

	r.Header(2, "Datasets")
	for _, d := range report.Datasets {
		if d.Error != "" {
			r.StatusLine(false, d.Path, output.KindLabel(d.Kind)+": "+d.Error)
			continue
		}
		r.StatusLine(true, d.Path, fmt.Sprintf("%s, %d rows", d.Name, d.Rows))
	}

	r.Println("")
	r.Header(2, "Expressions")
	for _, x := range report.Expressions {
		if x.Error != "" {
			r.StatusLine(false, x.Name, output.KindLabel(x.Kind)+": "+x.Error)
			continue
		}
		r.StatusLine(true, x.Name, fmt.Sprintf("%d values (anchor %s)", x.Result.Len(), x.Result.Anchor))
	}

	r.Println("")
	r.Muted(fmt.Sprintf("%d failure(s)", report.Failures()))
	return nil
}
