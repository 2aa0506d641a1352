package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/dataviz/internal/cli/output"
	"github.com/leapstack-labs/dataviz/internal/engine"
	"github.com/spf13/cobra"
)

const replPrompt = "dataviz> "

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	var paths []string

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive expression shell",
		Long: `Start an interactive shell. Lines starting with ':' are commands
(:help lists them); anything else is evaluated as an expression.`,
		Example: `  dataviz repl -d temp.txt -d flow.txt`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := NewCommandContext(cmd)
			c.LoadDatasets(cmd.Context(), paths)
			return runREPL(cmd.Context(), c)
		},
	}

	addDatasetsFlag(cmd, &paths)
	cmd.Flags().String("history", "", "History file (default: repl.history_file)")
	return cmd
}

func runREPL(ctx context.Context, c *CommandContext) error {
	sh := &shell{ctx: ctx, eng: c.Engine, r: c.Renderer}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     c.Cfg.REPL.HistoryFile,
		AutoComplete:    readline.NewPrefixCompleter(sh.completions()...),
		InterruptPrompt: "^C",
		EOFPrompt:       ":quit",
		Stdout:          c.Renderer.Writer(),
		Stderr:          c.Renderer.ErrWriter(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	c.Renderer.Println("dataviz interactive shell")
	c.Renderer.Println("Type :help for commands, :quit to exit")
	c.Renderer.Println("")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if quit := sh.handle(line); quit {
			return nil
		}
		// datasets may have changed
		rl.Config.AutoComplete = readline.NewPrefixCompleter(sh.completions()...)
	}
}

// shell executes REPL lines against an engine.
type shell struct {
	ctx context.Context
	eng *engine.Engine
	r   *output.Renderer
}

// handle runs one input line and reports whether the shell should exit.
func (s *shell) handle(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, ":") {
		s.evaluate(line)
		return false
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case ":quit", ":exit", ":q":
		return true
	case ":help":
		printShellHelp(s.r.Writer())
	case ":load":
		if len(fields) < 2 {
			s.r.Warning("usage: :load <file>...")
			return false
		}
		loaded, errs := s.eng.IngestAll(s.ctx, fields[1:])
		for i, err := range errs {
			if err != nil {
				presentError(s.r, "", err)
				continue
			}
			s.r.Success(fmt.Sprintf("%s (%d rows)", loaded[i].Name(), loaded[i].Size()))
		}
	case ":list":
		_ = renderRegistry(s.r, s.eng.Registry().All())
	case ":show":
		if len(fields) != 2 {
			s.r.Warning("usage: :show <dataset>")
			return false
		}
		ds, err := s.eng.Registry().ByName(fields[1])
		if err != nil {
			presentError(s.r, "", err)
			return false
		}
		_ = renderPoints(s.r, ds)
	case ":comment":
		s.comment(line, fields)
	case ":functions":
		names := make([]string, 0)
		for _, f := range s.eng.Builtins().Funcs() {
			names = append(names, f.Name)
		}
		s.r.Println(strings.Join(names, " "))
	default:
		s.r.Warning(fmt.Sprintf("unknown command %s (type :help for commands)", fields[0]))
	}
	return false
}

// comment handles ":comment <dataset>" and ":comment <dataset> <text...>".
func (s *shell) comment(line string, fields []string) {
	if len(fields) < 2 {
		s.r.Warning("usage: :comment <dataset> [text]")
		return
	}
	ds, err := s.eng.Registry().ByName(fields[1])
	if err != nil {
		presentError(s.r, "", err)
		return
	}
	if len(fields) == 2 {
		text, err := ds.LoadComment()
		if err != nil {
			presentError(s.r, "", err)
			return
		}
		if text == "" {
			s.r.Muted("(no comment)")
			return
		}
		s.r.Println(text)
		return
	}

	rest := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
	rest = strings.TrimSpace(strings.TrimPrefix(rest, fields[1]))
	if err := ds.SaveComment(rest); err != nil {
		presentError(s.r, "", err)
		return
	}
	s.r.Success("comment saved for " + ds.Name())
}

func (s *shell) evaluate(src string) {
	res, err := s.eng.EvaluateExpression(src, "")
	if err != nil {
		presentError(s.r, src, err)
		return
	}
	_ = renderResult(s.r, res)
}

// completions returns the shell commands, dataset handles, file names and
// functions for tab completion.
func (s *shell) completions() []readline.PrefixCompleterInterface {
	words := []string{":help", ":load", ":list", ":show", ":comment", ":functions", ":quit"}
	for _, ds := range s.eng.Registry().All() {
		words = append(words, ds.Handle(), ds.FileName())
	}
	for _, f := range s.eng.Builtins().Funcs() {
		words = append(words, f.Name)
	}
	sort.Strings(words)

	items := make([]readline.PrefixCompleterInterface, len(words))
	for i, w := range words {
		items[i] = readline.PcItem(w)
	}
	return items
}

func printShellHelp(w io.Writer) {
	help := `
Commands:
  :load <file>...            Load dataset files (named D1, D2, ...)
  :list                      List loaded datasets
  :show <dataset>            Print a dataset's points
  :comment <dataset> [text]  Show, or replace, a dataset's comment
  :functions                 List builtin functions
  :help                      Show this help message
  :quit                      Exit the shell

Anything else is evaluated as an expression, e.g.
  sin(D1) + D2
  temp / flow
`
	_, _ = fmt.Fprintln(w, help)
}
