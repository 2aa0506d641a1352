package output

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// FormatHeader returns a markdown heading.
func FormatHeader(level int, text string) string {
	if level < 1 {
		level = 1
	}
	return strings.Repeat("#", level) + " " + text
}

// FormatKeyValue returns a markdown list item "- **key**: value".
func FormatKeyValue(key, value string) string {
	return fmt.Sprintf("- **%s**: %s", key, value)
}

// FormatCodeBlock wraps text in a fenced code block.
func FormatCodeBlock(lang, text string) string {
	return "```" + lang + "\n" + strings.TrimRight(text, "\n") + "\n```"
}

// KindLabel turns an error kind such as "length_mismatch" into a heading
// such as "Length Mismatch Error".
func KindLabel(kind string) string {
	if kind == "" {
		kind = "internal"
	}
	return titleCaser.String(strings.ReplaceAll(kind, "_", " ")) + " Error"
}

// Table writes rows under headers in the renderer's effective mode: a boxed
// table in text mode, a pipe table in markdown, comma separated in CSV and an
// array of objects in JSON.
func (r *Renderer) Table(headers []string, rows [][]any) error {
	mode := r.EffectiveMode()
	if mode == ModeJSON {
		out := make([]map[string]any, len(rows))
		for i, row := range rows {
			obj := make(map[string]any, len(headers))
			for j, h := range headers {
				if j < len(row) {
					obj[h] = row[j]
				}
			}
			out[i] = obj
		}
		return r.JSON(out)
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	t.AppendHeader(header)
	for _, row := range rows {
		t.AppendRow(table.Row(row))
	}

	switch mode {
	case ModeMarkdown:
		t.RenderMarkdown()
	case ModeCSV:
		t.RenderCSV()
	default:
		t.Render()
		r.Muted(fmt.Sprintf("(%d rows)", len(rows)))
	}
	return nil
}

// Failure writes an error to the diagnostics writer with a heading
// distinct for each error kind, followed by optional detail lines.
func (r *Renderer) Failure(kind, msg string, details ...string) {
	label := KindLabel(kind)
	if r.EffectiveMode() != ModeText {
		_, _ = fmt.Fprintf(r.errW, "%s: %s\n", label, msg)
		for _, d := range details {
			_, _ = fmt.Fprintln(r.errW, d)
		}
		return
	}
	style := r.styles.ForKind(kind)
	_, _ = fmt.Fprintf(r.errW, "%s %s\n", style.Render(label+":"), msg)
	for _, d := range details {
		_, _ = fmt.Fprintln(r.errW, r.styles.Muted.Render(d))
	}
}
