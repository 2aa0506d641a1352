package dataset

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
)

// Options controls where a dataset's side resources live.
type Options struct {
	// CommentDir holds comment sidecars. Empty means the source file's directory.
	CommentDir string
}

// maxLineBytes bounds a single input line.
const maxLineBytes = 1 << 20

// Ingest reads path and returns a fully validated, unnamed dataset.
//
// The file is read twice: once to count non-empty lines so storage can be
// sized exactly, then again from the start to parse. Parsing stops at the
// first line that is not two decimal numbers separated by spaces, tabs or
// commas; rows read before it are dropped and an *IngestError is returned.
func Ingest(path string, opts Options) (*Dataset, error) {
	f, err := os.Open(path) //nolint:gosec // path is user-selected input
	if err != nil {
		return nil, &IngestError{Kind: KindUnreadable, Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	n, err := countLines(f)
	if err != nil {
		return nil, &IngestError{Kind: KindUnreadable, Path: path, Err: err}
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, &IngestError{Kind: KindUnreadable, Path: path, Err: err}
	}

	rows, err := parseRows(f, path, n)
	if err != nil {
		return nil, err
	}

	comment := CommentFor(path, opts)
	return &Dataset{
		path:     path,
		fileName: comment.FileName,
		comment:  comment,
		rows:     rows,
	}, nil
}

// FromPoints builds an unnamed dataset from in-memory samples. The slice is copied.
func FromPoints(fileName string, points []Point) *Dataset {
	rows := make([]Point, len(points))
	copy(rows, points)
	return &Dataset{
		fileName: fileName,
		comment:  Comment{FileName: fileName, Path: CommentFileName(fileName)},
		rows:     rows,
	}
}

func newScanner(r io.Reader) *bufio.Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return s
}

func countLines(r io.Reader) (int, error) {
	s := newScanner(r)
	n := 0
	for s.Scan() {
		if strings.TrimSpace(s.Text()) != "" {
			n++
		}
	}
	return n, s.Err()
}

func parseRows(r io.Reader, path string, capacity int) ([]Point, error) {
	rows := make([]Point, 0, capacity)
	s := newScanner(r)
	lineNo := 0
	for s.Scan() {
		lineNo++
		line := s.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		p, bad, ok := parseLine(line)
		if !ok {
			return nil, &IngestError{Kind: KindNonNumeric, Path: path, Line: lineNo, Token: bad}
		}
		rows = append(rows, p)
	}
	if err := s.Err(); err != nil {
		return nil, &IngestError{Kind: KindUnreadable, Path: path, Err: err}
	}
	return rows, nil
}

func isSeparator(r rune) bool {
	return r == ' ' || r == '\t' || r == ',' || r == '\r'
}

// parseLine splits a line into exactly two numbers. On failure it returns the
// first offending token, or "" when the token count is wrong.
func parseLine(line string) (Point, string, bool) {
	fields := strings.FieldsFunc(line, isSeparator)
	if len(fields) != 2 {
		if len(fields) > 2 {
			return Point{}, fields[2], false
		}
		return Point{}, "", false
	}
	x, ok := parseDecimal(fields[0])
	if !ok {
		return Point{}, fields[0], false
	}
	y, ok := parseDecimal(fields[1])
	if !ok {
		return Point{}, fields[1], false
	}
	return Point{X: x, Y: y}, "", true
}

// parseDecimal accepts plain or scientific decimal notation only. Hex floats,
// underscores, NaN and Inf are rejected even though strconv would take them.
func parseDecimal(tok string) (float64, bool) {
	if !isDecimalShape(tok) {
		return 0, false
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func isDecimalShape(tok string) bool {
	i := 0
	if i < len(tok) && (tok[i] == '+' || tok[i] == '-') {
		i++
	}
	digits := 0
	for i < len(tok) && isDigit(tok[i]) {
		i++
		digits++
	}
	if i < len(tok) && tok[i] == '.' {
		i++
		for i < len(tok) && isDigit(tok[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return false
	}
	if i < len(tok) && (tok[i] == 'e' || tok[i] == 'E') {
		i++
		if i < len(tok) && (tok[i] == '+' || tok[i] == '-') {
			i++
		}
		exp := 0
		for i < len(tok) && isDigit(tok[i]) {
			i++
			exp++
		}
		if exp == 0 {
			return false
		}
	}
	return i == len(tok)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
