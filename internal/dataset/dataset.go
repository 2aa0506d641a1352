// Package dataset provides ingestion and access for two-column numeric datasets.
//
// A Dataset only exists once every line of its source file has parsed as an
// (x, y) pair of decimal numbers. Ingestion is all-or-nothing: the first bad
// line discards everything read so far and no Dataset is returned.
//
// Datasets are immutable after Ingest returns. Display names are assigned
// exactly once, by the registry, when the dataset is registered.
package dataset

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Point is a single (x, y) sample.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dataset is a validated, read-only table of (x, y) samples.
type Dataset struct {
	path     string
	fileName string
	comment  Comment
	rows     []Point

	// Set once by AssignName.
	ordinal int
	name    string
	handle  string
}

// Size returns the number of rows.
func (d *Dataset) Size() int {
	return len(d.rows)
}

// PointAt returns the i-th sample.
func (d *Dataset) PointAt(i int) (Point, error) {
	if i < 0 || i >= len(d.rows) {
		return Point{}, &IndexError{Index: i, Size: len(d.rows)}
	}
	return d.rows[i], nil
}

// Points returns a copy of all samples in file order.
func (d *Dataset) Points() []Point {
	out := make([]Point, len(d.rows))
	copy(out, d.rows)
	return out
}

// Xs returns the x column.
func (d *Dataset) Xs() []float64 {
	out := make([]float64, len(d.rows))
	for i, p := range d.rows {
		out[i] = p.X
	}
	return out
}

// Ys returns the y column.
func (d *Dataset) Ys() []float64 {
	out := make([]float64, len(d.rows))
	for i, p := range d.rows {
		out[i] = p.Y
	}
	return out
}

// Path returns the source file path the dataset was read from.
func (d *Dataset) Path() string {
	return d.path
}

// FileName returns the source file's base name without extension.
func (d *Dataset) FileName() string {
	return d.fileName
}

// Name returns the display name ("D1--samples"). Empty until registered.
func (d *Dataset) Name() string {
	return d.name
}

// Handle returns the short identifier ("D1") usable inside expressions.
func (d *Dataset) Handle() string {
	return d.handle
}

// Ordinal returns the load ordinal, or 0 for an unregistered dataset.
func (d *Dataset) Ordinal() int {
	return d.ordinal
}

// Named reports whether the dataset has been given a display name.
func (d *Dataset) Named() bool {
	return d.ordinal > 0
}

// AssignName gives the dataset its display name. It may only be called once.
func (d *Dataset) AssignName(ordinal int) error {
	if d.Named() {
		return fmt.Errorf("dataset %s already named", d.name)
	}
	if ordinal <= 0 {
		return fmt.Errorf("invalid ordinal %d", ordinal)
	}
	d.ordinal = ordinal
	d.handle = fmt.Sprintf("D%d", ordinal)
	d.name = DisplayName(ordinal, d.fileName)
	return nil
}

func (d *Dataset) String() string {
	if d.Named() {
		return fmt.Sprintf("%s (%d rows)", d.name, len(d.rows))
	}
	return fmt.Sprintf("%s (%d rows, unregistered)", d.fileName, len(d.rows))
}

// DisplayName formats the default name for the given ordinal and file base name.
func DisplayName(ordinal int, fileName string) string {
	return fmt.Sprintf("D%d--%s", ordinal, fileName)
}

// BaseName strips the directory and every extension from path, so
// "data/run.1.txt" becomes "run".
func BaseName(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return base
}
