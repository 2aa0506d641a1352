package export

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/leapstack-labs/dataviz/internal/engine"
	"github.com/parquet-go/parquet-go"
)

// Row is one sample of a parquet export.
type Row struct {
	Index int64   `parquet:"index"`
	X     float64 `parquet:"x"`
	Y     float64 `parquet:"y"`
}

// WriteParquet writes res to path as rows of {index, x, y}.
func WriteParquet(path string, res *engine.Result) error {
	if len(res.X) != len(res.Values) {
		return fmt.Errorf("result has %d x values for %d samples", len(res.X), len(res.Values))
	}

	file, err := os.Create(path) //nolint:gosec // path is user-selected output
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	writer := parquet.NewWriter(file, parquet.SchemaOf(Row{}))
	for i, y := range res.Values {
		if err := writer.Write(Row{Index: int64(i), X: res.X[i], Y: y}); err != nil {
			_ = file.Close()
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	if err := writer.Close(); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return file.Close()
}

// ReadParquet reads rows written by WriteParquet, in index order.
func ReadParquet(path string) ([]Row, error) {
	file, err := os.Open(path) //nolint:gosec // path is user-selected input
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[Row](file)
	defer func() { _ = reader.Close() }()

	rows := make([]Row, reader.NumRows())
	read := 0
	for read < len(rows) {
		n, err := reader.Read(rows[read:])
		read += n
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
	return rows[:read], nil
}
