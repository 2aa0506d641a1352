package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteFile writes content to dir/name and returns the full path.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteSeries writes a two-column file whose x column is 0..len(ys)-1.
func WriteSeries(t testing.TB, dir, name string, ys ...float64) string {
	t.Helper()
	var b strings.Builder
	for i, y := range ys {
		fmt.Fprintf(&b, "%d %g\n", i, y)
	}
	return WriteFile(t, dir, name, b.String())
}
