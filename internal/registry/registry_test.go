package registry

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/leapstack-labs/dataviz/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mem(name string, ys ...float64) *dataset.Dataset {
	pts := make([]dataset.Point, len(ys))
	for i, y := range ys {
		pts[i] = dataset.Point{X: float64(i), Y: y}
	}
	return dataset.FromPoints(name, pts)
}

func TestRegistry_Register(t *testing.T) {
	r := New()

	ds, err := r.Register(mem("samples", 1, 2))
	require.NoError(t, err)

	assert.Equal(t, 1, r.Count())
	assert.Equal(t, "D1--samples", ds.Name())
	assert.Equal(t, "D1", ds.Handle())

	got, err := r.ByName("D1--samples")
	require.NoError(t, err)
	assert.Same(t, ds, got, "expected same dataset instance")

	got, err = r.ByName("D1")
	require.NoError(t, err)
	assert.Same(t, ds, got)
}

func TestRegistry_RegisterRejects(t *testing.T) {
	r := New()

	_, err := r.Register(nil)
	assert.Error(t, err)

	ds, err := r.Register(mem("a"))
	require.NoError(t, err)

	_, err = r.Register(ds)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
	assert.Equal(t, 1, r.Count())

	next, err := r.Register(mem("b"))
	require.NoError(t, err)
	assert.Equal(t, "D2--b", next.Name(), "a rejected registration does not consume an ordinal")
}

func TestRegistry_OrdinalsSkipFailedLoads(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	paths := []string{
		write("alpha.txt", "1 2\n"),
		write("broken.txt", "1 2\nnope 3\n"),
		write("beta.txt", "3 4\n"),
		write("gamma.dat", "5 6\n"),
	}

	r := New()
	var names []string
	for _, p := range paths {
		ds, err := dataset.Ingest(p, dataset.Options{})
		if err != nil {
			continue
		}
		_, err = r.Register(ds)
		require.NoError(t, err)
		names = append(names, ds.Name())
	}

	assert.Equal(t, []string{"D1--alpha", "D2--beta", "D3--gamma"}, names)
}

func TestRegistry_AllPreservesOrder(t *testing.T) {
	r := New()
	for _, n := range []string{"c", "a", "b"} {
		_, err := r.Register(mem(n))
		require.NoError(t, err)
	}

	var got []string
	for _, ds := range r.All() {
		got = append(got, ds.FileName())
	}
	assert.Equal(t, []string{"c", "a", "b"}, got)

	first, err := r.First()
	require.NoError(t, err)
	assert.Equal(t, "D1--c", first.Name())
}

func TestRegistry_First_Empty(t *testing.T) {
	_, err := New().First()
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestRegistry_ByName_NotFound(t *testing.T) {
	r := New()
	_, err := r.ByName("D9")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRegistry_Resolve(t *testing.T) {
	r := New()
	a, _ := r.Register(mem("temp", 1))
	b, _ := r.Register(mem("pressure", 2))
	dup, _ := r.Register(mem("temp", 3))

	tests := []struct {
		name  string
		ident string
		want  *dataset.Dataset
		found bool
	}{
		{name: "handle", ident: "D2", want: b, found: true},
		{name: "display name", ident: "D3--temp", want: dup, found: true},
		{name: "file name earliest wins", ident: "temp", want: a, found: true},
		{name: "file name", ident: "pressure", want: b, found: true},
		{name: "unknown", ident: "humidity", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Resolve(tt.ident)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Same(t, tt.want, got)
			}
		})
	}
}

func TestRegistry_Remove(t *testing.T) {
	r := New()
	_, _ = r.Register(mem("a"))
	_, _ = r.Register(mem("b"))

	require.NoError(t, r.Remove("D1"))
	assert.Equal(t, 1, r.Count())

	_, err := r.ByName("D1--a")
	assert.ErrorIs(t, err, ErrNotFound)

	first, err := r.First()
	require.NoError(t, err)
	assert.Equal(t, "D2--b", first.Name(), "remaining names are stable")

	c, _ := r.Register(mem("c"))
	assert.Equal(t, "D3--c", c.Name(), "ordinals are never reused")

	assert.ErrorIs(t, r.Remove("D1"), ErrNotFound)
}

func TestRegistry_NameSets(t *testing.T) {
	r := New()
	_, _ = r.Register(mem("temp"))
	_, _ = r.Register(mem("flow"))

	assert.Equal(t, map[string]struct{}{
		"D1--temp": {}, "D1": {},
		"D2--flow": {}, "D2": {},
	}, r.DatasetNames())
	assert.Equal(t, map[string]struct{}{"temp": {}, "flow": {}}, r.FileNames())
}

func TestRegistry_ConcurrentRegister(t *testing.T) {
	r := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.Register(mem("x"))
			_ = r.All()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, r.Count())
	seen := make(map[int]bool)
	for _, ds := range r.All() {
		assert.False(t, seen[ds.Ordinal()], "duplicate ordinal %d", ds.Ordinal())
		seen[ds.Ordinal()] = true
	}
}
