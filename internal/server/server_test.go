package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/leapstack-labs/dataviz/internal/engine"
	"github.com/leapstack-labs/dataviz/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *engine.Engine) {
	t.Helper()
	logger := testutil.NewTestLogger(t)
	eng := engine.New(engine.Config{CommentDir: t.TempDir(), Logger: logger})
	return New(eng, logger), eng
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func loadJSON(path string) string {
	b, _ := json.Marshal(LoadDatasetRequest{Path: path})
	return string(b)
}

func TestServer_Health(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 0, body["datasets"])
}

func TestServer_LoadAndListDatasets(t *testing.T) {
	s, _ := newTestServer(t)
	dir := t.TempDir()

	rec := do(t, s, http.MethodPost, "/datasets", loadJSON(testutil.WriteSeries(t, dir, "temp.txt", 1, 2, 3)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[DatasetResponse](t, rec)
	assert.Equal(t, "D1", created.Handle)
	assert.Equal(t, "D1--temp", created.Name)
	assert.Equal(t, 3, created.Rows)

	// a rejected file does not consume an ordinal
	bad := testutil.WriteFile(t, dir, "bad.txt", "1 2\nx y\n")
	rec = do(t, s, http.MethodPost, "/datasets", loadJSON(bad))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "ingest", decodeBody[ErrorResponse](t, rec).Kind)

	rec = do(t, s, http.MethodPost, "/datasets", loadJSON(testutil.WriteSeries(t, dir, "flow.txt", 4, 5, 6)))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "D2--flow", decodeBody[DatasetResponse](t, rec).Name)

	rec = do(t, s, http.MethodGet, "/datasets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]DatasetResponse](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, "D1--temp", list[0].Name)
	assert.Equal(t, "D2--flow", list[1].Name)
}

func TestServer_GetAndDeleteDataset(t *testing.T) {
	s, eng := newTestServer(t)
	_, err := eng.Ingest(testutil.WriteSeries(t, t.TempDir(), "temp.txt", 1.5, 2.5))
	require.NoError(t, err)

	rec := do(t, s, http.MethodGet, "/datasets/D1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[DatasetPointsResponse](t, rec)
	assert.Equal(t, "D1--temp", got.Name)
	require.Len(t, got.Points, 2)
	assert.InDelta(t, 2.5, got.Points[1].Y, 1e-12)

	rec = do(t, s, http.MethodGet, "/datasets/D1--temp", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodDelete, "/datasets/D1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodGet, "/datasets/D1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeBody[ErrorResponse](t, rec).Kind)

	rec = do(t, s, http.MethodDelete, "/datasets/D1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Comment(t *testing.T) {
	s, eng := newTestServer(t)
	ds, err := eng.Ingest(testutil.WriteSeries(t, t.TempDir(), "temp.txt", 1))
	require.NoError(t, err)

	rec := do(t, s, http.MethodGet, "/datasets/D1/comment", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, CommentResponse{Dataset: "D1--temp", Comment: ""}, decodeBody[CommentResponse](t, rec))

	rec = do(t, s, http.MethodPut, "/datasets/D1/comment", `{"comment":"sensor 4"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	data, err := os.ReadFile(ds.CommentPath())
	require.NoError(t, err)
	assert.Equal(t, "sensor 4", string(data))

	rec = do(t, s, http.MethodGet, "/datasets/D1/comment", "")
	assert.Equal(t, "sensor 4", decodeBody[CommentResponse](t, rec).Comment)

	rec = do(t, s, http.MethodPut, "/datasets/D9/comment", `{"comment":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ValidateExpression(t *testing.T) {
	s, eng := newTestServer(t)
	_, err := eng.Ingest(testutil.WriteSeries(t, t.TempDir(), "temp.txt", 1, 2))
	require.NoError(t, err)

	rec := do(t, s, http.MethodPost, "/expressions/validate", `{"expression":"sin(D1) + temp"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	ok := decodeBody[ValidateResponse](t, rec)
	assert.True(t, ok.Valid)
	assert.Empty(t, ok.Unknown)

	rec = do(t, s, http.MethodPost, "/expressions/validate", `{"expression":"foo(D1) + bar"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	bad := decodeBody[ValidateResponse](t, rec)
	assert.False(t, bad.Valid)
	assert.Equal(t, []string{"foo", "bar"}, bad.Unknown)
}

func TestServer_EvaluateExpression(t *testing.T) {
	s, eng := newTestServer(t)
	dir := t.TempDir()
	_, err := eng.Ingest(testutil.WriteSeries(t, dir, "volts.txt", 1, 2, 3))
	require.NoError(t, err)
	_, err = eng.Ingest(testutil.WriteSeries(t, dir, "amps.txt", 4, 5, 6))
	require.NoError(t, err)

	rec := do(t, s, http.MethodPost, "/expressions/evaluate", `{"expression":"volts * amps","anchor":"D2"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decodeBody[engine.Result](t, rec)
	assert.Equal(t, []float64{4, 10, 18}, res.Values)
	assert.Equal(t, "D2--amps", res.Anchor)
}

func TestServer_EvaluateErrors(t *testing.T) {
	s, eng := newTestServer(t)
	dir := t.TempDir()
	_, err := eng.Ingest(testutil.WriteSeries(t, dir, "a.txt", 1, 0, 2))
	require.NoError(t, err)
	_, err = eng.Ingest(testutil.WriteSeries(t, dir, "short.txt", 1))
	require.NoError(t, err)

	tests := []struct {
		name   string
		body   string
		status int
		check  func(t *testing.T, e ErrorResponse)
	}{
		{
			name:   "validation",
			body:   `{"expression":"D1 + nope"}`,
			status: http.StatusUnprocessableEntity,
			check: func(t *testing.T, e ErrorResponse) {
				assert.Equal(t, "validation", e.Kind)
				assert.Equal(t, []string{"nope"}, e.Unknown)
			},
		},
		{
			name:   "parse",
			body:   `{"expression":"D1 +"}`,
			status: http.StatusUnprocessableEntity,
			check: func(t *testing.T, e ErrorResponse) {
				assert.Equal(t, "parse", e.Kind)
				assert.NotNil(t, e.Offset)
			},
		},
		{
			name:   "eval",
			body:   `{"expression":"D1 / D1"}`,
			status: http.StatusUnprocessableEntity,
			check: func(t *testing.T, e ErrorResponse) {
				assert.Equal(t, "eval", e.Kind)
				require.NotNil(t, e.Index)
				assert.Equal(t, 1, *e.Index)
				assert.Equal(t, "division by zero", e.Fault)
			},
		},
		{
			name:   "length mismatch",
			body:   `{"expression":"D1 + D2"}`,
			status: http.StatusUnprocessableEntity,
			check: func(t *testing.T, e ErrorResponse) {
				assert.Equal(t, "length_mismatch", e.Kind)
			},
		},
		{
			name:   "unknown anchor",
			body:   `{"expression":"D1","anchor":"D7"}`,
			status: http.StatusNotFound,
			check: func(t *testing.T, e ErrorResponse) {
				assert.Equal(t, "not_found", e.Kind)
			},
		},
		{
			name:   "missing expression",
			body:   `{"anchor":"D1"}`,
			status: http.StatusBadRequest,
			check: func(t *testing.T, e ErrorResponse) {
				assert.Equal(t, "request", e.Kind)
				require.Len(t, e.Fields, 1)
				assert.Equal(t, "expression", e.Fields[0].Field)
				assert.Equal(t, "expression is required", e.Fields[0].Message)
			},
		},
		{
			name:   "malformed JSON",
			body:   `{"expression":`,
			status: http.StatusBadRequest,
			check: func(t *testing.T, e ErrorResponse) {
				assert.Equal(t, "request", e.Kind)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/expressions/evaluate", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			tt.check(t, decodeBody[ErrorResponse](t, rec))
		})
	}
}

func TestServer_EmptyBody(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/datasets", http.NoBody)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	e := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "request body is empty", e.Message)
}

func TestServer_Functions(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/functions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	fns := decodeBody[[]FunctionResponse](t, rec)

	byName := make(map[string]FunctionResponse)
	for _, f := range fns {
		byName[f.Name] = f
	}
	assert.Equal(t, 1, byName["sin"].Arity)
	assert.Equal(t, 2, byName["pow"].Arity)
	require.NotNil(t, byName["$pi"].Value)
	assert.True(t, byName["$pi"].Constant)
}

func TestServer_UnknownRoute(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "route_not_found", decodeBody[ErrorResponse](t, rec).Kind)

	rec = do(t, s, http.MethodPatch, "/datasets", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_RecoversFromPanic(t *testing.T) {
	logger := testutil.NewTestLogger(t)
	h := recoverer(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal", decodeBody[ErrorResponse](t, rec).Kind)
}

func TestServer_ListenAndServeShutsDown(t *testing.T) {
	s, _ := newTestServer(t)

	// reserve a free port, then release it for the server
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, addr) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
