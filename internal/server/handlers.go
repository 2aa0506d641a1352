package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/leapstack-labs/dataviz/internal/dataset"
)

// LoadDatasetRequest is the body of POST /datasets.
type LoadDatasetRequest struct {
	Path string `json:"path" validate:"required"`
}

// CommentRequest is the body of PUT /datasets/{name}/comment.
type CommentRequest struct {
	Comment string `json:"comment" validate:"max=65536"`
}

// ExpressionRequest is the body of the /expressions endpoints.
type ExpressionRequest struct {
	Expression string `json:"expression" validate:"required,max=4096"`
	Anchor     string `json:"anchor,omitempty" validate:"max=1024"`
}

// DatasetResponse describes a registered dataset.
type DatasetResponse struct {
	Handle string `json:"handle"`
	Name   string `json:"name"`
	File   string `json:"file"`
	Path   string `json:"path"`
	Rows   int    `json:"rows"`
}

// DatasetPointsResponse is a dataset with its samples.
type DatasetPointsResponse struct {
	DatasetResponse
	Points []dataset.Point `json:"points"`
}

// CommentResponse carries a dataset's comment.
type CommentResponse struct {
	Dataset string `json:"dataset"`
	Comment string `json:"comment"`
}

// ValidateResponse is the result of POST /expressions/validate.
type ValidateResponse struct {
	Expression string   `json:"expression"`
	Valid      bool     `json:"valid"`
	Unknown    []string `json:"unknown"`
}

// FunctionResponse describes a builtin function or constant.
type FunctionResponse struct {
	Name     string   `json:"name"`
	Arity    int      `json:"arity"`
	Doc      string   `json:"doc,omitempty"`
	Constant bool     `json:"constant,omitempty"`
	Value    *float64 `json:"value,omitempty"`
}

func newDatasetResponse(ds *dataset.Dataset) DatasetResponse {
	return DatasetResponse{
		Handle: ds.Handle(),
		Name:   ds.Name(),
		File:   ds.FileName(),
		Path:   ds.Path(),
		Rows:   ds.Size(),
	}
}

// decode reads a JSON body into v and validates it.
func (s *Server) decode(r *http.Request, v any) *ErrorResponse {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		if errors.Is(err, io.EOF) {
			return newRequestError(http.StatusBadRequest, "request", "request body is empty")
		}
		return newRequestError(http.StatusBadRequest, "request", "invalid JSON body: "+err.Error())
	}
	if err := s.validate.Struct(v); err != nil {
		resp := newRequestError(http.StatusBadRequest, "request", "invalid request")
		resp.Fields = fieldErrors(err)
		return resp
	}
	return nil
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, resp *ErrorResponse) {
	if resp.Status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "kind", resp.Kind, "error", resp.Message)
	}
	writeError(w, r, resp)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"status":   "ok",
		"datasets": s.eng.Registry().Count(),
	})
}

func (s *Server) listFunctions(w http.ResponseWriter, r *http.Request) {
	b := s.eng.Builtins()
	out := make([]FunctionResponse, 0)
	for _, f := range b.Funcs() {
		out = append(out, FunctionResponse{Name: f.Name, Arity: f.Arity, Doc: f.Doc})
	}
	for _, name := range b.ConstNames() {
		v, _ := b.Const(name)
		out = append(out, FunctionResponse{Name: "$" + name, Constant: true, Value: &v})
	}
	render.JSON(w, r, out)
}

func (s *Server) listDatasets(w http.ResponseWriter, r *http.Request) {
	all := s.eng.Registry().All()
	out := make([]DatasetResponse, len(all))
	for i, ds := range all {
		out[i] = newDatasetResponse(ds)
	}
	render.JSON(w, r, out)
}

func (s *Server) loadDataset(w http.ResponseWriter, r *http.Request) {
	var req LoadDatasetRequest
	if resp := s.decode(r, &req); resp != nil {
		s.fail(w, r, resp)
		return
	}

	ds, err := s.eng.Ingest(req.Path)
	if err != nil {
		s.fail(w, r, errorResponse(err))
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, newDatasetResponse(ds))
}

// lookup resolves the {name} URL parameter, writing a 404 when it is unknown.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*dataset.Dataset, bool) {
	ds, err := s.eng.Registry().ByName(chi.URLParam(r, "name"))
	if err != nil {
		s.fail(w, r, errorResponse(err))
		return nil, false
	}
	return ds, true
}

func (s *Server) getDataset(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.lookup(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, DatasetPointsResponse{
		DatasetResponse: newDatasetResponse(ds),
		Points:          ds.Points(),
	})
}

func (s *Server) deleteDataset(w http.ResponseWriter, r *http.Request) {
	if err := s.eng.Registry().Remove(chi.URLParam(r, "name")); err != nil {
		s.fail(w, r, errorResponse(err))
		return
	}
	render.NoContent(w, r)
}

func (s *Server) getComment(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.lookup(w, r)
	if !ok {
		return
	}
	text, err := ds.LoadComment()
	if err != nil {
		s.fail(w, r, errorResponse(err))
		return
	}
	render.JSON(w, r, CommentResponse{Dataset: ds.Name(), Comment: text})
}

func (s *Server) putComment(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req CommentRequest
	if resp := s.decode(r, &req); resp != nil {
		s.fail(w, r, resp)
		return
	}
	if err := ds.SaveComment(req.Comment); err != nil {
		s.fail(w, r, errorResponse(err))
		return
	}
	s.logger.InfoContext(r.Context(), "comment saved", "dataset", ds.Name())
	render.JSON(w, r, CommentResponse{Dataset: ds.Name(), Comment: req.Comment})
}

func (s *Server) validateExpression(w http.ResponseWriter, r *http.Request) {
	var req ExpressionRequest
	if resp := s.decode(r, &req); resp != nil {
		s.fail(w, r, resp)
		return
	}

	wl := s.eng.Whitelist()
	unknown := wl.Unknown(req.Expression)
	if unknown == nil {
		unknown = []string{}
	}
	render.JSON(w, r, ValidateResponse{
		Expression: req.Expression,
		Valid:      wl.Validate(req.Expression),
		Unknown:    unknown,
	})
}

func (s *Server) evaluateExpression(w http.ResponseWriter, r *http.Request) {
	var req ExpressionRequest
	if resp := s.decode(r, &req); resp != nil {
		s.fail(w, r, resp)
		return
	}

	res, err := s.eng.EvaluateExpression(req.Expression, req.Anchor)
	if err != nil {
		s.fail(w, r, errorResponse(err))
		return
	}
	render.JSON(w, r, res)
}
