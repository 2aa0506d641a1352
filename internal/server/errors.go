package server

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/leapstack-labs/dataviz/internal/engine"
	"github.com/leapstack-labs/dataviz/pkg/expr"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Status  int    `json:"-"`
	Kind    string `json:"kind"`
	Message string `json:"error"`

	// Set for validation errors.
	Unknown []string `json:"unknown,omitempty"`
	// Set for parse errors: 0-based byte offset into the expression.
	Offset *int `json:"offset,omitempty"`
	// Set for eval errors.
	Index *int   `json:"index,omitempty"`
	Fault string `json:"fault,omitempty"`
	// Set for malformed request bodies.
	Fields []FieldError `json:"fields,omitempty"`
}

// FieldError describes one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Render implements render.Renderer.
func (e *ErrorResponse) Render(_ http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.Status)
	return nil
}

func newRequestError(status int, kind, msg string) *ErrorResponse {
	return &ErrorResponse{Status: status, Kind: kind, Message: msg}
}

// errorResponse maps an engine error to a response.
func errorResponse(err error) *ErrorResponse {
	kind := engine.ErrorKind(err)
	resp := &ErrorResponse{Status: statusForKind(kind), Kind: kind, Message: err.Error()}

	var (
		validErr *engine.ValidationError
		parseErr *expr.ParseError
		evalErr  *engine.EvalError
	)
	switch {
	case errors.As(err, &validErr):
		resp.Unknown = validErr.Unknown
	case errors.As(err, &parseErr):
		off := parseErr.Offset()
		resp.Offset = &off
	case errors.As(err, &evalErr):
		idx := evalErr.Index
		resp.Index = &idx
		resp.Fault = evalErr.Code.String()
	}
	return resp
}

func statusForKind(kind string) int {
	switch kind {
	case "not_found":
		return http.StatusNotFound
	case "ingest", "validation", "parse", "eval", "index", "length_mismatch", "bind":
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, resp *ErrorResponse) {
	if err := render.Render(w, r, resp); err != nil {
		http.Error(w, resp.Message, resp.Status)
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldErrors converts validator output into response fields.
func fieldErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: formatFieldError(fe)})
	}
	return out
}

func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
