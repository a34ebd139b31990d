package server

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"

	"github.com/shahar-caura/relay/internal/intent"
)

//go:embed openapi.yaml
var openapiYAML []byte

// LoadSpec parses and validates the embedded OpenAPI document.
func LoadSpec(ctx context.Context) (*openapi3.T, error) {
	doc, err := openapi3.NewLoader().LoadFromData(openapiYAML)
	if err != nil {
		return nil, fmt.Errorf("server: loading openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("server: invalid openapi document: %w", err)
	}
	return doc, nil
}

// validated rejects requests that do not match the operation documented for
// path before handing them to next. Paths missing from doc are not checked.
func validated(doc *openapi3.T, path string, next http.HandlerFunc) http.HandlerFunc {
	item := doc.Paths.Value(path)
	if item == nil {
		return next
	}

	return func(w http.ResponseWriter, r *http.Request) {
		op := item.GetOperation(r.Method)
		if op == nil {
			next(w, r)
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request: r,
			Route: &routers.Route{
				Spec:      doc,
				Path:      path,
				PathItem:  item,
				Method:    r.Method,
				Operation: op,
			},
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			writeJSON(w, http.StatusBadRequest, intent.Failure{
				Error:  "invalid request",
				Kind:   "invalid_request",
				Detail: err.Error(),
			})
			return
		}
		next(w, r)
	}
}
