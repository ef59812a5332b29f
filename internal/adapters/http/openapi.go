package httpadapter

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/oapi-codegen/runtime"

	"github.com/kirillkom/document-swarm/internal/core/domain"
)

//go:embed openapi.yaml
var openAPISpec []byte

const maxJSONBodyBytes = 8 << 20

// bodyValidator checks JSON request bodies against the component schemas of
// the embedded OpenAPI document before they reach a use case.
type bodyValidator struct {
	schemas openapi3.Schemas
}

func newBodyValidator() (*bodyValidator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openAPISpec)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	return &bodyValidator{schemas: doc.Components.Schemas}, nil
}

// decode reads the body, validates it against schemaName and unmarshals it into dst.
func (v *bodyValidator) decode(r *http.Request, schemaName string, dst any) error {
	raw, err := v.validate(r, schemaName)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "decode request body", err)
	}
	return nil
}

// validate reads the body and checks it against schemaName, returning the raw
// bytes for callers with their own decoding.
func (v *bodyValidator) validate(r *http.Request, schemaName string) ([]byte, error) {
	const op = "decode request body"

	raw, err := readBody(r)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, op, err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, op, errors.New("invalid json"))
	}

	ref, ok := v.schemas[schemaName]
	if !ok || ref.Value == nil {
		return nil, fmt.Errorf("%s: unknown schema %q", op, schemaName)
	}
	if err := ref.Value.VisitJSON(generic); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, op, errors.New(schemaErrorMessage(err)))
	}
	return raw, nil
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, errors.New("request body is required")
	}
	defer r.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("request body is required")
	}
	if len(raw) > maxJSONBodyBytes {
		return nil, fmt.Errorf("request body exceeds %d bytes", maxJSONBodyBytes)
	}
	return raw, nil
}

func schemaErrorMessage(err error) string {
	var schemaErr *openapi3.SchemaError
	if errors.As(err, &schemaErr) {
		if path := schemaErr.JSONPointer(); len(path) > 0 {
			return strings.Join(path, ".") + ": " + schemaErr.Reason
		}
		return schemaErr.Reason
	}
	return err.Error()
}

// pathParam binds a path segment the way generated oapi-codegen servers do.
func pathParam(r *http.Request, name string) (string, error) {
	var value string
	err := runtime.BindStyledParameterWithOptions("simple", name, r.PathValue(name), &value, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "bind path parameter", err)
	}
	if strings.TrimSpace(value) == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "bind path parameter", fmt.Errorf("%s is required", name))
	}
	return value, nil
}
