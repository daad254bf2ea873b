package artifacts

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// documentSchema checks the shape of an artifact before it is decoded.
// Cross-field rules (child indexes, row lengths) are checked after decoding.
const documentSchema = `{
	"type": "object",
	"required": ["kind", "n_features"],
	"properties": {
		"kind": {"enum": ["decision_tree", "linear"]},
		"n_features": {"type": "integer", "minimum": 1},
		"nodes": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"leaf": {"type": "boolean"},
					"feature": {"type": "integer"},
					"threshold": {"type": "number"},
					"left": {"type": "integer"},
					"right": {"type": "integer"},
					"label": {"type": "string"},
					"value": {"type": "number"}
				}
			}
		},
		"weights": {"type": "array", "items": {"type": "number"}},
		"bias": {"type": "number"},
		"labels": {"type": "array", "items": {"type": "string"}, "uniqueItems": true},
		"coefficients": {"type": "array", "items": {"type": "array", "items": {"type": "number"}}},
		"intercepts": {"type": "array", "items": {"type": "number"}}
	}
}`

var schemaLoader = gojsonschema.NewStringLoader(documentSchema)

func validateDocument(data []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("%w: %s", ErrInvalidArtifact, strings.Join(errs, "; "))
	}
	return nil
}
