package ml

import (
	"fmt"
	"strings"
)

// Artifacts are the immutable inputs an Engine is built from.
type Artifacts struct {
	Schema  *Schema
	Encoder *Encoder
	Model   Model
	// Unresolved holds schema columns the encoder always zero-fills.
	Unresolved []string
}

// LoadArtifacts loads the schema and model once at startup. With strict set,
// a schema column the encoder can never produce is a load failure instead of
// a silently zero-filled feature.
func LoadArtifacts(schemaPath, modelType, modelPath string, strict bool) (*Artifacts, error) {
	schema, err := LoadSchema(schemaPath)
	if err != nil {
		return nil, err
	}
	encoder := NewEncoder(schema)
	unresolved := encoder.UnresolvedColumns()
	if strict && len(unresolved) > 0 {
		return nil, fmt.Errorf("%w: schema columns cannot be produced: %s",
			ErrArtifactLoad, strings.Join(unresolved, ", "))
	}
	model, err := LoadModel(modelType, modelPath)
	if err != nil {
		return nil, err
	}
	return &Artifacts{
		Schema:     schema,
		Encoder:    encoder,
		Model:      model,
		Unresolved: unresolved,
	}, nil
}
