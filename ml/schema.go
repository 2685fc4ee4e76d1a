package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

var (
	// ErrArtifactLoad marks a schema or model that could not be loaded at startup.
	ErrArtifactLoad    = errors.New("artifact load failed")
	ErrEmptySchema     = errors.New("schema has no columns")
	ErrDuplicateColumn = errors.New("schema has duplicate column")
)

// Schema is the ordered list of feature columns a model was fit on.
// It is immutable once built and safe for concurrent readers.
type Schema struct {
	columns []string
	index   map[string]int
}

func NewSchema(columns []string) (*Schema, error) {
	if len(columns) == 0 {
		return nil, ErrEmptySchema
	}
	s := &Schema{
		columns: make([]string, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, name := range columns {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("column %d is blank", i)
		}
		if _, ok := s.index[name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, name)
		}
		s.columns[i] = name
		s.index[name] = i
	}
	return s, nil
}

// LoadSchema reads a schema artifact. JSON files hold an array of column
// names, YAML files a list.
func LoadSchema(path string) (*Schema, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read schema: %v", ErrArtifactLoad, err)
	}

	var columns []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(payload, &columns)
	default:
		err = json.Unmarshal(payload, &columns)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decode schema %s: %v", ErrArtifactLoad, path, err)
	}

	schema, err := NewSchema(columns)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArtifactLoad, err)
	}
	return schema, nil
}

// Columns returns a copy of the column names in training order.
func (s *Schema) Columns() []string {
	out := make([]string, len(s.columns))
	copy(out, s.columns)
	return out
}

func (s *Schema) Len() int {
	return len(s.columns)
}

func (s *Schema) Contains(name string) bool {
	_, ok := s.index[name]
	return ok
}

func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}
