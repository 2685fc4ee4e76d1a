package ml

import "fmt"

// FeatureVector is a single encoded row whose columns match a Schema exactly,
// in the same order.
type FeatureVector struct {
	columns []string
	values  []float64
}

// NewFeatureVector pairs column names with values. Both slices are copied.
func NewFeatureVector(columns []string, values []float64) (FeatureVector, error) {
	if len(columns) != len(values) {
		return FeatureVector{}, fmt.Errorf("columns/values length mismatch: %d != %d", len(columns), len(values))
	}
	fv := FeatureVector{
		columns: make([]string, len(columns)),
		values:  make([]float64, len(values)),
	}
	copy(fv.columns, columns)
	copy(fv.values, values)
	return fv, nil
}

func (fv FeatureVector) Columns() []string {
	out := make([]string, len(fv.columns))
	copy(out, fv.columns)
	return out
}

func (fv FeatureVector) Values() []float64 {
	out := make([]float64, len(fv.values))
	copy(out, fv.values)
	return out
}

func (fv FeatureVector) Len() int {
	return len(fv.columns)
}

// Get returns the value of a column and whether the column is present.
func (fv FeatureVector) Get(name string) (float64, bool) {
	for i, column := range fv.columns {
		if column == name {
			return fv.values[i], true
		}
	}
	return 0, false
}

func (fv FeatureVector) Map() map[string]float64 {
	out := make(map[string]float64, len(fv.columns))
	for i, column := range fv.columns {
		out[column] = fv.values[i]
	}
	return out
}

// Encoder turns observations into feature vectors aligned to a training
// schema. It holds no mutable state and may be shared between goroutines.
type Encoder struct {
	schema     *Schema
	reference  string
	indicators map[string]string // crop level -> indicator column
	producible map[string]bool
}

// NewEncoder builds an encoder over the default crop levels.
func NewEncoder(schema *Schema) *Encoder {
	return NewEncoderWithLevels(schema, KnownCropLevels())
}

func NewEncoderWithLevels(schema *Schema, levels []string) *Encoder {
	reference, encoded := cropLevels(levels)
	e := &Encoder{
		schema:     schema,
		reference:  reference,
		indicators: make(map[string]string, len(encoded)),
		producible: make(map[string]bool),
	}
	for _, name := range RawFeatureNames() {
		e.producible[name] = true
	}
	for _, level := range encoded {
		column := CropIndicatorColumn(level)
		e.indicators[level] = column
		e.producible[column] = true
	}
	return e
}

func (e *Encoder) Schema() *Schema {
	return e.schema
}

// ReferenceLevel is the crop level represented by all-zero indicators.
func (e *Encoder) ReferenceLevel() string {
	return e.reference
}

// KnownCrop reports whether the crop normalizes to one of the encoder's levels.
func (e *Encoder) KnownCrop(crop string) bool {
	crop = NormalizeCropType(crop)
	if crop == e.reference && crop != "" {
		return true
	}
	_, ok := e.indicators[crop]
	return ok
}

// UnresolvedColumns lists schema columns the encoder never produces. They are
// always zero-filled.
func (e *Encoder) UnresolvedColumns() []string {
	var missing []string
	for _, column := range e.schema.columns {
		if !e.producible[column] {
			missing = append(missing, column)
		}
	}
	return missing
}

// Encode normalizes the crop type, one-hot encodes it against the known
// levels and aligns the row to the schema. Unrecognised crops encode like the
// reference level. Encoded columns missing from the schema are dropped and
// schema columns never produced are zero.
func (e *Encoder) Encode(obs Observation) FeatureVector {
	row := make(map[string]float64, len(e.producible))
	raw := rawFeatureValues(obs)
	for i, name := range RawFeatureNames() {
		row[name] = raw[i]
	}
	if column, ok := e.indicators[NormalizeCropType(obs.CropType)]; ok {
		row[column] = 1
	}

	values := make([]float64, len(e.schema.columns))
	for i, column := range e.schema.columns {
		values[i] = row[column]
	}
	return FeatureVector{columns: e.schema.Columns(), values: values}
}
