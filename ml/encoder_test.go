package ml

import (
	"reflect"
	"testing"
)

func trainingSchema(t *testing.T) *Schema {
	t.Helper()
	schema, err := NewSchema([]string{
		"Soil_pH",
		"Soil_Moisture",
		"Temperature_C",
		"Rainfall_mm",
		"Fertilizer_Usage_kg",
		"Pesticide_Usage_kg",
		"Crop_Yield_ton",
		"Crop_Type_Pulses",
		"Crop_Type_Rice",
		"Crop_Type_Wheat",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return schema
}

func sampleObservation(crop string) Observation {
	return Observation{
		SoilPH:       6.5,
		SoilMoisture: 25,
		Temperature:  30,
		Rainfall:     120,
		CropType:     crop,
		Fertilizer:   60,
		Pesticide:    15,
		CropYield:    5,
	}
}

func cropIndicators(fv FeatureVector) map[string]float64 {
	out := make(map[string]float64)
	for _, level := range []string{"Pulses", "Rice", "Wheat"} {
		v, _ := fv.Get(CropIndicatorColumn(level))
		out[level] = v
	}
	return out
}

func TestEncodeMatchesSchemaOrder(t *testing.T) {
	schema := trainingSchema(t)
	encoder := NewEncoder(schema)

	for _, crop := range []string{"Wheat", "Rice", "Maize", "Pulses", "Sorghum", ""} {
		fv := encoder.Encode(sampleObservation(crop))
		if !reflect.DeepEqual(fv.Columns(), schema.Columns()) {
			t.Fatalf("%s: columns %v do not match schema %v", crop, fv.Columns(), schema.Columns())
		}
		if len(fv.Values()) != schema.Len() {
			t.Fatalf("%s: expected %d values, got %d", crop, schema.Len(), len(fv.Values()))
		}
	}
}

func TestEncodeRawValues(t *testing.T) {
	fv := NewEncoder(trainingSchema(t)).Encode(sampleObservation("Wheat"))
	want := []float64{6.5, 25, 30, 120, 60, 15, 5, 0, 0, 1}
	if !reflect.DeepEqual(fv.Values(), want) {
		t.Fatalf("expected %v, got %v", want, fv.Values())
	}
}

func TestEncodeIgnoresCropCaseAndWhitespace(t *testing.T) {
	encoder := NewEncoder(trainingSchema(t))
	base := encoder.Encode(sampleObservation("rice"))
	for _, crop := range []string{" Rice ", "RICE", "  rice", "rIcE\t"} {
		fv := encoder.Encode(sampleObservation(crop))
		if !reflect.DeepEqual(fv, base) {
			t.Fatalf("%q encoded differently: %v vs %v", crop, fv.Values(), base.Values())
		}
	}
	if v, _ := base.Get("Crop_Type_Rice"); v != 1 {
		t.Fatalf("expected rice indicator set, got %v", v)
	}
}

func TestEncodeUnknownAndReferenceCropsAreAllZero(t *testing.T) {
	encoder := NewEncoder(trainingSchema(t))
	for _, crop := range []string{"Sorghum", "Maize", "", "   "} {
		for level, v := range cropIndicators(encoder.Encode(sampleObservation(crop))) {
			if v != 0 {
				t.Fatalf("%q: expected %s indicator 0, got %v", crop, level, v)
			}
		}
	}
	if encoder.KnownCrop("Sorghum") {
		t.Fatal("Sorghum must not be a known crop")
	}
	if !encoder.KnownCrop(" maize") || !encoder.KnownCrop("wheat") {
		t.Fatal("expected maize and wheat to be known")
	}
	if encoder.ReferenceLevel() != "Maize" {
		t.Fatalf("unexpected reference level %q", encoder.ReferenceLevel())
	}
}

func TestEncodeAlignsToDriftedSchema(t *testing.T) {
	// Schema missing some produced columns, reordered, and with one column the
	// encoder never produces.
	schema, err := NewSchema([]string{"Crop_Type_Rice", "Irrigation_hours", "Soil_pH"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	encoder := NewEncoder(schema)
	fv := encoder.Encode(sampleObservation("Rice"))

	if !reflect.DeepEqual(fv.Columns(), schema.Columns()) {
		t.Fatalf("unexpected columns %v", fv.Columns())
	}
	if !reflect.DeepEqual(fv.Values(), []float64{1, 0, 6.5}) {
		t.Fatalf("unexpected values %v", fv.Values())
	}
	if missing := encoder.UnresolvedColumns(); !reflect.DeepEqual(missing, []string{"Irrigation_hours"}) {
		t.Fatalf("unexpected unresolved columns %v", missing)
	}
	if len(NewEncoder(trainingSchema(t)).UnresolvedColumns()) != 0 {
		t.Fatal("training schema should be fully resolved")
	}
}

func TestNewFeatureVectorLengthMismatch(t *testing.T) {
	if _, err := NewFeatureVector([]string{"a"}, nil); err == nil {
		t.Fatal("expected length mismatch error")
	}
	fv, err := NewFeatureVector([]string{"a", "b"}, []float64{1, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fv.Map()["b"] != 2 || fv.Len() != 2 {
		t.Fatalf("unexpected vector %v", fv.Map())
	}
	if _, ok := fv.Get("c"); ok {
		t.Fatal("unexpected column c")
	}
}
