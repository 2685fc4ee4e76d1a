package ml

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Observation is one farming record submitted for an estimate. Bounds in the
// validate tags are enforced by callers; the encoder accepts any value.
type Observation struct {
	SoilPH       float64 `json:"soil_ph" yaml:"soil_ph" validate:"gte=4,lte=9"`
	SoilMoisture float64 `json:"soil_moisture" yaml:"soil_moisture" validate:"gte=5,lte=100"`
	Temperature  float64 `json:"temperature" yaml:"temperature" validate:"gte=5,lte=50"`
	Rainfall     float64 `json:"rainfall" yaml:"rainfall" validate:"gte=0,lte=500"`
	CropType     string  `json:"crop_type" yaml:"crop_type" validate:"required"`
	Fertilizer   float64 `json:"fertilizer" yaml:"fertilizer" validate:"gte=0,lte=200"`
	Pesticide    float64 `json:"pesticide" yaml:"pesticide" validate:"gte=0,lte=100"`
	CropYield    float64 `json:"crop_yield" yaml:"crop_yield" validate:"gte=0,lte=50"`
}

const cropColumnPrefix = "Crop_Type_"

var knownCropLevels = []string{"Wheat", "Rice", "Maize", "Pulses"}

// KnownCropLevels returns the crop types the model was trained on.
func KnownCropLevels() []string {
	return append([]string(nil), knownCropLevels...)
}

// RawFeatureNames lists the numeric columns taken straight from an Observation.
func RawFeatureNames() []string {
	return []string{
		"Soil_pH",
		"Soil_Moisture",
		"Temperature_C",
		"Rainfall_mm",
		"Fertilizer_Usage_kg",
		"Pesticide_Usage_kg",
		"Crop_Yield_ton",
	}
}

func rawFeatureValues(obs Observation) []float64 {
	return []float64{
		obs.SoilPH,
		obs.SoilMoisture,
		obs.Temperature,
		obs.Rainfall,
		obs.Fertilizer,
		obs.Pesticide,
		obs.CropYield,
	}
}

// NormalizeCropType trims surrounding whitespace and title-cases the crop
// name, e.g. "  rice" -> "Rice". Unknown names pass through untouched
// otherwise.
func NormalizeCropType(crop string) string {
	// Casers keep state, so one is built per call.
	return cases.Title(language.Und).String(strings.TrimSpace(crop))
}

// CropIndicatorColumn names the indicator column of a crop level.
func CropIndicatorColumn(level string) string {
	return cropColumnPrefix + level
}

// cropLevels sorts the levels and splits off the first one as the reference
// level, which is encoded as all indicators being zero.
func cropLevels(levels []string) (reference string, encoded []string) {
	seen := make(map[string]bool, len(levels))
	sorted := make([]string, 0, len(levels))
	for _, level := range levels {
		level = NormalizeCropType(level)
		if level == "" || seen[level] {
			continue
		}
		seen[level] = true
		sorted = append(sorted, level)
	}
	sort.Strings(sorted)
	if len(sorted) == 0 {
		return "", nil
	}
	return sorted[0], sorted[1:]
}

// Normalized returns a copy of the observation with its crop type normalized.
func (o Observation) Normalized() Observation {
	o.CropType = NormalizeCropType(o.CropType)
	return o
}
