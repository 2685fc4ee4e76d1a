package ml

import (
	"fmt"
	"strings"
)

// Band is the recommendation category derived from an emission estimate.
type Band int

const (
	Sustainable Band = iota
	Moderate
	High
)

const (
	// ModerateThreshold is the lowest estimate classified as Moderate.
	ModerateThreshold = 50.0
	// HighThreshold is the lowest estimate classified as High.
	HighThreshold = 100.0
)

var bandNames = map[Band]string{
	Sustainable: "sustainable",
	Moderate:    "moderate",
	High:        "high",
}

var bandMessages = map[Band]string{
	Sustainable: "Sustainable - maintain current practices",
	Moderate:    "Moderate - optimize fertilizer and irrigation",
	High:        "High - reduce chemical usage, adopt organic methods",
}

// Bands lists every band in ascending threshold order.
func Bands() []Band {
	return []Band{Sustainable, Moderate, High}
}

// Classify maps an estimate to its band. Intervals are closed-open:
// [-inf, 50) Sustainable, [50, 100) Moderate, [100, +inf) High.
func Classify(estimate float64) Band {
	switch {
	case estimate < ModerateThreshold:
		return Sustainable
	case estimate < HighThreshold:
		return Moderate
	default:
		return High
	}
}

func (b Band) String() string {
	if name, ok := bandNames[b]; ok {
		return name
	}
	return fmt.Sprintf("band(%d)", int(b))
}

// Message is the fixed recommendation shown for the band.
func (b Band) Message() string {
	return bandMessages[b]
}

// Range returns the band's lower and upper bounds. Open ends are reported as
// nil.
func (b Band) Range() (lower, upper *float64) {
	moderate, high := ModerateThreshold, HighThreshold
	switch b {
	case Sustainable:
		return nil, &moderate
	case Moderate:
		return &moderate, &high
	case High:
		return &high, nil
	}
	return nil, nil
}

func (b Band) MarshalText() ([]byte, error) {
	name, ok := bandNames[b]
	if !ok {
		return nil, fmt.Errorf("unknown band %d", int(b))
	}
	return []byte(name), nil
}

func (b *Band) UnmarshalText(text []byte) error {
	parsed, err := ParseBand(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

func ParseBand(s string) (Band, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for band, name := range bandNames {
		if name == needle {
			return band, nil
		}
	}
	return 0, fmt.Errorf("unknown band %q", s)
}
