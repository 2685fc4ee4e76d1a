package ml

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"carbonadvisor/monitoring"
)

// ErrInference marks a request whose model invocation failed or produced an
// unusable value. The engine stays usable afterwards.
var ErrInference = errors.New("inference failed")

type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("%v: %v", ErrInference, e.Err)
}

func (e *InferenceError) Unwrap() []error {
	return []error{ErrInference, e.Err}
}

// Result is one served estimate.
type Result struct {
	Estimate float64 `json:"estimate"`
	Band     Band    `json:"band"`
	Message  string  `json:"message"`
	CropType string  `json:"crop_type"`
}

type EngineOption func(*Engine)

// WithLogger sets the engine logger. The default discards everything.
func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithCacheSize keeps the last n results keyed by normalized observation.
// Only valid for deterministic models; n <= 0 disables caching.
func WithCacheSize(n int) EngineOption {
	return func(e *Engine) {
		e.cacheSize = n
	}
}

// Engine runs the encode, predict and classify pipeline. Encoder and model
// are read-only after construction, so one Engine serves concurrent callers.
type Engine struct {
	encoder   *Encoder
	model     Model
	logger    *zap.Logger
	cacheSize int
	cache     *lru.Cache[Observation, Result]
}

func NewEngine(encoder *Encoder, model Model, opts ...EngineOption) (*Engine, error) {
	if encoder == nil {
		return nil, errors.New("encoder is required")
	}
	if model == nil {
		return nil, errors.New("model is required")
	}
	e := &Engine{
		encoder: encoder,
		model:   model,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cacheSize > 0 {
		cache, err := lru.New[Observation, Result](e.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create result cache: %w", err)
		}
		e.cache = cache
	}
	return e, nil
}

func (e *Engine) Encoder() *Encoder {
	return e.encoder
}

// Estimate encodes the observation, runs the model once and classifies the
// first value it returns.
func (e *Engine) Estimate(ctx context.Context, obs Observation) (Result, error) {
	obs = obs.Normalized()

	if !e.encoder.KnownCrop(obs.CropType) {
		monitoring.UnknownCrops.Inc()
		e.logger.Debug("unknown crop type encoded as reference level",
			zap.String("crop_type", obs.CropType),
			zap.String("reference", e.encoder.ReferenceLevel()))
	}

	if e.cache != nil {
		if cached, ok := e.cache.Get(obs); ok {
			monitoring.CacheHits.Inc()
			monitoring.EstimatesTotal.WithLabelValues(cached.Band.String()).Inc()
			return cached, nil
		}
	}

	features := e.encoder.Encode(obs)

	start := time.Now()
	outputs, err := e.model.Predict(ctx, features)
	monitoring.InferenceDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return Result{}, e.fail(err)
	}
	if len(outputs) == 0 {
		return Result{}, e.fail(errors.New("model returned no values"))
	}
	estimate := outputs[0]
	if math.IsNaN(estimate) || math.IsInf(estimate, 0) {
		return Result{}, e.fail(fmt.Errorf("model returned non-finite value %v", estimate))
	}

	band := Classify(estimate)
	result := Result{
		Estimate: estimate,
		Band:     band,
		Message:  band.Message(),
		CropType: obs.CropType,
	}
	monitoring.EstimatesTotal.WithLabelValues(band.String()).Inc()
	e.logger.Debug("estimate served",
		zap.Float64("estimate", estimate),
		zap.Stringer("band", band),
		zap.String("crop_type", obs.CropType))

	if e.cache != nil {
		e.cache.Add(obs, result)
	}
	return result, nil
}

// EstimateEmission is the positional form of Estimate.
func (e *Engine) EstimateEmission(ctx context.Context,
	soilPH, soilMoisture, temperature, rainfall float64,
	cropType string,
	fertilizer, pesticide, cropYield float64,
) (float64, Band, string, error) {
	result, err := e.Estimate(ctx, Observation{
		SoilPH:       soilPH,
		SoilMoisture: soilMoisture,
		Temperature:  temperature,
		Rainfall:     rainfall,
		CropType:     cropType,
		Fertilizer:   fertilizer,
		Pesticide:    pesticide,
		CropYield:    cropYield,
	})
	if err != nil {
		return 0, 0, "", err
	}
	return result.Estimate, result.Band, result.Message, nil
}

func (e *Engine) fail(cause error) error {
	monitoring.InferenceFailures.Inc()
	e.logger.Warn("inference failed", zap.Error(cause))
	return &InferenceError{Err: cause}
}
