package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"carbonadvisor/db"
	"carbonadvisor/ml"
	"carbonadvisor/monitoring"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report json field names rather than Go field names.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// API carries everything the handlers need. Feed and Persist are optional.
type API struct {
	Engine  *ml.Engine
	Feed    *monitoring.WebSocketHub
	Persist bool
	Logger  *zap.Logger
}

func RegisterHandlers(mux *http.ServeMux, api *API) {
	if api.Logger == nil {
		api.Logger = zap.NewNop()
	}
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/schema", api.handleSchema)
	mux.HandleFunc("GET /api/bands", handleBands)
	mux.HandleFunc("POST /api/estimate", api.handleEstimate)
	mux.HandleFunc("GET /api/estimates", handleEstimates)
	mux.HandleFunc("GET /api/estimates/summary", handleEstimateSummary)
	mux.Handle("GET /metrics", promhttp.Handler())
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (api *API) handleSchema(w http.ResponseWriter, r *http.Request) {
	encoder := api.Engine.Encoder()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"columns":          encoder.Schema().Columns(),
		"crop_levels":      ml.KnownCropLevels(),
		"reference_level":  encoder.ReferenceLevel(),
		"zero_filled_cols": encoder.UnresolvedColumns(),
	})
}

type bandInfo struct {
	Band    ml.Band  `json:"band"`
	Min     *float64 `json:"min"`
	Max     *float64 `json:"max"`
	Message string   `json:"message"`
}

func handleBands(w http.ResponseWriter, r *http.Request) {
	bands := make([]bandInfo, 0, len(ml.Bands()))
	for _, band := range ml.Bands() {
		lower, upper := band.Range()
		bands = append(bands, bandInfo{Band: band, Min: lower, Max: upper, Message: band.Message()})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"bands": bands})
}

// estimateRequest is the POST /api/estimate body. Pointers tell an omitted
// field apart from an explicit zero.
type estimateRequest struct {
	SoilPH       *float64 `json:"soil_ph" validate:"required,gte=4,lte=9"`
	SoilMoisture *float64 `json:"soil_moisture" validate:"required,gte=5,lte=100"`
	Temperature  *float64 `json:"temperature" validate:"required,gte=5,lte=50"`
	Rainfall     *float64 `json:"rainfall" validate:"required,gte=0,lte=500"`
	CropType     string   `json:"crop_type" validate:"required"`
	Fertilizer   *float64 `json:"fertilizer" validate:"required,gte=0,lte=200"`
	Pesticide    *float64 `json:"pesticide" validate:"required,gte=0,lte=100"`
	CropYield    *float64 `json:"crop_yield" validate:"required,gte=0,lte=50"`
}

// observation must only be called after validation.
func (req estimateRequest) observation() ml.Observation {
	return ml.Observation{
		SoilPH:       *req.SoilPH,
		SoilMoisture: *req.SoilMoisture,
		Temperature:  *req.Temperature,
		Rainfall:     *req.Rainfall,
		CropType:     req.CropType,
		Fertilizer:   *req.Fertilizer,
		Pesticide:    *req.Pesticide,
		CropYield:    *req.CropYield,
	}
}

func decodeStrict(r io.Reader, dst interface{}) error {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON object")
	}
	return nil
}

func (api *API) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if err := decodeStrict(r.Body, &req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if err := validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, describeValidation(err))
		return
	}
	obs := req.observation()

	result, err := api.Engine.Estimate(r.Context(), obs)
	if err != nil {
		if errors.Is(err, ml.ErrInference) {
			respondError(w, http.StatusBadGateway, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if api.Persist {
		record := db.EstimateRecord{
			Observation: obs.Normalized(),
			Estimate:    result.Estimate,
			Band:        result.Band,
			CreatedAt:   time.Now().UTC(),
		}
		if _, err := db.SaveEstimate(record); err != nil {
			api.Logger.Warn("failed to store estimate",
				zap.String("request_id", GetRequestID(r.Context())),
				zap.Error(err))
		}
	}
	if api.Feed != nil {
		if err := api.Feed.Publish(monitoring.EstimateEvent, result); err != nil {
			api.Logger.Warn("failed to publish estimate", zap.Error(err))
		}
	}

	respondJSON(w, http.StatusOK, result)
}

func handleEstimates(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = l
	}

	records, err := db.QueryEstimates(limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(records),
		"data":  records,
	})
}

func handleEstimateSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := db.BandSummary()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	counts := make(map[string]int, len(summary))
	for band, count := range summary {
		counts[band.String()] = count
	}
	respondJSON(w, http.StatusOK, counts)
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

// respondJSON 统一JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
