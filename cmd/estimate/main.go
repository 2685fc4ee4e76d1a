package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"carbonadvisor/config"
	"carbonadvisor/ml"
	"carbonadvisor/monitoring"
)

var inputHeader = []string{
	"soil_ph", "soil_moisture", "temperature", "rainfall",
	"crop_type", "fertilizer", "pesticide", "crop_yield",
}

var outputHeader = append(append([]string{}, inputHeader...), "estimate", "band", "message", "error")

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	inPath := flag.String("in", "", "input CSV of observations")
	outPath := flag.String("out", "", "output CSV (default stdout)")
	flag.Parse()

	if *inPath == "" {
		log.Fatal("-in is required")
	}

	cfg, err := config.Resolve(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := monitoring.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	artifacts, err := ml.LoadArtifacts(cfg.ML.SchemaPath, cfg.ML.ModelType, cfg.ML.ModelPath, cfg.ML.StrictSchema)
	if err != nil {
		logger.Fatal("failed to load artifacts", zap.Error(err))
	}
	engine, err := ml.NewEngine(artifacts.Encoder, artifacts.Model, ml.WithLogger(logger))
	if err != nil {
		logger.Fatal("failed to create engine", zap.Error(err))
	}

	in, err := os.Open(*inPath)
	if err != nil {
		logger.Fatal("failed to open input", zap.Error(err))
	}
	defer in.Close()

	var out io.Writer = os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			logger.Fatal("failed to create output", zap.Error(err))
		}
		defer f.Close()
		out = f
	}

	stats, err := runBatch(context.Background(), engine, in, out)
	if err != nil {
		logger.Fatal("batch failed", zap.Error(err))
	}
	logger.Info("batch finished", zap.Int("rows", stats.rows), zap.Int("failed", stats.failed))
}

type batchStats struct {
	rows   int
	failed int
}

// runBatch estimates every row of in and writes one output row per input
// row. Bad rows carry an error column and do not stop the batch.
func runBatch(ctx context.Context, engine *ml.Engine, in io.Reader, out io.Writer) (batchStats, error) {
	var stats batchStats
	reader := csv.NewReader(in)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return stats, fmt.Errorf("read header: %w", err)
	}
	columns, err := headerIndex(header)
	if err != nil {
		return stats, err
	}

	writer := csv.NewWriter(out)
	defer writer.Flush()
	if err := writer.Write(outputHeader); err != nil {
		return stats, err
	}

	validate := validator.New()
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("read row %d: %w", stats.rows+1, err)
		}
		stats.rows++

		row := make([]string, 0, len(outputHeader))
		var missing []string
		for _, name := range inputHeader {
			if i := columns[name]; i < len(record) {
				row = append(row, record[i])
			} else {
				row = append(row, "")
				missing = append(missing, name)
			}
		}

		var obs ml.Observation
		if len(missing) > 0 {
			err = fmt.Errorf("row has %d fields, missing %s", len(record), strings.Join(missing, ", "))
		} else {
			obs, err = parseObservation(record, columns)
		}
		if err == nil {
			err = validate.Struct(obs)
		}
		if err != nil {
			stats.failed++
			row = append(row, "", "", "", err.Error())
			if err := writer.Write(row); err != nil {
				return stats, err
			}
			continue
		}

		result, err := engine.Estimate(ctx, obs)
		if err != nil {
			stats.failed++
			row = append(row, "", "", "", err.Error())
		} else {
			row = append(row,
				strconv.FormatFloat(result.Estimate, 'f', 4, 64),
				result.Band.String(),
				result.Message,
				"")
		}
		if err := writer.Write(row); err != nil {
			return stats, err
		}
	}
	writer.Flush()
	return stats, writer.Error()
}

func headerIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range inputHeader {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	return index, nil
}

func parseObservation(record []string, columns map[string]int) (ml.Observation, error) {
	var obs ml.Observation
	numeric := map[string]*float64{
		"soil_ph":       &obs.SoilPH,
		"soil_moisture": &obs.SoilMoisture,
		"temperature":   &obs.Temperature,
		"rainfall":      &obs.Rainfall,
		"fertilizer":    &obs.Fertilizer,
		"pesticide":     &obs.Pesticide,
		"crop_yield":    &obs.CropYield,
	}
	for name, dst := range numeric {
		value, err := strconv.ParseFloat(strings.TrimSpace(record[columns[name]]), 64)
		if err != nil {
			return obs, fmt.Errorf("%s: %w", name, err)
		}
		*dst = value
	}
	obs.CropType = record[columns["crop_type"]]
	return obs, nil
}
