package ml

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const testTreeJSON = `{"nodes":[
  {"feature":"Fertilizer_Usage_kg","threshold":50,"left_child":1,"right_child":2},
  {"is_leaf":true,"value":30},
  {"feature":"Crop_Type_Rice","threshold":0.5,"left_child":3,"right_child":4},
  {"is_leaf":true,"value":80},
  {"is_leaf":true,"value":140}
]}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadLinearModel(t *testing.T) {
	path := writeFile(t, t.TempDir(), "linear.json",
		`{"intercept":2,"coefficients":{"Soil_pH":1,"Crop_Type_Wheat":10}}`)
	model, err := LoadModel(ModelTypeLinear, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fv := NewEncoder(trainingSchema(t)).Encode(sampleObservation("wheat"))
	out, err := model.Predict(context.Background(), fv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0] != 2+6.5+10 {
		t.Fatalf("unexpected prediction %v", out)
	}
}

func TestLinearModelRejectsIncompatibleVector(t *testing.T) {
	model := &LinearModel{Coefficients: map[string]float64{"Nitrogen_kg": 1}}
	fv := NewEncoder(trainingSchema(t)).Encode(sampleObservation("Wheat"))
	if _, err := model.Predict(context.Background(), fv); err == nil {
		t.Fatal("expected error for missing feature")
	}
}

func TestRegressionTreePredict(t *testing.T) {
	path := writeFile(t, t.TempDir(), "tree.json", testTreeJSON)
	model, err := LoadModel(ModelTypeRegressionTree, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	encoder := NewEncoder(trainingSchema(t))

	tests := []struct {
		crop       string
		fertilizer float64
		want       float64
	}{
		{"Wheat", 40, 30},
		{"Wheat", 60, 80},
		{"rice", 60, 140},
	}
	for _, tt := range tests {
		obs := sampleObservation(tt.crop)
		obs.Fertilizer = tt.fertilizer
		out, err := model.Predict(context.Background(), encoder.Encode(obs))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out[0] != tt.want {
			t.Fatalf("%s/%v: expected %v, got %v", tt.crop, tt.fertilizer, tt.want, out[0])
		}
	}

	tree := model.(*RegressionTree)
	if got := tree.Features(); len(got) != 2 {
		t.Fatalf("expected 2 split features, got %v", got)
	}
}

func TestRegressionTreeMissingFeature(t *testing.T) {
	tree := &RegressionTree{Nodes: []TreeNode{
		{Feature: "Nitrogen_kg", Threshold: 1, LeftChild: 1, RightChild: 2},
		{IsLeaf: true, Value: 1},
		{IsLeaf: true, Value: 2},
	}}
	fv := NewEncoder(trainingSchema(t)).Encode(sampleObservation("Wheat"))
	if _, err := tree.Predict(context.Background(), fv); err == nil {
		t.Fatal("expected error for missing feature")
	}
}

func TestRegressionTreeSaveLoad(t *testing.T) {
	dir := t.TempDir()
	tree := &RegressionTree{Nodes: []TreeNode{{IsLeaf: true, Value: 55}}}
	path := filepath.Join(dir, "tree.json")
	if err := tree.Save(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	loaded := &RegressionTree{}
	if err := loaded.Load(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(loaded.Nodes) != 1 || loaded.Nodes[0].Value != 55 {
		t.Fatalf("unexpected nodes %+v", loaded.Nodes)
	}
}

func TestLoadModelFailures(t *testing.T) {
	dir := t.TempDir()
	badTree := writeFile(t, dir, "bad_tree.json",
		`{"nodes":[{"feature":"Soil_pH","left_child":5,"right_child":6}]}`)
	emptyLinear := writeFile(t, dir, "empty.json", `{"intercept":1}`)
	corrupt := writeFile(t, dir, "corrupt.json", `not json`)

	cases := []struct {
		modelType string
		path      string
	}{
		{"neural_net", corrupt},
		{ModelTypeLinear, filepath.Join(dir, "missing.json")},
		{ModelTypeLinear, emptyLinear},
		{ModelTypeLinear, corrupt},
		{ModelTypeRegressionTree, badTree},
	}
	for _, c := range cases {
		if _, err := LoadModel(c.modelType, c.path); !errors.Is(err, ErrArtifactLoad) {
			t.Fatalf("%s %s: expected ErrArtifactLoad, got %v", c.modelType, c.path, err)
		}
	}
}

func TestLoadArtifacts(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "schema.json", `["Soil_pH","Crop_Type_Rice","Irrigation_hours"]`)
	modelPath := writeFile(t, dir, "model.json", `{"intercept":1,"coefficients":{"Soil_pH":1}}`)

	artifacts, err := LoadArtifacts(schemaPath, ModelTypeLinear, modelPath, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(artifacts.Unresolved) != 1 || artifacts.Unresolved[0] != "Irrigation_hours" {
		t.Fatalf("unexpected unresolved columns %v", artifacts.Unresolved)
	}

	if _, err := LoadArtifacts(schemaPath, ModelTypeLinear, modelPath, true); !errors.Is(err, ErrArtifactLoad) {
		t.Fatalf("expected strict mode to fail with ErrArtifactLoad, got %v", err)
	}
}
