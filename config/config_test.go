package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
http:
  port: 9090
  timeout: 5s
ml:
  model_type: regression_tree
  model_path: ./models/tree.json
  cache_size: 0
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Http.Port != 9090 || cfg.Http.Timeout != 5*time.Second {
		t.Fatalf("unexpected http config: %+v", cfg.Http)
	}
	if cfg.ML.SchemaPath != "./models/schema.json" {
		t.Fatalf("expected default schema path, got %q", cfg.ML.SchemaPath)
	}
	if cfg.ML.CacheSize != 0 || cfg.ML.ModelType != "regression_tree" {
		t.Fatalf("unexpected ml config: %+v", cfg.ML)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("expected default log level, got %q", cfg.Log.Level)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"bad model type": "ml:\n  model_type: neural_net\n",
		"bad port":       "http:\n  port: 70000\n",
		"negative cache": "ml:\n  cache_size: -1\n",
		"not yaml":       "http: [\n",
	}
	for name, content := range cases {
		path := filepath.Join(dir, name+".yaml")
		os.WriteFile(path, []byte(content), 0o600)
		if _, err := Load(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestResolveRebasesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "database:\n  path: ./data/estimates.db\nml:\n  model_path: /abs/model.json\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Resolve(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Path != filepath.Join(dir, "data", "estimates.db") {
		t.Fatalf("unexpected database path %q", cfg.Database.Path)
	}
	if cfg.ML.SchemaPath != filepath.Join(dir, "models", "schema.json") {
		t.Fatalf("unexpected schema path %q", cfg.ML.SchemaPath)
	}
	if cfg.ML.ModelPath != "/abs/model.json" {
		t.Fatalf("absolute path should be kept, got %q", cfg.ML.ModelPath)
	}
}
