package ml

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestArtifactWatcherReportsChanges(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "schema.json", `["Soil_pH"]`)
	writeFile(t, dir, "unrelated.txt", "x")

	watcher, err := NewArtifactWatcher(nil, schemaPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Run(ctx)

	if err := os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("y"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(schemaPath, []byte(`["Soil_pH","Rainfall_mm"]`), 0o600); err != nil {
		t.Fatal(err)
	}

	want, _ := filepath.Abs(schemaPath)
	select {
	case got := <-watcher.Changes():
		if got != want {
			t.Fatalf("expected change for %s, got %s", want, got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change notification")
	}
}
