package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dvloznov/dre-engine/internal/fields"
	"github.com/dvloznov/dre-engine/internal/store"
	"github.com/google/go-cmp/cmp"
)

// chdir moves into an empty directory so no stray config.yaml or .env is read.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t)

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if c.Store.Driver != "memory" {
		t.Errorf("Store.Driver = %q, want memory", c.Store.Driver)
	}
	if diff := cmp.Diff(store.DefaultBatchOptions(), c.Store.Batch); diff != "" {
		t.Errorf("Store.Batch mismatch (-want +got):\n%s", diff)
	}
	if c.Ingest.Timezone != "America/Sao_Paulo" || c.Location().String() != "America/Sao_Paulo" {
		t.Errorf("Ingest.Timezone = %q", c.Ingest.Timezone)
	}
	if c.Server.Port != 8080 || c.Log.Format != "console" {
		t.Errorf("unexpected defaults: %+v", c)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "dre.yaml")
	yaml := `
log:
  level: debug
ingest:
  denylist: [rascunho]
  header_aliases:
    valorEfetivo: ["Valor Pago"]
store:
  driver: sqlite
  batch:
    size: 50
    delay: 250ms
server:
  port: 9000
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DRE_SERVER_PORT", "9100")
	t.Setenv("DRE_STORE_BATCH_BACKOFF", "2s")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if c.Log.Level != "debug" || c.Store.Driver != "sqlite" {
		t.Errorf("file values not applied: %+v", c)
	}
	if c.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want env override 9100", c.Server.Port)
	}
	wantBatch := store.BatchOptions{Size: 50, Delay: 250 * time.Millisecond, MaxRetries: 1, Backoff: 2 * time.Second}
	if diff := cmp.Diff(wantBatch, c.Store.Batch); diff != "" {
		t.Errorf("Store.Batch mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"rascunho"}, c.Ingest.Denylist); diff != "" {
		t.Errorf("Ingest.Denylist mismatch (-want +got):\n%s", diff)
	}

	aliases, err := c.Ingest.Aliases()
	if err != nil {
		t.Fatalf("Aliases() unexpected error: %v", err)
	}
	if diff := cmp.Diff(map[fields.Field][]string{fields.EffectiveAmount: {"Valor Pago"}}, aliases); diff != "" {
		t.Errorf("Aliases() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := chdir(t)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("DRE_STORE_DRIVER=postgres\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Registered so the variable set by godotenv is removed after the test.
	t.Setenv("DRE_STORE_DRIVER", "")
	os.Unsetenv("DRE_STORE_DRIVER")

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if c.Store.Driver != "postgres" {
		t.Errorf("Store.Driver = %q, want postgres from .env", c.Store.Driver)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"driver", map[string]string{"DRE_STORE_DRIVER": "mongo"}},
		{"log format", map[string]string{"DRE_LOG_FORMAT": "xml"}},
		{"timezone", map[string]string{"DRE_INGEST_TIMEZONE": "Mars/Olympus"}},
		{"batch size", map[string]string{"DRE_STORE_BATCH_SIZE": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(""); err == nil {
				t.Error("Load() expected error")
			}
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	dir := chdir(t)
	if _, err := Load(filepath.Join(dir, "nope.yaml")); err == nil {
		t.Error("Load() expected error for a missing explicit file")
	}
}
