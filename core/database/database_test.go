package database

import (
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
)

func TestConfigDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: "5432", User: "bot", Password: "p@ss word", Name: "ui"}
	if got, want := cfg.DSN(), "user=bot password=p@ss word host=db port=5432 dbname=ui sslmode=disable"; got != want {
		t.Fatalf("DSN() = %q, want %q", got, want)
	}
	if got, want := cfg.URL(), "postgres://bot:p%40ss%20word@db:5432/ui?sslmode=disable"; got != want {
		t.Fatalf("URL() = %q, want %q", got, want)
	}
	cfg.SSLMode = "require"
	if got, want := cfg.URL(), "postgres://bot:p%40ss%20word@db:5432/ui?sslmode=require"; got != want {
		t.Fatalf("URL() = %q, want %q", got, want)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	files := upFiles(migrationsFS, migrationsDir)
	if diff := cmp.Diff([]string{"000001_fsm_state.up.sql"}, files); diff != "" {
		t.Fatalf("embedded migrations mismatch (-want +got):\n%s", diff)
	}
}

func TestAppliedBetween(t *testing.T) {
	fsys := fstest.MapFS{
		"m/000003_c.up.sql":   {},
		"m/000001_a.up.sql":   {},
		"m/000001_a.down.sql": {},
		"m/000002_b.up.sql":   {},
	}
	files := upFiles(fsys, "m")
	if diff := cmp.Diff([]string{"000001_a.up.sql", "000002_b.up.sql", "000003_c.up.sql"}, files); diff != "" {
		t.Fatalf("listing mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"000002_b.up.sql", "000003_c.up.sql"}, appliedBetween(files, 1, 3)); diff != "" {
		t.Fatalf("applied mismatch (-want +got):\n%s", diff)
	}
	if got := appliedBetween(files, 3, 3); len(got) != 0 {
		t.Fatalf("expected nothing applied, got %v", got)
	}
}
