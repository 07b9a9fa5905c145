package db

import (
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SettingsStore {
	t.Helper()
	database, err := Open(MemoryPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })

	if err := Migrate(database); err != nil {
		t.Fatal(err)
	}
	return NewSettingsStore(database)
}

func TestMigrate_CreatesAllTables(t *testing.T) {
	database, err := Open(MemoryPath)
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()

	if err := Migrate(database); err != nil {
		t.Fatal(err)
	}

	for _, table := range []string{"schema_version", "settings"} {
		row := database.QueryRow(
			`SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?`, table)
		var count int
		if err := row.Scan(&count); err != nil {
			t.Fatalf("checking table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("table %s not found", table)
		}
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	database, err := Open(MemoryPath)
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()

	if err := Migrate(database); err != nil {
		t.Fatal(err)
	}
	if err := Migrate(database); err != nil {
		t.Fatal(err)
	}

	version, err := SchemaVersion(database)
	if err != nil {
		t.Fatal(err)
	}
	if version != len(migrations) {
		t.Errorf("schema version = %d, want %d", version, len(migrations))
	}
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "wharton.db")

	database, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()

	if err := Migrate(database); err != nil {
		t.Fatal(err)
	}
}

func TestSettingsStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	value, ok, err := store.Get("commission.rate")
	if err != nil {
		t.Fatal(err)
	}
	if ok || value != "" {
		t.Errorf("Get on empty store = %q %v, want \"\" false", value, ok)
	}
}

func TestSettingsStore_SetGetOverwrite(t *testing.T) {
	store := newTestStore(t)

	if err := store.Set("commission.platform", "Kalshi"); err != nil {
		t.Fatal(err)
	}
	if err := store.Set("commission.platform", "PredictIt"); err != nil {
		t.Fatal(err)
	}

	value, ok, err := store.Get("commission.platform")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || value != "PredictIt" {
		t.Errorf("Get = %q %v, want PredictIt true", value, ok)
	}
}

func TestSettingsStore_DeleteAndAll(t *testing.T) {
	store := newTestStore(t)

	for k, v := range map[string]string{"a": "1", "b": "2"} {
		if err := store.Set(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.Delete("a"); err != nil {
		t.Fatal(err)
	}
	// Deleting a missing key is not an error.
	if err := store.Delete("missing"); err != nil {
		t.Fatal(err)
	}

	all, err := store.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all["b"] != "2" {
		t.Errorf("All = %v, want map[b:2]", all)
	}
}

func TestSettingsStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wharton.db")

	database, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := Migrate(database); err != nil {
		t.Fatal(err)
	}
	if err := NewSettingsStore(database).Set("commission.rate", "0.1"); err != nil {
		t.Fatal(err)
	}
	database.Close()

	database, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()
	if err := Migrate(database); err != nil {
		t.Fatal(err)
	}

	value, ok, err := NewSettingsStore(database).Get("commission.rate")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || value != "0.1" {
		t.Errorf("Get after reopen = %q %v, want 0.1 true", value, ok)
	}
}
