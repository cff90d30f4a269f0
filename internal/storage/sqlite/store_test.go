package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/driftwoodlabs/pluginhost/internal/storage"
	_ "modernc.org/sqlite"
)

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("")
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestOpenRunsMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plugins.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer func() {
		_ = sqlDB.Close()
	}()

	assertTableExists(t, sqlDB, "installations")
	assertTableExists(t, sqlDB, "installation_modules")
}

func TestInstallationRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	rec := testInstallation("inst-1", "user-a")
	if err := tx.CreateInstallation(ctx, rec); err != nil {
		t.Fatalf("create installation: %v", err)
	}
	if err := tx.CreateModule(ctx, testModule("mod-1", "inst-1", "AISettings")); err != nil {
		t.Fatalf("create module: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	got, found, err := store.GetInstallation(ctx, "user-a", "ai-settings")
	if err != nil {
		t.Fatalf("get installation: %v", err)
	}
	if !found {
		t.Fatal("expected installation row")
	}
	if got.ID != "inst-1" {
		t.Fatalf("id = %q, want %q", got.ID, "inst-1")
	}
	if got.Version != "1.0.0" {
		t.Fatalf("version = %q, want %q", got.Version, "1.0.0")
	}
	if got.DeletedAt != nil {
		t.Fatal("expected active row")
	}

	modules, err := store.ListModules(ctx, "inst-1")
	if err != nil {
		t.Fatalf("list modules: %v", err)
	}
	if len(modules) != 1 {
		t.Fatalf("expected 1 module, got %d", len(modules))
	}
	if modules[0].Name != "AISettings" {
		t.Fatalf("module name = %q, want %q", modules[0].Name, "AISettings")
	}

	count, err := store.CountActiveInstallations(ctx, "user-a", "ai-settings")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}

func TestRollbackDiscardsWrites(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := tx.CreateInstallation(ctx, testInstallation("inst-1", "user-a")); err != nil {
		t.Fatalf("create installation: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	_, found, err := store.GetInstallation(ctx, "user-a", "ai-settings")
	if err != nil {
		t.Fatalf("get installation: %v", err)
	}
	if found {
		t.Fatal("expected no row after rollback")
	}
}

func TestSecondActiveInstallationViolatesUniqueness(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	commitInstallation(t, store, testInstallation("inst-1", "user-a"))

	tx, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if err := tx.CreateInstallation(ctx, testInstallation("inst-2", "user-a")); err == nil {
		t.Fatal("expected uniqueness violation")
	}
}

func TestDeleteModulesReturnsRefs(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	commitInstallation(t, store, testInstallation("inst-1", "user-a"),
		testModule("mod-1", "inst-1", "AISettings"),
		testModule("mod-2", "inst-1", "UsageMeter"),
	)

	tx, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	refs, err := tx.DeleteModules(ctx, "inst-1")
	if err != nil {
		t.Fatalf("delete modules: %v", err)
	}
	if err := tx.DeleteInstallation(ctx, "inst-1", "user-a"); err != nil {
		t.Fatalf("delete installation: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if len(refs) != 2 {
		t.Fatalf("expected 2 deleted module refs, got %d", len(refs))
	}

	_, found, err := store.GetInstallation(ctx, "user-a", "ai-settings")
	if err != nil {
		t.Fatalf("get installation: %v", err)
	}
	if found {
		t.Fatal("expected installation gone")
	}
	modules, err := store.ListModules(ctx, "inst-1")
	if err != nil {
		t.Fatalf("list modules: %v", err)
	}
	if len(modules) != 0 {
		t.Fatalf("expected no modules, got %d", len(modules))
	}
}

func TestUpdateModuleConfig(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	commitInstallation(t, store, testInstallation("inst-1", "user-a"),
		testModule("mod-1", "inst-1", "AISettings"),
	)

	tx, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	newConfig := json.RawMessage(`{"model":"gpt-4"}`)
	if err := tx.UpdateModuleConfig(ctx, "inst-1", "AISettings", newConfig); err != nil {
		t.Fatalf("update module config: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	modules, err := store.ListModules(ctx, "inst-1")
	if err != nil {
		t.Fatalf("list modules: %v", err)
	}
	if len(modules) != 1 {
		t.Fatalf("expected 1 module, got %d", len(modules))
	}
	if string(modules[0].ConfigFields) != `{"model":"gpt-4"}` {
		t.Fatalf("config = %s, want %s", modules[0].ConfigFields, newConfig)
	}
}

func TestFinishedTransactionIsUnusable(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := tx.CreateInstallation(ctx, testInstallation("inst-1", "user-a")); err == nil {
		t.Fatal("expected error on finished tx")
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback after commit should be a no-op, got %v", err)
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "plugins.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})
	return store
}

func commitInstallation(t *testing.T, store *Store, rec storage.InstallationRecord, modules ...storage.ModuleRecord) {
	t.Helper()
	ctx := context.Background()
	tx, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := tx.CreateInstallation(ctx, rec); err != nil {
		t.Fatalf("create installation: %v", err)
	}
	for _, m := range modules {
		if err := tx.CreateModule(ctx, m); err != nil {
			t.Fatalf("create module %s: %v", m.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func testInstallation(id, userID string) storage.InstallationRecord {
	now := time.Now().UTC()
	return storage.InstallationRecord{
		ID:          id,
		UserID:      userID,
		Slug:        "ai-settings",
		Name:        "AI Settings",
		Version:     "1.0.0",
		Status:      "activated",
		Permissions: json.RawMessage(`["storage.read"]`),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func testModule(id, installationID, name string) storage.ModuleRecord {
	now := time.Now().UTC()
	return storage.ModuleRecord{
		ID:             id,
		InstallationID: installationID,
		Name:           name,
		DisplayName:    name,
		Priority:       1,
		ConfigFields:   json.RawMessage(`{"model":"gpt-4o"}`),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func assertTableExists(t *testing.T, db *sql.DB, name string) {
	t.Helper()
	var found string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&found)
	if err != nil {
		t.Fatalf("expected table %q: %v", name, err)
	}
}
