package lifecycle

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/driftwoodlabs/pluginhost/internal/descriptor"
)

func TestHealthCheckHealthyAfterInstall(t *testing.T) {
	store := openTestStore(t)
	orch := newTestOrchestrator(t, store, descriptor.AISettings(), currentSourceTree(t), nil)
	if _, err := orch.Install(context.Background(), "user-1", beginTx(t, store)); err != nil {
		t.Fatalf("install: %v", err)
	}

	result := orch.HealthCheck("user-1")
	if !result.Healthy {
		t.Fatalf("expected healthy, findings: %v", result.Findings)
	}
	if len(result.Findings) == 0 {
		t.Fatal("expected positive findings for a healthy check")
	}
	if result.CheckedAt.IsZero() {
		t.Fatal("expected check timestamp")
	}
}

func TestHealthCheckReportsMissingBundle(t *testing.T) {
	orch, dir := installedOrchestrator(t)
	if err := os.Remove(filepath.Join(dir, "dist", "remoteEntry.js")); err != nil {
		t.Fatalf("remove bundle: %v", err)
	}

	result := orch.HealthCheck("user-1")
	if result.Healthy {
		t.Fatal("expected unhealthy with missing bundle")
	}
	if !findingsMention(result.Findings, "dist/remoteEntry.js") {
		t.Fatalf("expected finding naming the bundle, got %v", result.Findings)
	}
}

func TestHealthCheckReportsEmptyBundle(t *testing.T) {
	orch, dir := installedOrchestrator(t)
	if err := os.WriteFile(filepath.Join(dir, "dist", "remoteEntry.js"), nil, 0o644); err != nil {
		t.Fatalf("truncate bundle: %v", err)
	}

	result := orch.HealthCheck("user-1")
	if result.Healthy {
		t.Fatal("expected unhealthy with empty bundle")
	}
	if !findingsMention(result.Findings, "empty") {
		t.Fatalf("expected finding reporting the empty bundle, got %v", result.Findings)
	}
}

func TestHealthCheckReportsInvalidManifest(t *testing.T) {
	orch, dir := installedOrchestrator(t)
	if err := os.WriteFile(filepath.Join(dir, "package.json"), []byte("not json"), 0o644); err != nil {
		t.Fatalf("corrupt manifest: %v", err)
	}

	result := orch.HealthCheck("user-1")
	if result.Healthy {
		t.Fatal("expected unhealthy with invalid manifest")
	}
	if !findingsMention(result.Findings, "package.json") {
		t.Fatalf("expected finding naming the manifest, got %v", result.Findings)
	}
}

func TestHealthCheckReportsMissingModuleSource(t *testing.T) {
	orch, dir := installedOrchestrator(t)
	if err := os.Remove(filepath.Join(dir, "src", "AISettings.tsx")); err != nil {
		t.Fatalf("remove module source: %v", err)
	}

	result := orch.HealthCheck("user-1")
	if result.Healthy {
		t.Fatal("expected unhealthy with missing module source")
	}
	if !findingsMention(result.Findings, "AISettings") {
		t.Fatalf("expected finding naming the module, got %v", result.Findings)
	}
}

// installedOrchestrator installs the 1.0.0 release for user-1 and
// returns the orchestrator with its shared version directory.
func installedOrchestrator(t *testing.T) (*Orchestrator, string) {
	t.Helper()
	store := openTestStore(t)
	base := t.TempDir()
	plugin := descriptor.AISettings()
	orch, err := New(Config{
		Plugin:    plugin,
		Store:     store,
		BaseDir:   base,
		SourceDir: currentSourceTree(t),
	})
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	if _, err := orch.Install(context.Background(), "user-1", beginTx(t, store)); err != nil {
		t.Fatalf("install: %v", err)
	}
	return orch, plugin.SharedDir(base)
}
