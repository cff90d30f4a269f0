package lifecycle

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStageFilesCopiesTree(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()
	writeTree(t, source, map[string]string{
		"package.json":        `{"name":"ai-settings","version":"1.0.0"}`,
		"dist/remoteEntry.js": "bundle",
		"src/AISettings.tsx":  "component",
	})

	copied, err := stageFiles(source, target, false)
	if err != nil {
		t.Fatalf("stage files: %v", err)
	}
	if len(copied) != 3 {
		t.Fatalf("expected 3 copied files, got %d: %v", len(copied), copied)
	}

	content, err := os.ReadFile(filepath.Join(target, "dist", "remoteEntry.js"))
	if err != nil {
		t.Fatalf("read staged bundle: %v", err)
	}
	if string(content) != "bundle" {
		t.Fatalf("bundle content = %q", content)
	}
}

func TestStageFilesExcludesDevelopmentArtifacts(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()
	writeTree(t, source, map[string]string{
		"package.json":              `{}`,
		"package-lock.json":         `{}`,
		".gitignore":                "dist",
		"node_modules/dep/index.js": "dep",
		".git/HEAD":                 "ref",
		"__pycache__/mod.cpython":   "cache",
		"build/helper.pyc":          "bytecode",
		".DS_Store":                 "meta",
	})

	copied, err := stageFiles(source, target, false)
	if err != nil {
		t.Fatalf("stage files: %v", err)
	}
	if len(copied) != 1 || copied[0] != "package.json" {
		t.Fatalf("expected only package.json staged, got %v", copied)
	}

	if _, err := os.Stat(filepath.Join(target, "node_modules")); !os.IsNotExist(err) {
		t.Fatal("expected node_modules to be excluded")
	}
	if _, err := os.Stat(filepath.Join(target, "build", "helper.pyc")); !os.IsNotExist(err) {
		t.Fatal("expected .pyc files to be excluded")
	}
}

func TestStageFilesOverwritesInUpdateMode(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()
	writeTree(t, source, map[string]string{"dist/remoteEntry.js": "new bundle"})
	writeTree(t, target, map[string]string{"dist/remoteEntry.js": "old bundle"})

	if _, err := stageFiles(source, target, true); err != nil {
		t.Fatalf("stage files: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(target, "dist", "remoteEntry.js"))
	if err != nil {
		t.Fatalf("read staged bundle: %v", err)
	}
	if string(content) != "new bundle" {
		t.Fatalf("bundle content = %q, want %q", content, "new bundle")
	}
}

func TestStageFilesSkipsUnreadableFile(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()
	writeTree(t, source, map[string]string{"package.json": `{}`})
	// A dangling symlink walks fine but fails to open, exercising the
	// best-effort per-file skip.
	if err := os.Symlink(filepath.Join(source, "missing"), filepath.Join(source, "broken.js")); err != nil {
		t.Skipf("symlink not supported: %v", err)
	}

	copied, err := stageFiles(source, target, false)
	if err != nil {
		t.Fatalf("stage files: %v", err)
	}
	if len(copied) != 1 || copied[0] != "package.json" {
		t.Fatalf("expected only package.json staged, got %v", copied)
	}
}

func TestStageFilesRequiresDirs(t *testing.T) {
	if _, err := stageFiles("", t.TempDir(), false); err == nil {
		t.Fatal("expected error for empty source dir")
	}
	if _, err := stageFiles(t.TempDir(), "", false); err == nil {
		t.Fatal("expected error for empty target dir")
	}
}

func TestStageFilesFailsWhenSourceMissing(t *testing.T) {
	_, err := stageFiles(filepath.Join(t.TempDir(), "absent"), t.TempDir(), false)
	if err == nil {
		t.Fatal("expected error for missing source tree")
	}
}

func writeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}
