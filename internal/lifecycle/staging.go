package lifecycle

import (
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Development artifacts never staged into the shared directory.
var (
	excludedSegments = map[string]struct{}{
		"node_modules": {},
		".git":         {},
		"__pycache__":  {},
		".DS_Store":    {},
		"Thumbs.db":    {},
	}
	excludedNames = map[string]struct{}{
		"package-lock.json": {},
		".gitignore":        {},
	}
	excludedSuffixes = []string{".pyc"}
)

// stageFiles copies the plugin source tree into targetDir, skipping
// development artifacts. Per-file copy failures are logged and skipped;
// only a failure of the walk itself aborts staging. In update mode
// existing target files are removed before being rewritten.
//
// Returns the relative paths of the files copied.
func stageFiles(sourceDir, targetDir string, update bool) ([]string, error) {
	if strings.TrimSpace(sourceDir) == "" {
		return nil, fmt.Errorf("source dir is required")
	}
	if strings.TrimSpace(targetDir) == "" {
		return nil, fmt.Errorf("target dir is required")
	}

	var copied []string
	err := filepath.WalkDir(sourceDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return fmt.Errorf("relative path for %s: %w", path, err)
		}
		if rel == "." {
			return nil
		}

		if excluded(rel) {
			if entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		targetPath := filepath.Join(targetDir, rel)
		if entry.IsDir() {
			if err := os.MkdirAll(targetPath, 0o755); err != nil {
				return fmt.Errorf("create dir %s: %w", rel, err)
			}
			return nil
		}

		if err := copyFile(path, targetPath, update); err != nil {
			log.Printf("staging: skip %s: %v", rel, err)
			return nil
		}
		copied = append(copied, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("stage files: %w", err)
	}
	return copied, nil
}

// excluded reports whether any segment or the file name of the relative
// path matches the exclusion rules.
func excluded(rel string) bool {
	for _, segment := range strings.Split(filepath.ToSlash(rel), "/") {
		if _, ok := excludedSegments[segment]; ok {
			return true
		}
	}
	name := filepath.Base(rel)
	if _, ok := excludedNames[name]; ok {
		return true
	}
	for _, suffix := range excludedSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

func copyFile(sourcePath, targetPath string, update bool) error {
	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	if update {
		if err := os.Remove(targetPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove existing file: %w", err)
		}
	}

	source, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer func() {
		_ = source.Close()
	}()

	info, err := source.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	target, err := os.OpenFile(targetPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create target: %w", err)
	}

	if _, err := io.Copy(target, source); err != nil {
		_ = target.Close()
		return fmt.Errorf("copy contents: %w", err)
	}
	if err := target.Close(); err != nil {
		return fmt.Errorf("close target: %w", err)
	}
	return nil
}
