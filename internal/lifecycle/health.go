package lifecycle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// HealthCheck verifies the shared files for this release are present
// and well formed. It is read-only and never fails hard: every problem,
// including internal errors, becomes an unhealthy finding.
func (o *Orchestrator) HealthCheck(userID string) HealthResult {
	result := HealthResult{Healthy: true, CheckedAt: o.now()}
	dir := o.sharedDir()

	bundle := filepath.Join(dir, o.plugin.BundleLocation)
	switch info, err := os.Stat(bundle); {
	case os.IsNotExist(err):
		result.add(false, "bundle file missing: %s", o.plugin.BundleLocation)
	case err != nil:
		result.add(false, "bundle file unreadable: %v", err)
	case info.Size() == 0:
		result.add(false, "bundle file is empty: %s", o.plugin.BundleLocation)
	default:
		result.add(true, "bundle file is valid")
	}

	manifestPath := filepath.Join(dir, o.plugin.ManifestFile)
	content, err := os.ReadFile(manifestPath)
	switch {
	case os.IsNotExist(err):
		result.add(false, "manifest missing: %s", o.plugin.ManifestFile)
	case err != nil:
		result.add(false, "manifest unreadable: %v", err)
	default:
		var m manifest
		if err := json.Unmarshal(content, &m); err != nil {
			result.add(false, "manifest is invalid: %s", o.plugin.ManifestFile)
		} else {
			result.add(true, "manifest is valid")
		}
	}

	for _, module := range o.plugin.Modules {
		if strings.TrimSpace(module.SourceFile) == "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, module.SourceFile)); err != nil {
			result.add(false, "module %s source missing: %s", module.Name, module.SourceFile)
		} else {
			result.add(true, "module %s source exists", module.Name)
		}
	}

	if strings.TrimSpace(o.plugin.Stylesheet) != "" {
		if _, err := os.Stat(filepath.Join(dir, o.plugin.Stylesheet)); err != nil {
			result.add(false, "stylesheet missing: %s", o.plugin.Stylesheet)
		} else {
			result.add(true, "stylesheet exists")
		}
	}

	return result
}

func (r *HealthResult) add(ok bool, format string, args ...any) {
	if !ok {
		r.Healthy = false
	}
	r.Findings = append(r.Findings, fmt.Sprintf(format, args...))
}
