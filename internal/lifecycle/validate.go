package lifecycle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/driftwoodlabs/pluginhost/internal/descriptor"
)

// manifest is the subset of the plugin manifest the orchestrator
// inspects; everything else in the file belongs to the front end.
type manifest struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// validateStaged checks the staged tree against the descriptor's
// required surface. It short-circuits on the first failing check and
// returns a validation fault naming it.
func validateStaged(dir string, p *descriptor.Plugin) error {
	required := []string{p.ManifestFile, p.BundleLocation, p.SourceEntry, p.Stylesheet}
	for _, rel := range required {
		if strings.TrimSpace(rel) == "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, rel)); err != nil {
			return NewFault(KindValidation, fmt.Sprintf("missing required file: %s", rel))
		}
	}

	manifestPath := filepath.Join(dir, p.ManifestFile)
	content, err := os.ReadFile(manifestPath)
	if err != nil {
		return WrapFault(KindValidation, fmt.Sprintf("read manifest %s", p.ManifestFile), err)
	}
	var m manifest
	if err := json.Unmarshal(content, &m); err != nil {
		return WrapFault(KindValidation, fmt.Sprintf("manifest %s is not valid JSON", p.ManifestFile), err)
	}
	if strings.TrimSpace(m.Name) == "" {
		return NewFault(KindValidation, fmt.Sprintf("manifest %s missing required field: name", p.ManifestFile))
	}
	if strings.TrimSpace(m.Version) == "" {
		return NewFault(KindValidation, fmt.Sprintf("manifest %s missing required field: version", p.ManifestFile))
	}

	bundlePath := filepath.Join(dir, p.BundleLocation)
	info, err := os.Stat(bundlePath)
	if err != nil {
		return WrapFault(KindValidation, fmt.Sprintf("stat bundle %s", p.BundleLocation), err)
	}
	if info.Size() == 0 {
		return NewFault(KindValidation, fmt.Sprintf("bundle %s is empty", p.BundleLocation))
	}

	return nil
}
