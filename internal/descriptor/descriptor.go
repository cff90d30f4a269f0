package descriptor

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Plugin describes one release of a front-end plugin.
//
// The slug is the stable identity across versions; everything else is
// pinned to the release this value describes.
type Plugin struct {
	Slug             string
	Name             string
	Description      string
	Version          string
	Type             string
	Icon             string
	Category         string
	Official         bool
	Author           string
	Compatibility    string
	Scope            string
	BundleMethod     string
	BundleLocation   string
	IsLocal          bool
	LongDescription  string
	SourceType       string
	SourceURL        string
	UpdateCheckURL   string
	InstallationType string
	Permissions      []string

	// Files checked by installation validation and health checks,
	// relative to the shared version directory.
	ManifestFile string
	SourceEntry  string
	Stylesheet   string

	Modules []Module
}

// Module describes one UI module shipped by a plugin release.
type Module struct {
	Name             string
	DisplayName      string
	Description      string
	Icon             string
	Category         string
	Priority         int
	Props            map[string]any
	ConfigFields     map[string]any
	Messages         map[string]any
	RequiredServices map[string]any
	Dependencies     []string
	Layout           map[string]any
	Tags             []string

	// SourceFile is the module's source entry relative to the shared
	// version directory, checked by health checks.
	SourceFile string
}

// SharedDir returns the version-scoped shared directory for this release
// under the given plugins base directory.
func (p *Plugin) SharedDir(base string) string {
	return filepath.Join(base, "shared", p.Slug, "v"+p.Version)
}

// Validate checks the descriptor carries the identity fields the
// lifecycle orchestrator depends on.
func (p *Plugin) Validate() error {
	if p == nil {
		return fmt.Errorf("plugin descriptor is required")
	}
	if strings.TrimSpace(p.Slug) == "" {
		return fmt.Errorf("plugin slug is required")
	}
	if strings.TrimSpace(p.Version) == "" {
		return fmt.Errorf("plugin version is required")
	}
	if strings.TrimSpace(p.BundleLocation) == "" {
		return fmt.Errorf("plugin bundle location is required")
	}
	for i := range p.Modules {
		if strings.TrimSpace(p.Modules[i].Name) == "" {
			return fmt.Errorf("module %d: name is required", i)
		}
	}
	return nil
}

// ModuleByName returns the declared module with the given name.
func (p *Plugin) ModuleByName(name string) (Module, bool) {
	for _, m := range p.Modules {
		if m.Name == name {
			return m, true
		}
	}
	return Module{}, false
}
