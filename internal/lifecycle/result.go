package lifecycle

import (
	"time"

	"github.com/driftwoodlabs/pluginhost/internal/storage"
)

// InstallResult reports a completed installation.
type InstallResult struct {
	InstallationID string
	Slug           string
	Name           string
	Modules        []storage.ModuleRef
}

// UninstallResult reports a completed uninstallation.
type UninstallResult struct {
	InstallationID string
	DeletedModules []storage.ModuleRef
}

// UpdateResult reports a completed update migration.
type UpdateResult struct {
	OldVersion     string
	NewVersion     string
	InstallationID string
	// MigratedModules lists snapshot modules whose configuration was
	// replayed onto the new version.
	MigratedModules []string
	// DroppedModules lists snapshot modules with no counterpart in the
	// new version; their configuration is discarded.
	DroppedModules []string
	// Compensated reports that a failed target install was rolled
	// forward into a re-install of the source version.
	Compensated bool
}

// HealthResult reports the outcome of a read-only health check.
type HealthResult struct {
	Healthy   bool
	Findings  []string
	CheckedAt time.Time
}

// Status values reported by Status.
const (
	StatusNotInstalled = "not_installed"
	StatusHealthy      = "healthy"
	StatusUnhealthy    = "unhealthy"
)

// StatusResult composes the existence check with a health check.
type StatusResult struct {
	Exists bool
	Status string
	// Installation holds the active record metadata when Exists is true.
	Installation storage.InstallationRecord
	Findings     []string
}

// Snapshot is an in-memory export of one user's installation, used for
// backup and for replaying per-module configuration across an update.
type Snapshot struct {
	Installation storage.InstallationRecord
	Modules      []storage.ModuleRecord
	Slug         string
	Version      string
	ExportedAt   time.Time
}
