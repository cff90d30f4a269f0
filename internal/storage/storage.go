package storage

import (
	"context"
	"encoding/json"
	"time"
)

// InstallationRecord is one per-user installation row for a plugin slug.
//
// A row is active while DeletedAt is nil. At most one active row may
// exist per (user, slug); the store enforces this with a uniqueness
// constraint and concurrent installs for the same user lose with a
// constraint violation.
type InstallationRecord struct {
	ID               string
	UserID           string
	Slug             string
	Name             string
	Description      string
	Version          string
	Status           string
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
	Permissions      json.RawMessage
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time
}

// ModuleRecord is one UI-module row owned by an installation row.
//
// JSON columns carry structurally-typed blobs whose schema comes from
// the module descriptor; the store does not enforce it.
type ModuleRecord struct {
	ID               string
	InstallationID   string
	Name             string
	DisplayName      string
	Description      string
	Icon             string
	Category         string
	Priority         int
	Props            json.RawMessage
	ConfigFields     json.RawMessage
	Messages         json.RawMessage
	RequiredServices json.RawMessage
	Dependencies     json.RawMessage
	Layout           json.RawMessage
	Tags             json.RawMessage
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ModuleRef identifies a module row without its payload columns.
type ModuleRef struct {
	ID          string
	Name        string
	DisplayName string
}

// Store is the read surface plus transaction factory for installation
// persistence. Reads outside a transaction see committed state only,
// which is what the orchestrator's post-commit verification requires.
type Store interface {
	// Begin opens the caller-supplied transaction used for one
	// top-level lifecycle operation.
	Begin(ctx context.Context) (Tx, error)
	// GetInstallation loads the active installation row for the user
	// and slug, reporting whether one exists.
	GetInstallation(ctx context.Context, userID, slug string) (InstallationRecord, bool, error)
	// CountActiveInstallations counts active rows for the user and slug.
	CountActiveInstallations(ctx context.Context, userID, slug string) (int, error)
	// ListModules loads all module rows for an installation.
	ListModules(ctx context.Context, installationID string) ([]ModuleRecord, error)
	Close() error
}

// Tx is one transaction over the installation tables. All writes issued
// through a Tx commit or roll back together.
type Tx interface {
	CreateInstallation(ctx context.Context, rec InstallationRecord) error
	CreateModule(ctx context.Context, rec ModuleRecord) error
	GetInstallation(ctx context.Context, userID, slug string) (InstallationRecord, bool, error)
	ListModules(ctx context.Context, installationID string) ([]ModuleRecord, error)
	// DeleteModules removes all module rows for the installation and
	// returns references to the deleted rows.
	DeleteModules(ctx context.Context, installationID string) ([]ModuleRef, error)
	DeleteInstallation(ctx context.Context, installationID, userID string) error
	UpdateInstallationStatus(ctx context.Context, userID, slug, status string) error
	// UpdateModuleConfig replaces the config_fields blob for the named
	// module of an installation.
	UpdateModuleConfig(ctx context.Context, installationID, name string, configFields json.RawMessage) error
	Commit() error
	Rollback() error
}
