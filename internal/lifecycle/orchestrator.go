package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/driftwoodlabs/pluginhost/internal/descriptor"
	"github.com/driftwoodlabs/pluginhost/internal/host"
	"github.com/driftwoodlabs/pluginhost/internal/storage"
)

// StatusActivated is the status written to freshly installed rows.
const StatusActivated = "activated"

// UpdatePolicy controls failure handling across update phases.
//
// Update migration is not atomic across phases: once the uninstall
// phase commits, a later failure leaves the user without the plugin
// unless compensation is enabled.
type UpdatePolicy struct {
	// CompensateOnFailure re-installs the source version and replays
	// the exported snapshot when the target install phase fails.
	CompensateOnFailure bool
}

// Config assembles an Orchestrator for one plugin release.
type Config struct {
	Plugin      *descriptor.Plugin
	Store       storage.Store
	Activations host.Activations
	// BaseDir is the plugins base directory; shared files land under
	// BaseDir/shared/<slug>/v<version>.
	BaseDir string
	// SourceDir holds the release's distributable tree to stage.
	SourceDir string
	Policy    UpdatePolicy
	// Clock and IDGenerator default to time.Now and uuid.NewString.
	Clock       func() time.Time
	IDGenerator func() string
}

// Orchestrator sequences file staging, database writes, verification,
// and migration for one plugin release.
type Orchestrator struct {
	plugin    *descriptor.Plugin
	store     storage.Store
	acts      host.Activations
	baseDir   string
	sourceDir string
	policy    UpdatePolicy
	tracer    trace.Tracer
	now       func() time.Time
	newID     func() string
}

// New validates the configuration and returns an orchestrator bound to
// one plugin release.
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.Plugin.Validate(); err != nil {
		return nil, fmt.Errorf("plugin descriptor: %w", err)
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base dir is required")
	}
	if strings.TrimSpace(cfg.SourceDir) == "" {
		return nil, fmt.Errorf("source dir is required")
	}

	acts := cfg.Activations
	if acts == nil {
		acts = host.NewMemory()
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	newID := cfg.IDGenerator
	if newID == nil {
		newID = uuid.NewString
	}

	return &Orchestrator{
		plugin:    cfg.Plugin,
		store:     cfg.Store,
		acts:      acts,
		baseDir:   cfg.BaseDir,
		sourceDir: cfg.SourceDir,
		policy:    cfg.Policy,
		tracer:    otel.Tracer("github.com/driftwoodlabs/pluginhost/internal/lifecycle"),
		now:       now,
		newID:     newID,
	}, nil
}

// Plugin returns the release descriptor this orchestrator manages.
func (o *Orchestrator) Plugin() *descriptor.Plugin {
	return o.plugin
}

func (o *Orchestrator) sharedDir() string {
	return o.plugin.SharedDir(o.baseDir)
}

// Install installs the plugin for one user. File staging happens before
// any database write; all rows are created in the caller-supplied
// transaction. Install owns the transaction: it commits on success and
// rolls back on any failure. A post-commit read verifies exactly one
// active installation exists.
func (o *Orchestrator) Install(ctx context.Context, userID string, tx storage.Tx) (InstallResult, error) {
	ctx, span := o.startSpan(ctx, "lifecycle.Install", userID)
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		_ = tx.Rollback()
		return InstallResult{}, o.fail(span, NewFault(KindDatabase, "user id is required"))
	}

	_, found, err := o.store.GetInstallation(ctx, userID, o.plugin.Slug)
	if err != nil {
		_ = tx.Rollback()
		return InstallResult{}, o.fail(span, WrapFault(KindDatabase, "check existing installation", err))
	}
	if found {
		_ = tx.Rollback()
		return InstallResult{}, o.fail(span, NewFault(KindAlreadyInstalled,
			fmt.Sprintf("plugin %s already installed for user", o.plugin.Slug)))
	}

	sharedDir := o.sharedDir()
	// Shared across users of this version: "already exists" is success.
	if err := os.MkdirAll(sharedDir, 0o755); err != nil {
		_ = tx.Rollback()
		return InstallResult{}, o.fail(span, WrapFault(KindFileStaging, "create shared directory", err))
	}

	copied, err := stageFiles(o.sourceDir, sharedDir, false)
	if err != nil {
		_ = tx.Rollback()
		return InstallResult{}, o.fail(span, WrapFault(KindFileStaging, "stage plugin files", err))
	}
	log.Printf("lifecycle: staged %d files for %s v%s", len(copied), o.plugin.Slug, o.plugin.Version)

	if err := validateStaged(sharedDir, o.plugin); err != nil {
		_ = tx.Rollback()
		return InstallResult{}, o.fail(span, err)
	}

	result, err := o.createRecords(ctx, userID, tx)
	if err != nil {
		_ = tx.Rollback()
		return InstallResult{}, o.fail(span, err)
	}
	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return InstallResult{}, o.fail(span, WrapFault(KindDatabase, "commit installation", err))
	}

	// Defends against read-after-write anomalies: the transaction
	// reported success, now the store must agree.
	count, err := o.store.CountActiveInstallations(ctx, userID, o.plugin.Slug)
	if err != nil {
		return InstallResult{}, o.fail(span, WrapFault(KindVerificationFailed, "verify installation", err))
	}
	if count != 1 {
		return InstallResult{}, o.fail(span, NewFault(KindVerificationFailed,
			fmt.Sprintf("expected 1 active installation after commit, found %d", count)))
	}

	o.acts.Activate(userID)
	log.Printf("lifecycle: installed %s v%s for user %s", o.plugin.Slug, o.plugin.Version, userID)
	return result, nil
}

// createRecords inserts the installation row and one module row per
// descriptor. Partial module inserts never persist: any error aborts
// the whole transaction at the caller.
func (o *Orchestrator) createRecords(ctx context.Context, userID string, tx storage.Tx) (InstallResult, error) {
	permissions, err := json.Marshal(o.plugin.Permissions)
	if err != nil {
		return InstallResult{}, WrapFault(KindDatabase, "encode permissions", err)
	}

	now := o.now().UTC()
	installationID := o.newID()
	rec := storage.InstallationRecord{
		ID:               installationID,
		UserID:           userID,
		Slug:             o.plugin.Slug,
		Name:             o.plugin.Name,
		Description:      o.plugin.Description,
		Version:          o.plugin.Version,
		Status:           StatusActivated,
		Official:         o.plugin.Official,
		Author:           o.plugin.Author,
		Compatibility:    o.plugin.Compatibility,
		Scope:            o.plugin.Scope,
		BundleMethod:     o.plugin.BundleMethod,
		BundleLocation:   o.plugin.BundleLocation,
		IsLocal:          o.plugin.IsLocal,
		LongDescription:  o.plugin.LongDescription,
		SourceType:       o.plugin.SourceType,
		SourceURL:        o.plugin.SourceURL,
		UpdateCheckURL:   o.plugin.UpdateCheckURL,
		InstallationType: o.plugin.InstallationType,
		Permissions:      permissions,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := tx.CreateInstallation(ctx, rec); err != nil {
		return InstallResult{}, WrapFault(KindDatabase, "insert installation", err)
	}

	refs := make([]storage.ModuleRef, 0, len(o.plugin.Modules))
	for _, module := range o.plugin.Modules {
		moduleRec, err := o.moduleRecord(installationID, module, now)
		if err != nil {
			return InstallResult{}, err
		}
		if err := tx.CreateModule(ctx, moduleRec); err != nil {
			return InstallResult{}, WrapFault(KindDatabase,
				fmt.Sprintf("insert module %s", module.Name), err)
		}
		refs = append(refs, storage.ModuleRef{
			ID:          moduleRec.ID,
			Name:        moduleRec.Name,
			DisplayName: moduleRec.DisplayName,
		})
	}

	return InstallResult{
		InstallationID: installationID,
		Slug:           o.plugin.Slug,
		Name:           o.plugin.Name,
		Modules:        refs,
	}, nil
}

func (o *Orchestrator) moduleRecord(installationID string, module descriptor.Module, now time.Time) (storage.ModuleRecord, error) {
	blobs := make(map[string]json.RawMessage, 7)
	for name, value := range map[string]any{
		"props":             module.Props,
		"config_fields":     module.ConfigFields,
		"messages":          module.Messages,
		"required_services": module.RequiredServices,
		"dependencies":      module.Dependencies,
		"layout":            module.Layout,
		"tags":              module.Tags,
	} {
		encoded, err := json.Marshal(value)
		if err != nil {
			return storage.ModuleRecord{}, WrapFault(KindDatabase,
				fmt.Sprintf("encode module %s %s", module.Name, name), err)
		}
		blobs[name] = encoded
	}

	return storage.ModuleRecord{
		ID:               o.newID(),
		InstallationID:   installationID,
		Name:             module.Name,
		DisplayName:      module.DisplayName,
		Description:      module.Description,
		Icon:             module.Icon,
		Category:         module.Category,
		Priority:         module.Priority,
		Props:            blobs["props"],
		ConfigFields:     blobs["config_fields"],
		Messages:         blobs["messages"],
		RequiredServices: blobs["required_services"],
		Dependencies:     blobs["dependencies"],
		Layout:           blobs["layout"],
		Tags:             blobs["tags"],
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// Uninstall removes the user's installation and module rows in the
// caller-supplied transaction. Shared files are intentionally left in
// place: other users of this version still reference them, and file
// garbage collection is an external concern.
func (o *Orchestrator) Uninstall(ctx context.Context, userID string, tx storage.Tx) (UninstallResult, error) {
	ctx, span := o.startSpan(ctx, "lifecycle.Uninstall", userID)
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		_ = tx.Rollback()
		return UninstallResult{}, o.fail(span, NewFault(KindDatabase, "user id is required"))
	}

	installation, found, err := o.store.GetInstallation(ctx, userID, o.plugin.Slug)
	if err != nil {
		_ = tx.Rollback()
		return UninstallResult{}, o.fail(span, WrapFault(KindDatabase, "check existing installation", err))
	}
	if !found {
		_ = tx.Rollback()
		return UninstallResult{}, o.fail(span, NewFault(KindNotInstalled,
			fmt.Sprintf("plugin %s not installed for user", o.plugin.Slug)))
	}

	refs, err := tx.DeleteModules(ctx, installation.ID)
	if err != nil {
		_ = tx.Rollback()
		return UninstallResult{}, o.fail(span, WrapFault(KindDatabase, "delete modules", err))
	}
	if err := tx.DeleteInstallation(ctx, installation.ID, userID); err != nil {
		_ = tx.Rollback()
		return UninstallResult{}, o.fail(span, WrapFault(KindDatabase, "delete installation", err))
	}
	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return UninstallResult{}, o.fail(span, WrapFault(KindDatabase, "commit uninstallation", err))
	}

	o.acts.Deactivate(userID)
	log.Printf("lifecycle: uninstalled %s for user %s", o.plugin.Slug, userID)
	return UninstallResult{
		InstallationID: installation.ID,
		DeletedModules: refs,
	}, nil
}

// Status composes the existence check with a health check.
func (o *Orchestrator) Status(ctx context.Context, userID string) (StatusResult, error) {
	ctx, span := o.startSpan(ctx, "lifecycle.Status", userID)
	defer span.End()

	installation, found, err := o.store.GetInstallation(ctx, userID, o.plugin.Slug)
	if err != nil {
		return StatusResult{}, o.fail(span, WrapFault(KindDatabase, "check existing installation", err))
	}
	if !found {
		return StatusResult{Status: StatusNotInstalled}, nil
	}

	health := o.HealthCheck(userID)
	status := StatusHealthy
	if !health.Healthy {
		status = StatusUnhealthy
	}
	return StatusResult{
		Exists:       true,
		Status:       status,
		Installation: installation,
		Findings:     health.Findings,
	}, nil
}

func (o *Orchestrator) startSpan(ctx context.Context, name, userID string) (context.Context, trace.Span) {
	return o.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("plugin.slug", o.plugin.Slug),
		attribute.String("plugin.version", o.plugin.Version),
		attribute.String("user.id", userID),
	))
}

// fail records the fault on the span and returns it unchanged.
func (o *Orchestrator) fail(span trace.Span, fault error) error {
	span.RecordError(fault)
	span.SetStatus(codes.Error, fault.Error())
	return fault
}
