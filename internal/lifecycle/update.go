package lifecycle

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/driftwoodlabs/pluginhost/internal/storage"
)

// ExportUserData snapshots the user's installation and module rows in
// memory, for backup or for replay across an update migration.
func (o *Orchestrator) ExportUserData(ctx context.Context, userID string) (Snapshot, error) {
	ctx, span := o.startSpan(ctx, "lifecycle.ExportUserData", userID)
	defer span.End()

	installation, found, err := o.store.GetInstallation(ctx, userID, o.plugin.Slug)
	if err != nil {
		return Snapshot{}, o.fail(span, WrapFault(KindExportFailed, "read installation", err))
	}
	if !found {
		return Snapshot{}, o.fail(span, NewFault(KindExportFailed,
			fmt.Sprintf("plugin %s not installed for user", o.plugin.Slug)))
	}

	modules, err := o.store.ListModules(ctx, installation.ID)
	if err != nil {
		return Snapshot{}, o.fail(span, WrapFault(KindExportFailed, "read modules", err))
	}

	return Snapshot{
		Installation: installation,
		Modules:      modules,
		Slug:         o.plugin.Slug,
		Version:      o.plugin.Version,
		ExportedAt:   o.now().UTC(),
	}, nil
}

// ImportUserData replays a snapshot onto the user's current
// installation in the caller-supplied transaction: the installation
// status is restored and each snapshot module's configuration is copied
// onto the module row with the same name. Snapshot modules with no
// counterpart are dropped; the skipped names are returned.
func (o *Orchestrator) ImportUserData(ctx context.Context, userID string, tx storage.Tx, snap Snapshot) (migrated, dropped []string, err error) {
	ctx, span := o.startSpan(ctx, "lifecycle.ImportUserData", userID)
	defer span.End()

	installation, found, err := tx.GetInstallation(ctx, userID, o.plugin.Slug)
	if err != nil {
		_ = tx.Rollback()
		return nil, nil, o.fail(span, WrapFault(KindDatabase, "read installation", err))
	}
	if !found {
		_ = tx.Rollback()
		return nil, nil, o.fail(span, NewFault(KindDatabase,
			fmt.Sprintf("plugin %s not installed for user", o.plugin.Slug)))
	}

	if status := strings.TrimSpace(snap.Installation.Status); status != "" {
		if err := tx.UpdateInstallationStatus(ctx, userID, o.plugin.Slug, status); err != nil {
			_ = tx.Rollback()
			return nil, nil, o.fail(span, WrapFault(KindDatabase, "restore installation status", err))
		}
	}

	current, err := tx.ListModules(ctx, installation.ID)
	if err != nil {
		_ = tx.Rollback()
		return nil, nil, o.fail(span, WrapFault(KindDatabase, "read modules", err))
	}
	names := make(map[string]struct{}, len(current))
	for _, m := range current {
		names[m.Name] = struct{}{}
	}

	for _, m := range snap.Modules {
		if _, ok := names[m.Name]; !ok {
			log.Printf("lifecycle: module %s absent in %s v%s, dropping its configuration",
				m.Name, o.plugin.Slug, o.plugin.Version)
			dropped = append(dropped, m.Name)
			continue
		}
		if err := tx.UpdateModuleConfig(ctx, installation.ID, m.Name, m.ConfigFields); err != nil {
			_ = tx.Rollback()
			return nil, nil, o.fail(span, WrapFault(KindDatabase,
				fmt.Sprintf("restore module %s config", m.Name), err))
		}
		migrated = append(migrated, m.Name)
	}

	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return nil, nil, o.fail(span, WrapFault(KindDatabase, "commit import", err))
	}
	return migrated, dropped, nil
}

// Update migrates the user from this release to the target release in
// three phases: export a snapshot, uninstall the current version,
// install the target and replay the snapshot. Each phase runs in its
// own transaction; phases already committed are not rolled back when a
// later phase fails, unless CompensateOnFailure re-installs the source
// version after a failed target install.
func (o *Orchestrator) Update(ctx context.Context, userID string, target *Orchestrator) (UpdateResult, error) {
	ctx, span := o.startSpan(ctx, "lifecycle.Update", userID)
	defer span.End()

	if target == nil {
		return UpdateResult{}, o.fail(span, NewFault(KindDatabase, "target orchestrator is required"))
	}

	snap, err := o.ExportUserData(ctx, userID)
	if err != nil {
		return UpdateResult{}, o.fail(span, err)
	}

	tx, err := o.store.Begin(ctx)
	if err != nil {
		return UpdateResult{}, o.fail(span, WrapFault(KindDatabase, "begin uninstall phase", err))
	}
	if _, err := o.Uninstall(ctx, userID, tx); err != nil {
		return UpdateResult{}, o.fail(span, err)
	}

	installTx, err := target.store.Begin(ctx)
	if err != nil {
		return UpdateResult{}, o.fail(span, WrapFault(KindDatabase, "begin install phase", err))
	}
	installed, err := target.Install(ctx, userID, installTx)
	if err != nil {
		if o.policy.CompensateOnFailure {
			compensated := o.compensate(ctx, userID, snap)
			return UpdateResult{Compensated: compensated}, o.fail(span, err)
		}
		return UpdateResult{}, o.fail(span, err)
	}

	importTx, err := target.store.Begin(ctx)
	if err != nil {
		return UpdateResult{}, o.fail(span, WrapFault(KindDatabase, "begin import phase", err))
	}
	migrated, dropped, err := target.ImportUserData(ctx, userID, importTx, snap)
	if err != nil {
		return UpdateResult{}, o.fail(span, err)
	}

	log.Printf("lifecycle: updated %s from v%s to v%s for user %s",
		o.plugin.Slug, o.plugin.Version, target.plugin.Version, userID)
	return UpdateResult{
		OldVersion:      o.plugin.Version,
		NewVersion:      target.plugin.Version,
		InstallationID:  installed.InstallationID,
		MigratedModules: migrated,
		DroppedModules:  dropped,
	}, nil
}

// compensate best-effort re-installs this release and replays the
// snapshot after a failed target install. It never masks the original
// fault; its own failures are logged only.
func (o *Orchestrator) compensate(ctx context.Context, userID string, snap Snapshot) bool {
	tx, err := o.store.Begin(ctx)
	if err != nil {
		log.Printf("lifecycle: compensation begin failed for user %s: %v", userID, err)
		return false
	}
	if _, err := o.Install(ctx, userID, tx); err != nil {
		log.Printf("lifecycle: compensation install failed for user %s: %v", userID, err)
		return false
	}

	importTx, err := o.store.Begin(ctx)
	if err != nil {
		log.Printf("lifecycle: compensation import begin failed for user %s: %v", userID, err)
		return false
	}
	if _, _, err := o.ImportUserData(ctx, userID, importTx, snap); err != nil {
		log.Printf("lifecycle: compensation import failed for user %s: %v", userID, err)
		return false
	}

	log.Printf("lifecycle: compensated failed update for user %s, %s v%s restored",
		userID, o.plugin.Slug, o.plugin.Version)
	return true
}
