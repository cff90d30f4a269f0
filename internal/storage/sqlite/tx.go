package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/driftwoodlabs/pluginhost/internal/storage"
)

// Tx is one SQLite transaction over the installation tables.
type Tx struct {
	tx   *sql.Tx
	done bool
}

// CreateInstallation inserts one installation row.
func (t *Tx) CreateInstallation(ctx context.Context, rec storage.InstallationRecord) error {
	if err := t.usable(); err != nil {
		return err
	}
	if strings.TrimSpace(rec.ID) == "" {
		return fmt.Errorf("installation id is required")
	}
	if strings.TrimSpace(rec.UserID) == "" {
		return fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(rec.Slug) == "" {
		return fmt.Errorf("slug is required")
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}

	_, err := t.tx.ExecContext(
		ctx,
		`INSERT INTO installations (
		    id, user_id, slug, name, description, version, status,
		    official, author, compatibility, scope, bundle_method, bundle_location,
		    is_local, long_description, source_type, source_url, update_check_url,
		    installation_type, permissions, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.UserID,
		rec.Slug,
		rec.Name,
		rec.Description,
		rec.Version,
		rec.Status,
		boolToInt(rec.Official),
		rec.Author,
		rec.Compatibility,
		rec.Scope,
		rec.BundleMethod,
		rec.BundleLocation,
		boolToInt(rec.IsLocal),
		rec.LongDescription,
		rec.SourceType,
		rec.SourceURL,
		rec.UpdateCheckURL,
		rec.InstallationType,
		jsonOrDefault(rec.Permissions, "[]"),
		rec.CreatedAt.Format(timeFormat),
		rec.UpdatedAt.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("insert installation: %w", err)
	}
	return nil
}

// CreateModule inserts one module row.
func (t *Tx) CreateModule(ctx context.Context, rec storage.ModuleRecord) error {
	if err := t.usable(); err != nil {
		return err
	}
	if strings.TrimSpace(rec.ID) == "" {
		return fmt.Errorf("module id is required")
	}
	if strings.TrimSpace(rec.InstallationID) == "" {
		return fmt.Errorf("installation id is required")
	}
	if strings.TrimSpace(rec.Name) == "" {
		return fmt.Errorf("module name is required")
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}

	_, err := t.tx.ExecContext(
		ctx,
		`INSERT INTO installation_modules (
		    id, installation_id, name, display_name, description, icon,
		    category, priority, props, config_fields, messages, required_services,
		    dependencies, layout, tags, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.InstallationID,
		rec.Name,
		rec.DisplayName,
		rec.Description,
		rec.Icon,
		rec.Category,
		rec.Priority,
		jsonOrDefault(rec.Props, "{}"),
		jsonOrDefault(rec.ConfigFields, "{}"),
		jsonOrDefault(rec.Messages, "{}"),
		jsonOrDefault(rec.RequiredServices, "{}"),
		jsonOrDefault(rec.Dependencies, "[]"),
		jsonOrDefault(rec.Layout, "{}"),
		jsonOrDefault(rec.Tags, "[]"),
		rec.CreatedAt.Format(timeFormat),
		rec.UpdatedAt.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("insert module: %w", err)
	}
	return nil
}

// GetInstallation loads the active installation row inside the transaction.
func (t *Tx) GetInstallation(ctx context.Context, userID, slug string) (storage.InstallationRecord, bool, error) {
	if err := t.usable(); err != nil {
		return storage.InstallationRecord{}, false, err
	}
	return getInstallation(ctx, t.tx, userID, slug)
}

// ListModules loads all module rows for an installation inside the transaction.
func (t *Tx) ListModules(ctx context.Context, installationID string) ([]storage.ModuleRecord, error) {
	if err := t.usable(); err != nil {
		return nil, err
	}
	return listModules(ctx, t.tx, installationID)
}

// DeleteModules removes all module rows for an installation and returns
// references to the deleted rows.
func (t *Tx) DeleteModules(ctx context.Context, installationID string) ([]storage.ModuleRef, error) {
	if err := t.usable(); err != nil {
		return nil, err
	}
	installationID = strings.TrimSpace(installationID)
	if installationID == "" {
		return nil, fmt.Errorf("installation id is required")
	}

	rows, err := t.tx.QueryContext(
		ctx,
		`SELECT id, name, display_name FROM installation_modules WHERE installation_id = ?`,
		installationID,
	)
	if err != nil {
		return nil, fmt.Errorf("list modules for delete: %w", err)
	}
	var refs []storage.ModuleRef
	for rows.Next() {
		var ref storage.ModuleRef
		if err := rows.Scan(&ref.ID, &ref.Name, &ref.DisplayName); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan module ref: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("list modules for delete: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("close module rows: %w", err)
	}

	if _, err := t.tx.ExecContext(
		ctx,
		`DELETE FROM installation_modules WHERE installation_id = ?`,
		installationID,
	); err != nil {
		return nil, fmt.Errorf("delete modules: %w", err)
	}
	return refs, nil
}

// DeleteInstallation removes the installation row for a user.
func (t *Tx) DeleteInstallation(ctx context.Context, installationID, userID string) error {
	if err := t.usable(); err != nil {
		return err
	}
	installationID = strings.TrimSpace(installationID)
	userID = strings.TrimSpace(userID)
	if installationID == "" || userID == "" {
		return fmt.Errorf("installation id and user id are required")
	}

	if _, err := t.tx.ExecContext(
		ctx,
		`DELETE FROM installations WHERE id = ? AND user_id = ?`,
		installationID, userID,
	); err != nil {
		return fmt.Errorf("delete installation: %w", err)
	}
	return nil
}

// UpdateInstallationStatus sets the status of a user's active installation.
func (t *Tx) UpdateInstallationStatus(ctx context.Context, userID, slug, status string) error {
	if err := t.usable(); err != nil {
		return err
	}
	userID = strings.TrimSpace(userID)
	slug = strings.TrimSpace(slug)
	if userID == "" || slug == "" {
		return fmt.Errorf("user id and slug are required")
	}
	if strings.TrimSpace(status) == "" {
		return fmt.Errorf("status is required")
	}

	if _, err := t.tx.ExecContext(
		ctx,
		`UPDATE installations
		 SET status = ?, updated_at = ?
		 WHERE user_id = ? AND slug = ? AND deleted_at IS NULL`,
		status, time.Now().UTC().Format(timeFormat), userID, slug,
	); err != nil {
		return fmt.Errorf("update installation status: %w", err)
	}
	return nil
}

// UpdateModuleConfig replaces the config_fields blob for the named module.
func (t *Tx) UpdateModuleConfig(ctx context.Context, installationID, name string, configFields json.RawMessage) error {
	if err := t.usable(); err != nil {
		return err
	}
	installationID = strings.TrimSpace(installationID)
	name = strings.TrimSpace(name)
	if installationID == "" || name == "" {
		return fmt.Errorf("installation id and module name are required")
	}

	if _, err := t.tx.ExecContext(
		ctx,
		`UPDATE installation_modules
		 SET config_fields = ?, updated_at = ?
		 WHERE installation_id = ? AND name = ?`,
		jsonOrDefault(configFields, "{}"),
		time.Now().UTC().Format(timeFormat),
		installationID,
		name,
	); err != nil {
		return fmt.Errorf("update module config: %w", err)
	}
	return nil
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	if err := t.usable(); err != nil {
		return err
	}
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Rollback aborts the transaction. Rolling back a finished transaction
// is a no-op so callers can defer it unconditionally.
func (t *Tx) Rollback() error {
	if t == nil || t.tx == nil || t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil {
		return fmt.Errorf("rollback tx: %w", err)
	}
	return nil
}

func (t *Tx) usable() error {
	if t == nil || t.tx == nil {
		return fmt.Errorf("transaction is not configured")
	}
	if t.done {
		return fmt.Errorf("transaction is finished")
	}
	return nil
}

func boolToInt(value bool) int64 {
	if value {
		return 1
	}
	return 0
}

func jsonOrDefault(value json.RawMessage, fallback string) string {
	if len(value) == 0 {
		return fallback
	}
	return string(value)
}

var _ storage.Tx = (*Tx)(nil)
