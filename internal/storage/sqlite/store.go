package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/driftwoodlabs/pluginhost/internal/platform/storage/sqlitemigrate"
	"github.com/driftwoodlabs/pluginhost/internal/storage"
	"github.com/driftwoodlabs/pluginhost/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

const timeFormat = time.RFC3339Nano

// Store provides a SQLite-backed store implementing storage.Store.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite store at the provided path and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := store.runMigrations(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// runMigrations runs embedded SQL migrations.
func (s *Store) runMigrations() error {
	return sqlitemigrate.ApplyMigrations(s.sqlDB, migrations.FS)
}

// Begin opens a transaction over the installation tables.
func (s *Store) Begin(ctx context.Context) (storage.Tx, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// GetInstallation loads the active installation row for a user and slug.
func (s *Store) GetInstallation(ctx context.Context, userID, slug string) (storage.InstallationRecord, bool, error) {
	if s == nil || s.sqlDB == nil {
		return storage.InstallationRecord{}, false, fmt.Errorf("storage is not configured")
	}
	return getInstallation(ctx, s.sqlDB, userID, slug)
}

// CountActiveInstallations counts active installation rows for a user and slug.
func (s *Store) CountActiveInstallations(ctx context.Context, userID, slug string) (int, error) {
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	slug = strings.TrimSpace(slug)
	if userID == "" || slug == "" {
		return 0, fmt.Errorf("user id and slug are required")
	}

	var count int
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM installations
		 WHERE user_id = ? AND slug = ? AND deleted_at IS NULL`,
		userID, slug,
	)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count installations: %w", err)
	}
	return count, nil
}

// ListModules loads all module rows for an installation.
func (s *Store) ListModules(ctx context.Context, installationID string) ([]storage.ModuleRecord, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	return listModules(ctx, s.sqlDB, installationID)
}

// querier abstracts *sql.DB and *sql.Tx for shared read queries.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

const installationColumns = `id, user_id, slug, name, description, version, status,
	official, author, compatibility, scope, bundle_method, bundle_location,
	is_local, long_description, source_type, source_url, update_check_url,
	installation_type, permissions, created_at, updated_at, deleted_at`

func getInstallation(ctx context.Context, q querier, userID, slug string) (storage.InstallationRecord, bool, error) {
	userID = strings.TrimSpace(userID)
	slug = strings.TrimSpace(slug)
	if userID == "" || slug == "" {
		return storage.InstallationRecord{}, false, fmt.Errorf("user id and slug are required")
	}

	row := q.QueryRowContext(
		ctx,
		`SELECT `+installationColumns+`
		 FROM installations
		 WHERE user_id = ? AND slug = ? AND deleted_at IS NULL
		 ORDER BY created_at DESC
		 LIMIT 1`,
		userID, slug,
	)

	rec, err := scanInstallation(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return storage.InstallationRecord{}, false, nil
		}
		return storage.InstallationRecord{}, false, fmt.Errorf("get installation: %w", err)
	}
	return rec, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstallation(row rowScanner) (storage.InstallationRecord, error) {
	var rec storage.InstallationRecord
	var official, isLocal int64
	var permissions []byte
	var createdAt, updatedAt string
	var deletedAt sql.NullString

	if err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.Slug,
		&rec.Name,
		&rec.Description,
		&rec.Version,
		&rec.Status,
		&official,
		&rec.Author,
		&rec.Compatibility,
		&rec.Scope,
		&rec.BundleMethod,
		&rec.BundleLocation,
		&isLocal,
		&rec.LongDescription,
		&rec.SourceType,
		&rec.SourceURL,
		&rec.UpdateCheckURL,
		&rec.InstallationType,
		&permissions,
		&createdAt,
		&updatedAt,
		&deletedAt,
	); err != nil {
		return storage.InstallationRecord{}, err
	}

	rec.Official = official != 0
	rec.IsLocal = isLocal != 0
	rec.Permissions = permissions

	var err error
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return storage.InstallationRecord{}, fmt.Errorf("parse created_at: %w", err)
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return storage.InstallationRecord{}, fmt.Errorf("parse updated_at: %w", err)
	}
	if deletedAt.Valid {
		parsed, err := parseTime(deletedAt.String)
		if err != nil {
			return storage.InstallationRecord{}, fmt.Errorf("parse deleted_at: %w", err)
		}
		rec.DeletedAt = &parsed
	}
	return rec, nil
}

const moduleColumns = `id, installation_id, name, display_name, description, icon,
	category, priority, props, config_fields, messages, required_services,
	dependencies, layout, tags, created_at, updated_at`

func listModules(ctx context.Context, q querier, installationID string) ([]storage.ModuleRecord, error) {
	installationID = strings.TrimSpace(installationID)
	if installationID == "" {
		return nil, fmt.Errorf("installation id is required")
	}

	rows, err := q.QueryContext(
		ctx,
		`SELECT `+moduleColumns+`
		 FROM installation_modules
		 WHERE installation_id = ?
		 ORDER BY priority ASC, name ASC`,
		installationID,
	)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var modules []storage.ModuleRecord
	for rows.Next() {
		rec, err := scanModule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		modules = append(modules, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	return modules, nil
}

func scanModule(row rowScanner) (storage.ModuleRecord, error) {
	var rec storage.ModuleRecord
	var props, configFields, messages, requiredServices, dependencies, layout, tags []byte
	var createdAt, updatedAt string

	if err := row.Scan(
		&rec.ID,
		&rec.InstallationID,
		&rec.Name,
		&rec.DisplayName,
		&rec.Description,
		&rec.Icon,
		&rec.Category,
		&rec.Priority,
		&props,
		&configFields,
		&messages,
		&requiredServices,
		&dependencies,
		&layout,
		&tags,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.ModuleRecord{}, err
	}

	rec.Props = props
	rec.ConfigFields = configFields
	rec.Messages = messages
	rec.RequiredServices = requiredServices
	rec.Dependencies = dependencies
	rec.Layout = layout
	rec.Tags = tags

	var err error
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return storage.ModuleRecord{}, fmt.Errorf("parse created_at: %w", err)
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return storage.ModuleRecord{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return rec, nil
}

func parseTime(value string) (time.Time, error) {
	return time.Parse(timeFormat, value)
}

var _ storage.Store = (*Store)(nil)
