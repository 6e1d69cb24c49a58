package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	"github.com/wadjakorntonsri/pretty-links/pkg/core/domain"
	"github.com/wadjakorntonsri/pretty-links/pkg/ports"
	_ "modernc.org/sqlite" // Local SQLite driver
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbURL string) (*SQLiteRepository, error) {
	driverName := "sqlite"
	if strings.Contains(dbURL, "libsql://") || strings.Contains(dbURL, "wss://") {
		driverName = "libsql"
	}

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, err
	}
	if driverName == "sqlite" {
		// a single writer avoids SQLITE_BUSY on local files and shared-cache memory dbs
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteRepository{db: db}, nil
}

func migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS components (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		main_url TEXT NOT NULL,
		latest_url TEXT NOT NULL,
		owner_id TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_components_owner_id ON components(owner_id);
	`
	_, err := db.Exec(query)
	return err
}

const selectColumns = `SELECT id, name, main_url, latest_url, owner_id, created_at, updated_at FROM components`

type scanner interface {
	Scan(dest ...any) error
}

func scanComponent(row scanner) (*domain.Component, error) {
	var c domain.Component
	if err := row.Scan(&c.ID, &c.Name, &c.MainURL, &c.LatestURL, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, component *domain.Component) error {
	if err := component.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	query := `INSERT INTO components (id, name, main_url, latest_url, owner_id, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		component.ID, component.Name, component.MainURL, component.LatestURL, component.OwnerID, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewDuplicateIDError(component.ID)
		}
		return domain.NewStorageError("create", err)
	}

	component.CreatedAt = now
	component.UpdatedAt = now
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*domain.Component, error) {
	c, err := scanComponent(r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("get", err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Component, error) {
	query := selectColumns
	args := []interface{}{}
	if ownerID != "" {
		query += ` WHERE owner_id = ?`
		args = append(args, ownerID)
	}
	query += ` ORDER BY name ASC, id ASC`

	return r.list(ctx, "list", query, args...)
}

func (r *SQLiteRepository) list(ctx context.Context, op, query string, args ...interface{}) ([]domain.Component, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.NewStorageError(op, err)
	}
	defer rows.Close()

	components := []domain.Component{}
	for rows.Next() {
		c, err := scanComponent(rows)
		if err != nil {
			return nil, domain.NewStorageError(op, err)
		}
		components = append(components, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError(op, err)
	}
	return components, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, id string, patch domain.ComponentPatch) (*domain.Component, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.NewStorageError("update", err)
	}
	defer tx.Rollback()

	current, err := scanComponent(tx.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("update", err)
	}

	next := patch.Apply(*current)
	if err := next.Validate(); err != nil {
		return nil, err
	}
	next.UpdatedAt = time.Now().UTC()

	query := `UPDATE components SET main_url = ?, latest_url = ?, updated_at = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, query, next.MainURL, next.LatestURL, next.UpdatedAt, id); err != nil {
		return nil, domain.NewStorageError("update", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, domain.NewStorageError("update", err)
	}
	return &next, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM components WHERE id = ?`, id)
	return domain.NewStorageError("delete", err)
}

func (r *SQLiteRepository) Dump(ctx context.Context) ([]domain.Component, error) {
	return r.list(ctx, "dump", selectColumns+` ORDER BY id ASC`)
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY constraint failed")
}

// Ensure interface compliance
var _ ports.ComponentRepository = (*SQLiteRepository)(nil)
