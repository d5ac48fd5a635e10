package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/upb/rbac-control-plane/config"
	"go.uber.org/zap"
)

// DB wraps the sql.DB connection pool
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB creates a new database connection pool
func NewDB(cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("connection", cfg.LogString()))

	return &DB{
		DB:     db,
		logger: logger,
	}, nil
}

// WrapDB wraps an already opened pool, e.g. a sqlmock connection in tests
func WrapDB(db *sql.DB, logger *zap.Logger) *DB {
	return &DB{DB: db, logger: logger}
}

// Close closes the database connection pool
func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}

// Stats returns database connection pool statistics
func (db *DB) Stats() sql.DBStats {
	return db.DB.Stats()
}

// InitSchema creates the tenant, directory and grant tables.
//
// Grants reference users and roles through composite foreign keys so a grant
// can never point outside its tenant. resource_id is a free pattern string and
// is deliberately not a foreign key into resource.
func (db *DB) InitSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS organization (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS organization_property (
			org_id TEXT NOT NULL REFERENCES organization(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			value JSONB NOT NULL DEFAULT 'null',
			hidden BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (org_id, name)
		);

		CREATE TABLE IF NOT EXISTS users (
			org_id TEXT NOT NULL REFERENCES organization(id) ON DELETE CASCADE,
			id TEXT NOT NULL,
			identity_provider TEXT NOT NULL,
			identity_provider_user_id TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (org_id, id)
		);

		CREATE TABLE IF NOT EXISTS user_property (
			org_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			value JSONB NOT NULL DEFAULT 'null',
			hidden BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (org_id, user_id, name),
			FOREIGN KEY (org_id, user_id) REFERENCES users(org_id, id) ON DELETE CASCADE
		);

		CREATE TABLE IF NOT EXISTS role (
			org_id TEXT NOT NULL REFERENCES organization(id) ON DELETE CASCADE,
			id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (org_id, id)
		);

		CREATE TABLE IF NOT EXISTS role_property (
			org_id TEXT NOT NULL,
			role_id TEXT NOT NULL,
			name TEXT NOT NULL,
			value JSONB NOT NULL DEFAULT 'null',
			hidden BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (org_id, role_id, name),
			FOREIGN KEY (org_id, role_id) REFERENCES role(org_id, id) ON DELETE CASCADE
		);

		CREATE TABLE IF NOT EXISTS resource (
			org_id TEXT NOT NULL REFERENCES organization(id) ON DELETE CASCADE,
			id TEXT NOT NULL,
			name TEXT,
			description TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (org_id, id)
		);

		CREATE TABLE IF NOT EXISTS user_permission (
			org_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			resource_id TEXT NOT NULL,
			action TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (org_id, user_id, resource_id, action),
			FOREIGN KEY (org_id, user_id) REFERENCES users(org_id, id) ON DELETE CASCADE
		);

		CREATE TABLE IF NOT EXISTS role_permission (
			org_id TEXT NOT NULL,
			role_id TEXT NOT NULL,
			resource_id TEXT NOT NULL,
			action TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (org_id, role_id, resource_id, action),
			FOREIGN KEY (org_id, role_id) REFERENCES role(org_id, id) ON DELETE CASCADE
		);

		CREATE TABLE IF NOT EXISTS user_role (
			org_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			role_id TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (org_id, user_id, role_id),
			FOREIGN KEY (org_id, user_id) REFERENCES users(org_id, id) ON DELETE CASCADE,
			FOREIGN KEY (org_id, role_id) REFERENCES role(org_id, id) ON DELETE CASCADE
		);

		-- Indexes for performance
		CREATE INDEX IF NOT EXISTS idx_users_identity ON users(org_id, identity_provider, identity_provider_user_id);
		CREATE INDEX IF NOT EXISTS idx_user_permission_resource ON user_permission(org_id, resource_id);
		CREATE INDEX IF NOT EXISTS idx_role_permission_resource ON role_permission(org_id, resource_id);
		CREATE INDEX IF NOT EXISTS idx_user_role_role ON user_role(org_id, role_id);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	db.logger.Info("database schema initialized successfully")
	return nil
}
