package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/idadmin/internal/audit/domain"
	clientdomain "github.com/smallbiznis/idadmin/internal/client/domain"
	grantdomain "github.com/smallbiznis/idadmin/internal/grant/domain"
	identitydomain "github.com/smallbiznis/idadmin/internal/identity/domain"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Models lists every table the console owns, parents before children.
func Models() []any {
	return []any{
		&identitydomain.User{},
		&identitydomain.Role{},
		&identitydomain.UserRole{},
		&identitydomain.UserClaim{},
		&identitydomain.UserLogin{},
		&clientdomain.Client{},
		&clientdomain.ClientGrantType{},
		&clientdomain.ClientRedirectURI{},
		&clientdomain.ClientPostLogoutRedirectURI{},
		&clientdomain.ClientScope{},
		&clientdomain.ClientSecret{},
		&clientdomain.IdentityResource{},
		&clientdomain.APIScope{},
		&grantdomain.PersistedGrant{},
		&auditdomain.AuditLog{},
	}
}

// Migrate brings the schema up to date. Postgres runs the versioned SQL
// migrations; sqlite and mysql are auto-migrated from the models.
func Migrate(conn *gorm.DB, dbType string) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if dbType != "postgres" {
		return conn.AutoMigrate(Models()...)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

// RunMigrations applies the embedded SQL migrations to a postgres database.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	source, err := newSource()
	if err != nil {
		return err
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// migrator.Close would close the shared *sql.DB.

	return nil
}

func newSource() (source.Driver, error) {
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	src, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}
	return src, nil
}
