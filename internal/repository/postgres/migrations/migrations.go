package migrations

import (
	"bytes"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed files/*.sql
var migrationFiles embed.FS

// prefixToken is replaced in every migration file with the environment's
// table prefix (dev_, test_, prod_), matching the prefixed names the
// repositories interpolate at query time.
const prefixToken = "__prefix__"

// MigrateUp opens the database and applies all pending migrations for the
// given table prefix. Already-migrated databases are a no-op.
func MigrateUp(databaseURL, tablePrefix string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	m, err := newMigrate(db, tablePrefix)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func newMigrate(db *sql.DB, tablePrefix string) (*migrate.Migrate, error) {
	fsDriver, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return nil, fmt.Errorf("create source driver: %w", err)
	}

	sourceDriver := &prefixSource{Driver: fsDriver, prefix: tablePrefix}

	dbDriver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{
		MigrationsTable: tablePrefix + "schema_migrations",
	})
	if err != nil {
		fsDriver.Close()
		return nil, fmt.Errorf("create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "pgx", dbDriver)
	if err != nil {
		fsDriver.Close()
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return m, nil
}

// prefixSource rewrites the table-prefix token in each migration as it is
// read, so one set of .sql files serves every environment.
type prefixSource struct {
	source.Driver
	prefix string
}

func (s *prefixSource) ReadUp(version uint) (io.ReadCloser, string, error) {
	r, identifier, err := s.Driver.ReadUp(version)
	if err != nil {
		return nil, identifier, err
	}
	return s.substitute(r), identifier, nil
}

func (s *prefixSource) ReadDown(version uint) (io.ReadCloser, string, error) {
	r, identifier, err := s.Driver.ReadDown(version)
	if err != nil {
		return nil, identifier, err
	}
	return s.substitute(r), identifier, nil
}

func (s *prefixSource) substitute(r io.ReadCloser) io.ReadCloser {
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return io.NopCloser(&errReader{err: err})
	}
	data = bytes.ReplaceAll(data, []byte(prefixToken), []byte(s.prefix))
	return io.NopCloser(bytes.NewReader(data))
}

type errReader struct{ err error }

func (e *errReader) Read([]byte) (int, error) { return 0, e.err }
