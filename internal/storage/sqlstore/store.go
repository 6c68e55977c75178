// Package sqlstore implements storage.Backend on a SQL database. The same
// code serves the embedded SQLite file and a PostgreSQL server; only the
// migrations and the unique-violation check differ per dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	inventoryentity "github.com/ovaphlow/pitchfork/service-inventory-go/internal/inventory/entity"
	inventoryrepo "github.com/ovaphlow/pitchfork/service-inventory-go/internal/inventory/repo"
	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/storage"
	userentity "github.com/ovaphlow/pitchfork/service-inventory-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-inventory-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-inventory-go/pkg/database"
)

//go:embed migrations
var migrations embed.FS

// Dialect selects the SQL flavour of the underlying database.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// DefaultTimeout bounds each storage call unless SetTimeout says otherwise.
const DefaultTimeout = 10 * time.Second

func init() {
	// modernc registers as "sqlite", which sqlx does not know by default.
	sqlx.BindDriver(database.DriverSQLite, sqlx.QUESTION)
}

// Store is a storage.Backend over users and inventory tables.
type Store struct {
	db        *sqlx.DB
	dialect   Dialect
	users     *userrepo.UserRepo
	inventory *inventoryrepo.InventoryRepo
	timeout   time.Duration
	logger    *zap.SugaredLogger
}

var _ storage.Backend = (*Store)(nil)

// New wraps an open connection. Call Migrate before first use.
func New(db *sql.DB, dialect Dialect, logger *zap.SugaredLogger) *Store {
	driver := database.DriverPostgres
	if dialect == SQLite {
		driver = database.DriverSQLite
	}
	x := sqlx.NewDb(db, driver)
	return &Store{
		db:        x,
		dialect:   dialect,
		users:     userrepo.NewUserRepo(x),
		inventory: inventoryrepo.NewInventoryRepo(x),
		timeout:   DefaultTimeout,
		logger:    logger,
	}
}

// OpenEmbedded opens (creating if needed) the SQLite file at path and
// applies pending migrations.
func OpenEmbedded(ctx context.Context, path string, logger *zap.SugaredLogger) (*Store, error) {
	db, err := database.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	s := New(db, SQLite, logger)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies the embedded goose migrations for the store's dialect.
func (s *Store) Migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrations, "migrations/"+string(s.dialect))
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	gooseDialect := goose.DialectPostgres
	if s.dialect == SQLite {
		gooseDialect = goose.DialectSQLite3
	}
	p, err := goose.NewProvider(gooseDialect, s.db.DB, fsys)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	results, err := p.Up(ctx)
	if err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	s.logger.Debugw("migrations applied", "dialect", s.dialect, "count", len(results))
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// SetTimeout changes the bound on each call; d <= 0 keeps the current one.
func (s *Store) SetTimeout(d time.Duration) {
	if d > 0 {
		s.timeout = d
	}
}

// bound derives the per-call context. A stalled server then fails the call
// with storage.ErrTimeout instead of hanging the caller.
func (s *Store) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// wrap is storage.Wrap that also classifies driver errors raised because
// the bounded context expired.
func wrap(ctx context.Context, op string, err error) error {
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", storage.ErrTimeout, err)
	}
	return storage.Wrap(op, err)
}

func (s *Store) CreateUser(ctx context.Context, username, passwordHash, role string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	err := s.users.Create(ctx, &userentity.User{Username: username, PasswordHash: passwordHash, Role: role})
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicateUsername
		}
		return wrap(ctx, "create user", err)
	}
	return nil
}

func (s *Store) FindUser(ctx context.Context, username, passwordHash string) (*userentity.User, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	u, err := s.users.GetByCredentials(ctx, username, passwordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap(ctx, "find user", err)
	}
	return u, nil
}

func (s *Store) AppendInventoryRecord(ctx context.Context, productName string, quantity int64, unitPrice decimal.Decimal, ts time.Time) (int64, error) {
	rec := &inventoryentity.Record{
		ProductName: productName,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		LastUpdated: ts.UTC(),
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()
	id, err := s.inventory.Append(ctx, rec)
	if err != nil {
		return 0, wrap(ctx, "append inventory record", err)
	}
	return id, nil
}

func (s *Store) ListInventoryRecords(ctx context.Context) ([]inventoryentity.Record, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	recs, err := s.inventory.List(ctx)
	if err != nil {
		return nil, wrap(ctx, "list inventory records", err)
	}
	return recs, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
		return liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE")
	}
	return false
}
