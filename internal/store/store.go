package store

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Rendering selects how the blocking strategies query the store
type Rendering string

const (
	RenderingEntity Rendering = "entity"
	RenderingNative Rendering = "native"
)

// ParseRendering validates a configured rendering name
func ParseRendering(s string) (Rendering, error) {
	switch r := Rendering(s); r {
	case RenderingEntity, RenderingNative:
		return r, nil
	default:
		return "", fmt.Errorf("unknown query rendering %q", s)
	}
}

// Options tunes the shared connection pool
type Options struct {
	Driver          string
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	SlowQuery       time.Duration
}

// Store owns the process-wide connection pool. The native repository runs on
// sqlx and the entity repository on GORM, both over the same *sql.DB.
type Store struct {
	db  *sqlx.DB
	orm *gorm.DB
}

// NewStore connects to Postgres with the lib/pq ("postgres") or pgx ("pgx") driver
func NewStore(opts Options, logger *zap.Logger) (*Store, error) {
	db, err := sqlx.Connect(opts.Driver, opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	orm, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger:                 newGormLogger(logger, opts.SlowQuery),
		SkipDefaultTransaction: true,
		PrepareStmt:            false,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open orm session: %w", err)
	}

	return New(db, orm), nil
}

// New wraps an existing pool; orm must share db's connections
func New(db *sqlx.DB, orm *gorm.DB) *Store {
	return &Store{db: db, orm: orm}
}

// Close closes the database connection pool
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that a connection can be acquired and used
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// ORM returns the GORM handle bound to the shared pool
func (s *Store) ORM() *gorm.DB {
	return s.orm
}

// Native returns the repository running the native SQL rendering
func (s *Store) Native() *NativeRepository {
	return &NativeRepository{db: s.db}
}

// Entity returns the repository running the mapped-entity rendering
func (s *Store) Entity() *EntityRepository {
	return &EntityRepository{orm: s.orm}
}
