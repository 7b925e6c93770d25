package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/frahmantamala/key-management/internal"
	"github.com/frahmantamala/key-management/internal/ledger"
	"github.com/frahmantamala/key-management/internal/storage"
	"github.com/frahmantamala/key-management/internal/storage/filestore"
	pgstore "github.com/frahmantamala/key-management/internal/storage/postgres"
	"github.com/frahmantamala/key-management/internal/storage/s3store"
	"github.com/frahmantamala/key-management/internal/user"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// openedStore is a BlobStore plus whatever has to be closed on shutdown.
type openedStore struct {
	storage.BlobStore
	db *sqlx.DB
}

func (s *openedStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func openStore(ctx context.Context, cfg internal.StorageConfig) (*openedStore, error) {
	switch cfg.Driver {
	case internal.StorageDriverFile:
		fs, err := filestore.NewOS(cfg.Path)
		if err != nil {
			return nil, err
		}
		return &openedStore{BlobStore: fs}, nil

	case internal.StorageDriverSQLite:
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if _, err := filestore.NewOS(dir); err != nil {
				return nil, err
			}
		}
		gdb, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{Logger: gormlogger.Discard})
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		st := pgstore.NewStore(gdb)
		if err := st.AutoMigrate(); err != nil {
			return nil, fmt.Errorf("failed to migrate sqlite store: %w", err)
		}
		return &openedStore{BlobStore: st}, nil

	case internal.StorageDriverPostgres:
		db, err := initDB(cfg)
		if err != nil {
			return nil, err
		}
		gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{Logger: gormlogger.Discard})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		return &openedStore{BlobStore: pgstore.NewStore(gdb), db: db}, nil

	case internal.StorageDriverS3:
		st, err := s3store.NewFromConfig(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return &openedStore{BlobStore: st}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

// initDB initializes the postgres connection shared by gorm and the health check
func initDB(cfg internal.StorageConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	db, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	return db, nil
}

func ledgerOptions(cfg *internal.Config, lg *slog.Logger) []ledger.Option {
	opts := []ledger.Option{ledger.WithLogger(lg)}
	if cfg.Security.HashPasswords {
		opts = append(opts, ledger.WithPasswords(user.BcryptPasswords{Cost: cfg.Security.BCryptCost}))
	}
	return opts
}
