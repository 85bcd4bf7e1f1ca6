package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/lifeboard-backend/internal/config"
	"github.com/yungbote/lifeboard-backend/internal/platform/logger"
	"github.com/yungbote/lifeboard-backend/internal/snapshot"
)

// Store constructors are variables so tests can stub out network backends.
var (
	openSQLite    = snapshot.OpenSQLite
	openPostgres  = snapshot.OpenPostgres
	newRedisStore = snapshot.NewRedisStore
	newGCSStore   = func(ctx context.Context, bucket, object string) (snapshot.Store, error) {
		return snapshot.NewGCSStore(ctx, bucket, object)
	}
)

type StoreBootstrapErrorCode string

const (
	StoreBootstrapErrorUnknownDriver StoreBootstrapErrorCode = "unknown_driver"
	StoreBootstrapErrorConnectFailed StoreBootstrapErrorCode = "connect_failed"
	StoreBootstrapErrorMigrateFailed StoreBootstrapErrorCode = "migrate_failed"
)

type StoreBootstrapError struct {
	Code   StoreBootstrapErrorCode
	Driver string
	Cause  error
}

func (e *StoreBootstrapError) Error() string {
	if e == nil {
		return "snapshot store bootstrap failed"
	}
	return fmt.Sprintf("snapshot store bootstrap failed (code=%s driver=%q): %v", e.Code, e.Driver, e.Cause)
}

func (e *StoreBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveSnapshotStore opens the store named by cfg.Driver.
func resolveSnapshotStore(ctx context.Context, log *logger.Logger, cfg config.SnapshotConfig) (snapshot.Store, error) {
	store, err := OpenSnapshotStore(ctx, cfg)
	if err != nil {
		log.Error("Snapshot store selection failed", "driver", cfg.Driver, "error", err)
		return nil, err
	}
	log.Info("Snapshot store selected", "driver", store.Name(), "mode", cfg.Mode, "path", cfg.Path)
	return store, nil
}

// OpenSnapshotStore opens the store for cfg without logging.
func OpenSnapshotStore(ctx context.Context, cfg config.SnapshotConfig) (snapshot.Store, error) {
	fail := func(code StoreBootstrapErrorCode, err error) error {
		return &StoreBootstrapError{Code: code, Driver: cfg.Driver, Cause: err}
	}

	switch cfg.Driver {
	case config.DriverNone:
		return snapshot.Discard{}, nil
	case config.DriverFile:
		s, err := snapshot.NewFileStore(cfg.Path)
		if err != nil {
			return nil, fail(StoreBootstrapErrorConnectFailed, err)
		}
		return s, nil
	case config.DriverSQLite, config.DriverPostgres:
		open := openSQLite
		if cfg.Driver == config.DriverPostgres {
			open = openPostgres
		}
		db, err := open(cfg.DSN)
		if err != nil {
			return nil, fail(StoreBootstrapErrorConnectFailed, err)
		}
		s, err := snapshot.NewGormStore(db, cfg.Driver)
		if err != nil {
			if sqlDB, dbErr := db.DB(); dbErr == nil {
				_ = sqlDB.Close()
			}
			return nil, fail(StoreBootstrapErrorMigrateFailed, err)
		}
		return s, nil
	case config.DriverRedis:
		s, err := newRedisStore(ctx, snapshot.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.RedisKey,
		})
		if err != nil {
			return nil, fail(StoreBootstrapErrorConnectFailed, err)
		}
		return s, nil
	case config.DriverGCS:
		s, err := newGCSStore(ctx, cfg.GCSBucket, cfg.GCSObject)
		if err != nil {
			return nil, fail(StoreBootstrapErrorConnectFailed, err)
		}
		return s, nil
	default:
		return nil, fail(StoreBootstrapErrorUnknownDriver, errors.New("unsupported snapshot driver"))
	}
}
