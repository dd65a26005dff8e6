package cli

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/doorlock/internal/config"
	"github.com/BrandonDHaskell/doorlock/internal/db"
	"github.com/BrandonDHaskell/doorlock/internal/doorlock/service"
	"github.com/BrandonDHaskell/doorlock/internal/doorlock/store/logfile"
	sqlitestore "github.com/BrandonDHaskell/doorlock/internal/doorlock/store/sqlite"
)

// app is the storage and service graph shared by every command.  It is
// built once per process and torn down by Close.
type app struct {
	db      *sql.DB
	writer  *db.Worker
	mirror  *service.LogMirror
	service *service.LockService
}

// openApp opens the database, starts the writer and the log mirror, and
// bootstraps the lock state.  A bootstrap failure is returned as-is; the
// caller treats it as fatal.
func openApp(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*app, error) {
	conn, err := db.Open(ctx, db.Config{
		Path:        cfg.DBPath,
		BusyTimeout: cfg.StorageTimeout(),
	})
	if err != nil {
		return nil, err
	}

	writer := db.NewWorker(conn)
	mirror := service.NewLogMirror(logfile.New(cfg.LogPath), service.MirrorConfig{
		QueueSize:     cfg.MirrorQueue,
		AppendTimeout: cfg.StorageTimeout(),
	}, logger)

	a := &app{
		db:     conn,
		writer: writer,
		mirror: mirror,
		service: service.NewLockService(sqlitestore.NewLockStore(conn, writer), mirror, service.Options{
			StorageTimeout: cfg.StorageTimeout(),
			Logger:         logger,
		}),
	}

	if err := a.service.Init(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// Close drains the mirror before the database goes away so queued lines
// are not lost.
func (a *app) Close() error {
	a.mirror.Close()
	a.writer.Close()
	return a.db.Close()
}
