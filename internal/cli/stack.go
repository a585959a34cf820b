package cli

import (
	"context"
	"errors"
	"fmt"

	"scrapbook/internal/backup"
	"scrapbook/internal/config"
	"scrapbook/internal/service"
	"scrapbook/internal/storage"
)

// stack is the storage and service layer every command shares.
type stack struct {
	db     *storage.DB
	albums *service.AlbumService
	pages  *service.PageService
}

func openStack(ctx context.Context, cfg *config.Config, emitter service.EventEmitter) (*stack, error) {
	db, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	albums, pages := storage.NewAlbumStore(db), storage.NewPageStore(db)
	return &stack{
		db:     db,
		albums: service.NewAlbumService(albums, pages, emitter),
		pages:  service.NewPageService(albums, pages, emitter),
	}, nil
}

func (s *stack) Close() error { return s.db.Close() }

// backupSinks builds the configured sinks. The returned closer disconnects
// from MongoDB when it is in use.
func backupSinks(ctx context.Context, cfg config.Backup) ([]backup.Sink, func(), error) {
	var sinks []backup.Sink
	closer := func() {}
	if cfg.Dir != "" {
		sinks = append(sinks, backup.DirSink{Dir: cfg.Dir, Keep: cfg.Keep})
	}
	if cfg.MongoURI != "" {
		m, err := backup.NewMongoSink(cfg.MongoURI, cfg.MongoDatabase, cfg.Keep)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, m)
		closer = func() {
			if err := m.Close(context.WithoutCancel(ctx)); err != nil {
				loggerFromContext(ctx).Warn("disconnect mongo", "err", err)
			}
		}
	}
	if len(sinks) == 0 {
		return nil, nil, errors.New("no backup target configured: set backup.dir or backup.mongo_uri")
	}
	return sinks, closer, nil
}
