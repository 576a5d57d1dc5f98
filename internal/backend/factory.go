package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"fintrack/internal/amqp"
	"fintrack/internal/blob"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

func NewFactory(logger *applog.Logger) Factory {
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend opens the document store, the blob store and, when
// configured, the broker. A broker that cannot be reached is logged and
// skipped.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	result := &BackendResult{}
	var closers []func() error

	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		result.Store = repo
		closers = append(closers, repo.Close)
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		result.Store = memory.New()
		f.logger.Warn("Initialized memory backend, data will not survive a restart")
	}

	blobs, handler, closeBlobs, err := f.createBlobStore(ctx, config)
	if err != nil {
		closeAll(closers)
		return nil, err
	}
	result.Blobs = blobs
	result.BlobHandler = handler
	if closeBlobs != nil {
		closers = append(closers, closeBlobs)
	}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, notifying locally", applog.FieldError, err.Error())
		} else {
			result.Broker = client
			closers = append(closers, client.Close)
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	result.Cleanup = func() error { return closeAll(closers) }
	return result, nil
}

func (f *DefaultFactory) createBlobStore(ctx context.Context, config Config) (blob.Store, http.Handler, func() error, error) {
	switch config.Blob {
	case GCSBlobs:
		store, err := blob.NewGCSStore(ctx, config.GCSBucket, config.GCSCredentialsFile)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to initialize GCS blob store: %w", err)
		}
		f.logger.Info("Initialized GCS blob store", "bucket", config.GCSBucket)
		return store, nil, store.Close, nil
	default:
		store, err := blob.NewLocalStore(config.BlobDir, config.BlobPublicBaseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to initialize local blob store: %w", err)
		}
		f.logger.Info("Initialized local blob store", "dir", config.BlobDir)
		return store, store.Handler(), nil, nil
	}
}

// closeAll runs closers in reverse order.
func closeAll(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
