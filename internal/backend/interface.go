package backend

import (
	"context"
	"net/http"

	"fintrack/internal/amqp"
	"fintrack/internal/blob"
	"fintrack/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds the wired outbound adapters.
type BackendResult struct {
	Store storage.Store
	Blobs blob.Store
	// BlobHandler serves local blobs; nil for remote backends.
	BlobHandler http.Handler
	// Broker is nil when AMQP is disabled or unreachable.
	Broker  *amqp.Client
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// AMQP (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Blob storage
	Blob               BlobType
	BlobDir            string
	BlobPublicBaseURL  string
	GCSBucket          string
	GCSCredentialsFile string
}

// BackendType represents the type of document store
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// BlobType selects where uploaded files go.
type BlobType string

const (
	LocalBlobs BlobType = "local"
	GCSBlobs   BlobType = "gcs"
)

func (bt BlobType) IsValid() bool {
	return bt == LocalBlobs || bt == GCSBlobs
}
