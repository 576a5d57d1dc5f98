package backend

import (
	"errors"
	"fmt"

	"fintrack/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		Blob:               BlobType(appConfig.BlobBackend),
		BlobDir:            appConfig.BlobDir,
		BlobPublicBaseURL:  appConfig.BlobPublicBaseURL,
		GCSBucket:          appConfig.GCSBucket,
		GCSCredentialsFile: appConfig.GCSCredentialsFile,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	var errs []error

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			errs = append(errs, fmt.Errorf("SQLite database path is required for sqlite backend"))
		}
	case MemoryBackend:
	default:
		errs = append(errs, fmt.Errorf("invalid backend type: %s", c.Type))
	}

	switch c.Blob {
	case LocalBlobs:
		if c.BlobDir == "" {
			errs = append(errs, fmt.Errorf("blob directory is required for local blobs"))
		}
		if c.BlobPublicBaseURL == "" {
			errs = append(errs, fmt.Errorf("blob public base URL is required for local blobs"))
		}
	case GCSBlobs:
		if c.GCSBucket == "" {
			errs = append(errs, fmt.Errorf("GCS bucket is required for gcs blobs"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid blob backend: %s", c.Blob))
	}

	return errors.Join(errs...)
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
