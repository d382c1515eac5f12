package storage

import (
	"context"
	"fmt"

	"github.com/noah-isme/studybase-api/pkg/config"
)

// NewObjectStore selects the configured driver. filesBaseURL is only used by the local driver.
func NewObjectStore(ctx context.Context, cfg config.StorageConfig, filesBaseURL string) (ObjectStore, error) {
	switch cfg.Driver {
	case "", config.StorageDriverLocal:
		files, err := NewLocalStorage(cfg.LocalDir)
		if err != nil {
			return nil, err
		}
		return NewLocalObjectStore(files, cfg.Bucket, filesBaseURL), nil
	case config.StorageDriverS3:
		client, err := NewS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return NewS3Store(client, cfg.Bucket, cfg.S3.Region, cfg.S3.PublicURL), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
