package providers

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"

	"github.com/retroarena/eventengine/internal/config"
	"github.com/retroarena/eventengine/internal/logger"
	"github.com/retroarena/eventengine/internal/media/blobs"
)

// BlobStorage groups the configured byte storage backend with what the HTTP
// layer needs to render references.
type BlobStorage struct {
	blobs.Storage

	// FilesRoot is served under /files/ for the local backend, empty otherwise.
	FilesRoot string

	// MediaURL renders a reference, nil for the local backend.
	MediaURL func(ref string) string
}

// ProvideBlobStorage provides the media byte storage.
func ProvideBlobStorage(i do.Injector) (*BlobStorage, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	switch cfg.Media.Backend {
	case config.MediaBackendS3:
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()

		s3, err := blobs.NewS3Storage(ctx, blobs.S3Config{
			Endpoint:      cfg.Media.S3Endpoint,
			Region:        cfg.Media.S3Region,
			Bucket:        cfg.Media.S3Bucket,
			AccessKey:     cfg.Media.S3AccessKey,
			SecretKey:     cfg.Media.S3SecretKey,
			PublicBaseURL: cfg.Media.PublicBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 storage: %w", err)
		}

		log.Info("Blob storage initialized", "backend", "s3", "bucket", cfg.Media.S3Bucket)
		return &BlobStorage{Storage: s3, MediaURL: s3.PublicURL}, nil

	default:
		files, err := blobs.NewFileStorage(cfg.BlobPath())
		if err != nil {
			return nil, fmt.Errorf("file storage: %w", err)
		}

		log.Info("Blob storage initialized", "backend", "local", "path", files.Root())
		return &BlobStorage{Storage: files, FilesRoot: files.Root()}, nil
	}
}
