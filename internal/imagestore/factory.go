package imagestore

import (
	"context"
	"fmt"

	"gallery-go/internal/config"
	"gallery-go/internal/database"
	"gallery-go/internal/gallery"
)

// NewImageStoreFromConfig creates an ImageStore based on the images config type.
// db backs the "sqlite" type. A non-nil enc wraps the result in an EncryptedStore.
func NewImageStoreFromConfig(ctx context.Context, cfg config.ImagesConfig, db *database.SQLiteDatabase, enc gallery.Encryptor) (gallery.ImageStore, error) {
	store, err := newBaseStore(ctx, cfg, db)
	if err != nil {
		return nil, err
	}
	if enc != nil {
		return NewEncryptedStore(store, enc), nil
	}
	return store, nil
}

func newBaseStore(ctx context.Context, cfg config.ImagesConfig, db *database.SQLiteDatabase) (gallery.ImageStore, error) {
	switch cfg.Type {
	case "sqlite", "":
		if db == nil {
			return nil, fmt.Errorf("sqlite image store requires a database")
		}
		return db.Images(), nil
	case "memory":
		return NewMemoryStore(), nil
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem image store requires fs_root to be set")
		}
		return NewFileSystemStore(cfg.FSRoot)
	case "s3":
		return NewS3Store(ctx, S3Options{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	default:
		return nil, fmt.Errorf("unknown image store type: %s", cfg.Type)
	}
}
