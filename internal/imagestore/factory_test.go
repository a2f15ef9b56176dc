package imagestore

import (
	"context"
	"path/filepath"
	"testing"

	"gallery-go/internal/config"
	"gallery-go/internal/database"
)

func TestNewImageStoreFromConfig(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tests := []struct {
		name    string
		cfg     config.ImagesConfig
		db      *database.SQLiteDatabase
		wantErr bool
	}{
		{name: "default is sqlite", cfg: config.ImagesConfig{}, db: db},
		{name: "sqlite", cfg: config.ImagesConfig{Type: "sqlite"}, db: db},
		{name: "sqlite without database", cfg: config.ImagesConfig{Type: "sqlite"}, wantErr: true},
		{name: "memory", cfg: config.ImagesConfig{Type: "memory"}},
		{name: "filesystem", cfg: config.ImagesConfig{Type: "filesystem", FSRoot: filepath.Join(t.TempDir(), "imgs")}},
		{name: "filesystem without root", cfg: config.ImagesConfig{Type: "filesystem"}, wantErr: true},
		{name: "s3 without bucket", cfg: config.ImagesConfig{Type: "s3"}, wantErr: true},
		{
			name: "s3",
			cfg: config.ImagesConfig{
				Type:              "s3",
				S3Bucket:          "photos",
				S3Region:          "us-east-1",
				S3Endpoint:        "http://localhost:9000",
				S3AccessKeyID:     "key",
				S3SecretAccessKey: "secret",
			},
		},
		{name: "unknown type", cfg: config.ImagesConfig{Type: "ftp"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewImageStoreFromConfig(context.Background(), tt.cfg, tt.db, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewImageStoreFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && store == nil {
				t.Error("NewImageStoreFromConfig() returned nil store")
			}
		})
	}
}

func TestNewImageStoreFromConfig_Encrypted(t *testing.T) {
	store, err := NewImageStoreFromConfig(context.Background(), config.ImagesConfig{Type: "memory"}, nil, &xorEncryptor{configured: true})
	if err != nil {
		t.Fatalf("NewImageStoreFromConfig() error = %v", err)
	}
	if _, ok := store.(*EncryptedStore); !ok {
		t.Errorf("store type = %T, want *EncryptedStore", store)
	}
}
