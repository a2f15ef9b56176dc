package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		BaseDir:  "/home/user/.local/share/gallery",
		LogDir:   "/home/user/.local/share/gallery/log",
		Database: DatabaseConfig{Type: "sqlite", DataDir: "/home/user/.local/share/gallery/db"},
		Images: ImagesConfig{
			Type:       "s3",
			S3Bucket:   "photos",
			S3Prefix:   "gallery/",
			S3Region:   "us-east-1",
			S3Endpoint: "http://localhost:9000",
		},
		Encryption: EncryptionConfig{Type: "age", IdentityPath: "/keys/gallery.key"},
		Access:     AccessConfig{Password: "s3cret", SessionPath: "/tmp/session.toml"},
		Server:     ServerConfig{Addr: "127.0.0.1:9090", PublicBaseURL: "https://photos.example.com", RateLimit: 30},
		Export:     ExportConfig{OutputDir: "/exports"},
		Upload:     UploadConfig{Ignore: []string{"*.tmp", ".DS_Store"}},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if got.Database != original.Database {
		t.Errorf("Database = %+v, want %+v", got.Database, original.Database)
	}
	if got.Images != original.Images {
		t.Errorf("Images = %+v, want %+v", got.Images, original.Images)
	}
	if got.Encryption != original.Encryption {
		t.Errorf("Encryption = %+v, want %+v", got.Encryption, original.Encryption)
	}
	if got.Access != original.Access {
		t.Errorf("Access = %+v, want %+v", got.Access, original.Access)
	}
	if got.Server != original.Server {
		t.Errorf("Server = %+v, want %+v", got.Server, original.Server)
	}
	if got.Export.OutputDir != "/exports" {
		t.Errorf("Export.OutputDir = %q, want %q", got.Export.OutputDir, "/exports")
	}
	if len(got.Upload.Ignore) != 2 {
		t.Fatalf("len(Upload.Ignore) = %d, want 2", len(got.Upload.Ignore))
	}
}

func TestManager_Read_OmittedSections(t *testing.T) {
	m := &Manager{}

	got, err := m.Read(strings.NewReader("base_dir = \"/data\"\n[database]\ntype = \"memory\"\n"))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got.Database.Type != "memory" {
		t.Errorf("Database.Type = %q, want %q", got.Database.Type, "memory")
	}
	if got.Images.Type != "" {
		t.Errorf("Images.Type = %q, want empty", got.Images.Type)
	}
	if got.Access.Password != "" {
		t.Errorf("Access.Password = %q, want empty", got.Access.Password)
	}
}

func TestManager_Read_Invalid(t *testing.T) {
	m := &Manager{}

	if _, err := m.Read(strings.NewReader("[database\ntype=")); err == nil {
		t.Fatal("Read() expected error for malformed toml")
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/gallery")

	if cfg.BaseDir != "/data/gallery" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data/gallery")
	}
	if cfg.LogDir != "/data/gallery/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/gallery/log")
	}
	if cfg.Database.Type != "sqlite" || cfg.Database.DataDir != "/data/gallery/db" {
		t.Errorf("Database = %+v, want sqlite under /data/gallery/db", cfg.Database)
	}
	if cfg.Images.Type != "sqlite" {
		t.Errorf("Images.Type = %q, want %q", cfg.Images.Type, "sqlite")
	}
	if cfg.Encryption.Type != "" {
		t.Errorf("Encryption.Type = %q, want encryption off", cfg.Encryption.Type)
	}
	if cfg.Encryption.IdentityPath != "/data/gallery/keys/gallery.key" {
		t.Errorf("Encryption.IdentityPath = %q, want %q", cfg.Encryption.IdentityPath, "/data/gallery/keys/gallery.key")
	}
	if cfg.Access.Password != DefaultPassword {
		t.Errorf("Access.Password = %q, want %q", cfg.Access.Password, DefaultPassword)
	}
	if cfg.Access.SessionPath != "/data/gallery/session.toml" {
		t.Errorf("Access.SessionPath = %q, want %q", cfg.Access.SessionPath, "/data/gallery/session.toml")
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, ":8080")
	}
	if cfg.Server.RateLimit != 120 {
		t.Errorf("Server.RateLimit = %d, want 120", cfg.Server.RateLimit)
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "nested", "gallery.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("config file not created: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("config file mode = %o, want 600", perm)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "gallery.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "gallery.toml")
		cfg := NewConfig(dir)
		cfg.Database = DatabaseConfig{Type: "memory"}
		cfg.Access.Password = "read-test"

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.Access.Password != "read-test" {
			t.Errorf("Access.Password = %q, want %q", got.Access.Password, "read-test")
		}
		if got.Database.Type != "memory" {
			t.Errorf("Database.Type = %q, want %q", got.Database.Type, "memory")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/gallery.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
