package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// DefaultPassword is the shared gate password used when access.password is unset.
const DefaultPassword = "pnpe2024"

// Config represents the main configuration for gallery.
type Config struct {
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Database   DatabaseConfig   `toml:"database"`
	Images     ImagesConfig     `toml:"images"`
	Encryption EncryptionConfig `toml:"encryption"`
	Access     AccessConfig     `toml:"access"`
	Server     ServerConfig     `toml:"server"`
	Export     ExportConfig     `toml:"export"`
	Upload     UploadConfig     `toml:"upload"`
}

// DatabaseConfig represents configuration for the metadata database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// ImagesConfig selects where image bytes live.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type ImagesConfig struct {
	Type string `toml:"type"` // "sqlite" (default), "filesystem", "memory" or "s3"

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"` // S3-compatible stores
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`
}

// EncryptionConfig controls encryption of image bytes at rest.
type EncryptionConfig struct {
	Type         string `toml:"type"` // "" (off), "age" or "test"
	IdentityPath string `toml:"identity_path,omitempty"`
}

// AccessConfig holds the shared admin password and where the CLI keeps its session.
type AccessConfig struct {
	Password    string `toml:"password"`
	SessionPath string `toml:"session_path"`
}

// ServerConfig holds settings for `gallery serve`.
type ServerConfig struct {
	Addr          string `toml:"addr"`
	PublicBaseURL string `toml:"public_base_url,omitempty"`
	SessionSecret string `toml:"session_secret,omitempty"`
	RateLimit     int    `toml:"rate_limit"` // requests per minute per client IP; 0 disables
}

// ExportConfig holds settings for zip exports.
type ExportConfig struct {
	OutputDir string `toml:"output_dir,omitempty"` // defaults to the working directory
}

// UploadConfig holds settings for directory uploads.
type UploadConfig struct {
	Ignore []string `toml:"ignore"`
}

// NewConfig creates a new Config rooted at baseDir with default values.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Images: ImagesConfig{Type: "sqlite"},
		Encryption: EncryptionConfig{
			IdentityPath: filepath.Join(baseDir, "keys", "gallery.key"),
		},
		Access: AccessConfig{
			Password:    DefaultPassword,
			SessionPath: filepath.Join(baseDir, "session.toml"),
		},
		Server: ServerConfig{
			Addr:      ":8080",
			RateLimit: 120,
		},
		Upload: UploadConfig{
			Ignore: []string{".*", "Thumbs.db"},
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The file can carry the admin password and S3 credentials.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
