package encryption

import (
	"fmt"

	"gallery-go/internal/config"
	"gallery-go/internal/gallery"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration type.
// It returns nil when encryption at rest is off.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (gallery.Encryptor, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "age":
		if cfg.IdentityPath == "" {
			return nil, fmt.Errorf("age encryption requires identity_path to be set")
		}
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
