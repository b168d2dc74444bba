package config

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log"
	"path/filepath"

	"github.com/spf13/afero"
)

// Initialize materializes a configuration directory: the default config.yaml
// and a fresh ed25519 host key. Existing files are kept.
func Initialize(dir string, logger *log.Logger) error {
	return InitializeFs(afero.NewOsFs(), dir, logger)
}

// InitializeFs is Initialize on the given filesystem.
func InitializeFs(fs afero.Fs, dir string, logger *log.Logger) error {
	if err := fs.MkdirAll(dir, 0700); err != nil {
		return err
	}

	configPath := filepath.Join(dir, ConfigurationName)
	if ok, _ := afero.Exists(fs, configPath); ok {
		logger.Printf("%s already exists, keeping it", configPath)
	} else {
		if err := afero.WriteFile(fs, configPath, defaultConfigData, 0600); err != nil {
			return err
		}
		logger.Printf("wrote %s", configPath)
	}

	keyPath := filepath.Join(dir, PrivateKeyName)
	if ok, _ := afero.Exists(fs, keyPath); ok {
		logger.Printf("%s already exists, keeping it", keyPath)
		return nil
	}
	keyPem, err := generateHostKey()
	if err != nil {
		return fmt.Errorf("generating host key: %w", err)
	}
	if err := afero.WriteFile(fs, keyPath, keyPem, 0600); err != nil {
		return err
	}
	logger.Printf("wrote %s", keyPath)
	return nil
}

func generateHostKey() ([]byte, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}
