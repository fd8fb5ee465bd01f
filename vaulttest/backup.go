package vaulttest

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Backup is the snapshot format understood by the fake server's
// snapshot-force endpoint. Restoring a backup replaces both the keyring and
// the data set.
type Backup struct {
	UnsealKey string            `json:"unseal_key"`
	Data      map[string]string `json:"data"`
}

// NewBackup creates a backup of data under a freshly generated unseal key.
func NewBackup(data map[string]string) (Backup, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return Backup{}, fmt.Errorf("failed to generate unseal key: %w", err)
	}
	return Backup{UnsealKey: hex.EncodeToString(key), Data: data}, nil
}

// Marshal encodes the backup as snapshot bytes.
func (b Backup) Marshal() ([]byte, error) {
	return json.Marshal(b)
}

// WriteFile stores the backup under dir and returns its path.
func (b Backup) WriteFile(dir, name string) (string, error) {
	raw, err := b.Marshal()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
