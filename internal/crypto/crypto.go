// Package crypto derives the SQLCipher key for the notebook database from
// the operator's master key using HKDF-SHA256.
package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the size of a derived database key in bytes (256 bits)
	KeySize = 32

	// MinMasterKeySize is the shortest master key accepted, in bytes.
	MinMasterKeySize = 32
)

// DeriveDatabaseKey derives the key for one database file from a master key.
// The info parameter combines database name and version for domain separation:
// info = "db:" + name + ":v" + version
//
// Parameters:
//   - masterKey: The root secret (high-entropy, at least MinMasterKeySize bytes)
//   - name: A stable name for the database, e.g. "notes"
//   - version: The key version (bumped on rotation)
func DeriveDatabaseKey(masterKey []byte, name string, version int) []byte {
	info := fmt.Sprintf("db:%s:v%d", name, version)

	// Salt is nil: the master key is already uniformly random.
	r := hkdf.New(sha256.New, masterKey, nil, []byte(info))

	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		// HKDF-SHA256 can produce up to 255*32 bytes; 32 never fails.
		panic(fmt.Sprintf("HKDF failed: %v", err))
	}
	return key
}

// ParseMasterKey decodes a hex master key as found in MASTER_KEY.
func ParseMasterKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("master key must be hex: %w", err)
	}
	if len(key) < MinMasterKeySize {
		return nil, fmt.Errorf("master key must be at least %d bytes, got %d", MinMasterKeySize, len(key))
	}
	return key, nil
}
