package keys

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Identity roles. A verify key claims content and a rate key scores it;
// keeping them separate means a leaked rating key cannot submit claims.
const (
	RoleVerify = "verify"
	RoleRate   = "rate"
)

// KeyStore manages attester seeds as flat files under one directory:
//
//	<dir>/<name>.key          root seed
//	<dir>/<name>.<role>.key   derived role seed
//
// Seed files are 0600 and carry the attester key on a comment line, so the
// public half can be read without this tool.
type KeyStore struct {
	Directory string
}

// KeyEntry describes one stored identity.
type KeyEntry struct {
	Name        string
	AttesterKey string
	Roles       []string
}

func GetDefaultDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".newsverify", "keys"), nil
}

func CreateKeyStore(directory string) (*KeyStore, error) {
	if directory == "" {
		var err error
		directory, err = GetDefaultDirectory()
		if err != nil {
			return nil, err
		}
	}
	return &KeyStore{Directory: directory}, nil
}

// CheckKeyName rejects names that would not survive the flat file layout.
// Dots are reserved as the name/role separator.
func CheckKeyName(name string) error {
	if name == "" {
		return errors.New("identity name cannot be empty")
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_':
		default:
			return fmt.Errorf("invalid character %q in identity name", r)
		}
	}
	return nil
}

// CheckRole accepts only the roles this protocol defines.
func CheckRole(role string) error {
	switch role {
	case RoleVerify, RoleRate:
		return nil
	}
	return fmt.Errorf("unknown role %q (want %s or %s)", role, RoleVerify, RoleRate)
}

func ParseSeedHex(seedHex string) ([]byte, error) {
	seedHex = strings.TrimSpace(seedHex)
	seedHex = strings.TrimPrefix(seedHex, "0x")
	data, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, err
	}
	if len(data) != ed25519.SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes, got %d", ed25519.SeedSize, len(data))
	}
	return data, nil
}

func (ks *KeyStore) seedPath(name, role string) string {
	if role == "" {
		return filepath.Join(ks.Directory, name+".key")
	}
	return filepath.Join(ks.Directory, name+"."+role+".key")
}

func (ks *KeyStore) writeSeed(path string, seed []byte, overwrite bool) error {
	if len(seed) != ed25519.SeedSize {
		return fmt.Errorf("expected seed length of %d bytes", ed25519.SeedSize)
	}
	if err := os.MkdirAll(ks.Directory, 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()
	content := "# attester: " + AttesterKeyFromSeed(seed) + "\n" + hex.EncodeToString(seed) + "\n"
	if _, err := file.WriteString(content); err != nil {
		return err
	}
	return file.Close()
}

// readSeed parses a seed file: comment and blank lines are skipped, the first
// remaining line is the hex seed. Bare hex files without the comment header
// load the same way.
func (ks *KeyStore) readSeed(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return ParseSeedHex(line)
	}
	return nil, fmt.Errorf("no seed found in %s", path)
}

// InitializeRootKey stores a root seed for an identity and returns its wire
// attester key. With overwrite false an existing key is never clobbered.
func (ks *KeyStore) InitializeRootKey(name string, seed []byte, overwrite bool) (attesterKey string, filePath string, err error) {
	if err := CheckKeyName(name); err != nil {
		return "", "", err
	}
	filePath = ks.seedPath(name, "")
	if err := ks.writeSeed(filePath, seed, overwrite); err != nil {
		return "", "", err
	}
	return AttesterKeyFromSeed(seed), filePath, nil
}

// DeriveKeyFromRole derives and stores the verify or rate subkey of an
// identity's root seed.
func (ks *KeyStore) DeriveKeyFromRole(name, role string, overwrite bool) (attesterKey string, filePath string, err error) {
	if err := CheckKeyName(name); err != nil {
		return "", "", err
	}
	if err := CheckRole(role); err != nil {
		return "", "", err
	}
	rootSeed, err := ks.readSeed(ks.seedPath(name, ""))
	if err != nil {
		return "", "", err
	}
	roleSeed, err := DeriveRoleSeed(rootSeed, role)
	if err != nil {
		return "", "", err
	}
	filePath = ks.seedPath(name, role)
	if err := ks.writeSeed(filePath, roleSeed, overwrite); err != nil {
		return "", "", err
	}
	return AttesterKeyFromSeed(roleSeed), filePath, nil
}

// ExportKey returns the wire attester key for an identity, or one of its role
// subkeys when role is non-empty. Seeds never leave the store.
func (ks *KeyStore) ExportKey(name string, role string) (string, error) {
	if err := CheckKeyName(name); err != nil {
		return "", err
	}
	if role != "" {
		if err := CheckRole(role); err != nil {
			return "", err
		}
	}
	seed, err := ks.readSeed(ks.seedPath(name, role))
	if err != nil {
		return "", err
	}
	return AttesterKeyFromSeed(seed), nil
}

// LoadSeed resolves a signing seed from, in priority order: a literal hex
// seed, an explicit key file, or a stored identity (optionally a role).
func (ks *KeyStore) LoadSeed(seedHex, signerName, signerRole, keyFile string) ([]byte, error) {
	if seedHex != "" {
		return ParseSeedHex(seedHex)
	}
	if keyFile != "" {
		return ks.readSeed(keyFile)
	}
	if signerName != "" {
		if err := CheckKeyName(signerName); err != nil {
			return nil, err
		}
		if signerRole != "" {
			if err := CheckRole(signerRole); err != nil {
				return nil, err
			}
		}
		return ks.readSeed(ks.seedPath(signerName, signerRole))
	}
	return nil, errors.New("no signer provided")
}

// ListKeys enumerates stored identities with their attester keys and derived
// roles. Unreadable seed files leave the attester key blank rather than
// failing the listing.
func (ks *KeyStore) ListKeys() ([]KeyEntry, error) {
	entries, err := os.ReadDir(ks.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	byName := map[string]*KeyEntry{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".key") {
			continue
		}
		parts := strings.Split(strings.TrimSuffix(entry.Name(), ".key"), ".")
		name := parts[0]
		e := byName[name]
		if e == nil {
			e = &KeyEntry{Name: name}
			byName[name] = e
		}
		switch len(parts) {
		case 1:
			if seed, err := ks.readSeed(ks.seedPath(name, "")); err == nil {
				e.AttesterKey = AttesterKeyFromSeed(seed)
			}
		case 2:
			e.Roles = append(e.Roles, parts[1])
		}
	}

	var names []string
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]KeyEntry, 0, len(names))
	for _, name := range names {
		e := byName[name]
		sort.Strings(e.Roles)
		result = append(result, *e)
	}
	return result, nil
}
