package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"filippo.io/age"

	"cashflow/internal/models"
)

const (
	// ageHeader is the prefix of Age-encrypted files
	ageHeader = "age-encryption.org"

	// markerFile indicates encryption is enabled
	markerFile = ".encrypted"

	// verifyFile is used to validate the password
	verifyFile = ".encryption-verify"

	// verifyMagic is the expected content in the verify file
	verifyMagic = `{"magic":"cashflow-encryption-verify","version":1}`

	// valueExt is appended to a value name to get its file name
	valueExt = ".json"
)

var (
	// ErrNotExist is returned by Load when no value has been saved under a name
	ErrNotExist = errors.New("value does not exist")

	// ErrIncorrectPassword is returned when a password does not open the data
	ErrIncorrectPassword = errors.New("incorrect password")

	// ErrEncryptionState is returned when encryption is switched on twice or
	// off while not enabled
	ErrEncryptionState = errors.New("encryption state mismatch")
)

var validName = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// Backend loads and saves named values
type Backend interface {
	Load(name string) ([]byte, error)
	Save(name string, data []byte) error
	Close() error
}

// Encryptable is implemented by backends that support password protection
type Encryptable interface {
	IsEncrypted() bool
	IsUnlocked() bool
	Unlock(password string) error
	Lock()
	EnableEncryption(password string) error
	DisableEncryption(password string) error
}

// Storage keeps one file per named value in a directory, transparently
// encrypting the files when encryption has been enabled.
type Storage struct {
	baseDir   string
	encrypted bool
	identity  *age.ScryptIdentity
	recipient *age.ScryptRecipient
	mu        sync.RWMutex
}

var (
	_ Backend     = (*Storage)(nil)
	_ Encryptable = (*Storage)(nil)
)

// New creates a new Storage instance for the given base directory
func New(baseDir string) (*Storage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	s := &Storage{
		baseDir: baseDir,
	}

	// Check if encryption is enabled
	if _, err := os.Stat(filepath.Join(baseDir, markerFile)); err == nil {
		s.encrypted = true
	}

	return s, nil
}

// BaseDir returns the base directory
func (s *Storage) BaseDir() string {
	return s.baseDir
}

// IsEncrypted returns true if the data directory is encrypted
func (s *Storage) IsEncrypted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.encrypted
}

// IsUnlocked returns true if the data can currently be read
func (s *Storage) IsUnlocked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.encrypted || s.identity != nil
}

// Unlock verifies the password and keeps the key in memory
func (s *Storage) Unlock(password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.encrypted {
		return nil
	}

	identity, err := s.verifyPassword(password)
	if err != nil {
		return err
	}

	recipient, err := age.NewScryptRecipient(password)
	if err != nil {
		return fmt.Errorf("failed to create recipient: %w", err)
	}

	s.identity = identity
	s.recipient = recipient
	return nil
}

// verifyPassword decrypts the verification file with password
func (s *Storage) verifyPassword(password string) (*age.ScryptIdentity, error) {
	identity, err := age.NewScryptIdentity(password)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}

	encrypted, err := os.ReadFile(filepath.Join(s.baseDir, verifyFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read verification file: %w", err)
	}

	decrypted, err := decryptData(encrypted, identity)
	if err != nil || string(decrypted) != verifyMagic {
		return nil, ErrIncorrectPassword
	}
	return identity, nil
}

// Lock clears the encryption key from memory
func (s *Storage) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identity = nil
	s.recipient = nil
}

// Load returns the value saved under name
func (s *Storage) Load(name string) ([]byte, error) {
	path, err := s.pathFor(name)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	if isAgeEncrypted(data) {
		if s.identity == nil {
			return nil, models.ErrLocked
		}
		return decryptData(data, s.identity)
	}
	return data, nil
}

// Save replaces the value stored under name
func (s *Storage) Save(name string, data []byte) error {
	path, err := s.pathFor(name)
	if err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.encrypted {
		if s.recipient == nil {
			return models.ErrLocked
		}
		encrypted, err := encryptData(data, s.recipient)
		if err != nil {
			return fmt.Errorf("failed to encrypt: %w", err)
		}
		data = encrypted
	}

	return atomicWrite(path, data, 0600)
}

// Close is a no-op; files are written synchronously
func (s *Storage) Close() error {
	return nil
}

// pathFor maps a value name onto its file, rejecting names that could escape
// the data directory
func (s *Storage) pathFor(name string) (string, error) {
	if !validName.MatchString(name) {
		return "", fmt.Errorf("invalid value name %q", name)
	}
	return filepath.Join(s.baseDir, name+valueExt), nil
}

// atomicWrite writes data to a file atomically using a temp file
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// isAgeEncrypted checks if data starts with the Age encryption header
func isAgeEncrypted(data []byte) bool {
	return len(data) > len(ageHeader) && string(data[:len(ageHeader)]) == ageHeader
}

// LoadJSON decodes the value saved under name into v. It reports false when
// nothing has been saved yet.
func LoadJSON(b Backend, name string, v any) (bool, error) {
	data, err := b.Load(name)
	if errors.Is(err, ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", name, err)
	}
	return true, nil
}

// SaveJSON encodes v and saves it under name
func SaveJSON(b Backend, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return b.Save(name, data)
}
