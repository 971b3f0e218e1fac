package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"filippo.io/age"

	"cashflow/internal/models"
)

// minPasswordLength is enforced when encryption is switched on
const minPasswordLength = 8

// EnableEncryption encrypts every stored value with the given password
func (s *Storage) EnableEncryption(password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.encrypted {
		return fmt.Errorf("%w: encryption is already enabled", ErrEncryptionState)
	}
	if len(password) < minPasswordLength {
		return &models.ValidationError{Field: "password", Reason: fmt.Sprintf("password must be at least %d characters", minPasswordLength)}
	}

	recipient, err := age.NewScryptRecipient(password)
	if err != nil {
		return fmt.Errorf("failed to create recipient: %w", err)
	}
	identity, err := age.NewScryptIdentity(password)
	if err != nil {
		return fmt.Errorf("failed to create identity: %w", err)
	}

	// Verification file goes first so a half-finished run can still be unlocked
	verifyPath := filepath.Join(s.baseDir, verifyFile)
	encrypted, err := encryptData([]byte(verifyMagic), recipient)
	if err != nil {
		return fmt.Errorf("failed to encrypt verification file: %w", err)
	}
	if err := os.WriteFile(verifyPath, encrypted, 0600); err != nil {
		return fmt.Errorf("failed to write verification file: %w", err)
	}

	files, err := s.valueFiles()
	if err != nil {
		os.Remove(verifyPath)
		return err
	}

	var done []string
	for _, path := range files {
		if err := rewriteFile(path, func(data []byte) ([]byte, error) {
			if isAgeEncrypted(data) {
				return nil, nil
			}
			return encryptData(data, recipient)
		}); err != nil {
			s.rollback(done, identity)
			os.Remove(verifyPath)
			return fmt.Errorf("failed to encrypt %s: %w", filepath.Base(path), err)
		}
		done = append(done, path)
	}

	if err := os.WriteFile(filepath.Join(s.baseDir, markerFile), []byte("encrypted"), 0600); err != nil {
		return fmt.Errorf("failed to create marker file: %w", err)
	}

	s.encrypted = true
	s.identity = identity
	s.recipient = recipient
	return nil
}

// DisableEncryption decrypts every stored value (requires current password)
func (s *Storage) DisableEncryption(password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.encrypted {
		return fmt.Errorf("%w: encryption is not enabled", ErrEncryptionState)
	}

	identity, err := s.verifyPassword(password)
	if err != nil {
		return err
	}

	files, err := s.valueFiles()
	if err != nil {
		return err
	}
	for _, path := range files {
		if err := rewriteFile(path, func(data []byte) ([]byte, error) {
			if !isAgeEncrypted(data) {
				return nil, nil
			}
			return decryptData(data, identity)
		}); err != nil {
			return fmt.Errorf("failed to decrypt %s: %w", filepath.Base(path), err)
		}
	}

	os.Remove(filepath.Join(s.baseDir, markerFile))
	os.Remove(filepath.Join(s.baseDir, verifyFile))

	s.encrypted = false
	s.identity = nil
	s.recipient = nil
	return nil
}

// valueFiles lists the files holding named values
func (s *Storage) valueFiles() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(s.baseDir, "*"+valueExt))
	if err != nil {
		return nil, fmt.Errorf("failed to scan files: %w", err)
	}
	return files, nil
}

// rewriteFile replaces a file's content with transform's output. A nil
// result leaves the file untouched.
func rewriteFile(path string, transform func([]byte) ([]byte, error)) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out, err := transform(data)
	if err != nil || out == nil {
		return err
	}
	return atomicWrite(path, out, 0600)
}

// rollback decrypts files that were encrypted before a failure (best effort)
func (s *Storage) rollback(files []string, identity *age.ScryptIdentity) {
	for _, path := range files {
		rewriteFile(path, func(data []byte) ([]byte, error) {
			if !isAgeEncrypted(data) {
				return nil, nil
			}
			return decryptData(data, identity)
		})
	}
}
