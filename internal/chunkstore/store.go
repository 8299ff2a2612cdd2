// Package chunkstore persists chunk content under a flat content-addressed
// directory. A chunk lives at {sha}.gz (plain gzip) or {sha}.gz.enc
// (AES-256-GCM over the gzipped bytes); the two are mutually exclusive per
// SHA. Writers use temp-file-plus-rename so readers never observe a partial
// file.
package chunkstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pampax/pampax/internal/pathutil"
)

// ErrKeyRequired reports an encrypted chunk read without a configured key.
var ErrKeyRequired = errors.New("chunk is encrypted and no encryption key is configured")

// ErrChunkNotFound reports a missing chunk file for a referenced SHA.
var ErrChunkNotFound = errors.New("chunk not found")

// Store reads and writes content-addressed chunk files.
type Store struct {
	// Dir is the flat chunk directory, usually .pampa/chunks.
	Dir string
	// MasterKey is the optional 32-byte encryption key.
	MasterKey []byte
}

// New creates a Store for dir with an optional master key.
func New(dir string, masterKey []byte) *Store {
	return &Store{Dir: dir, MasterKey: masterKey}
}

func (s *Store) plainPath(sha string) string {
	return filepath.Join(s.Dir, sha+".gz")
}

func (s *Store) encryptedPath(sha string) string {
	return filepath.Join(s.Dir, sha+".gz.enc")
}

// Write stores text under its SHA, encrypted or plain, removing any residual
// file of the other mode so the two variants never coexist.
func (s *Store) Write(sha, text string, encrypted bool) error {
	if sha == "" {
		return errors.New("sha is required")
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create chunk directory: %w", err)
	}

	compressed, err := Compress([]byte(text))
	if err != nil {
		return fmt.Errorf("compress chunk: %w", err)
	}

	if encrypted {
		if len(s.MasterKey) != 32 {
			return ErrKeyRequired
		}

		payload, err := Encrypt(compressed, s.MasterKey)
		if err != nil {
			return fmt.Errorf("encrypt chunk: %w", err)
		}

		if err := pathutil.WriteFileAtomic(s.encryptedPath(sha), payload, 0o644); err != nil {
			return fmt.Errorf("write encrypted chunk: %w", err)
		}

		if err := pathutil.RemoveIfExists(s.plainPath(sha)); err != nil {
			return fmt.Errorf("remove plaintext chunk: %w", err)
		}

		return nil
	}

	if err := pathutil.WriteFileAtomic(s.plainPath(sha), compressed, 0o644); err != nil {
		return fmt.Errorf("write chunk: %w", err)
	}

	if err := pathutil.RemoveIfExists(s.encryptedPath(sha)); err != nil {
		return fmt.Errorf("remove encrypted chunk: %w", err)
	}

	return nil
}

// Read loads a chunk by SHA, preferring the encrypted variant when present.
func (s *Store) Read(sha string) (string, error) {
	if sha == "" {
		return "", errors.New("sha is required")
	}

	payloadPath := s.plainPath(sha)
	needsDecrypt := false

	if _, err := os.Stat(s.encryptedPath(sha)); err == nil {
		payloadPath = s.encryptedPath(sha)
		needsDecrypt = true
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("stat encrypted chunk: %w", err)
	}

	raw, err := os.ReadFile(payloadPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("chunk %s: %w", sha, ErrChunkNotFound)
		}
		return "", fmt.Errorf("read chunk %s: %w", sha, err)
	}

	if needsDecrypt {
		if len(s.MasterKey) != 32 {
			return "", fmt.Errorf("chunk %s: %w", sha, ErrKeyRequired)
		}

		raw, err = Decrypt(raw, s.MasterKey)
		if err != nil {
			return "", fmt.Errorf("decrypt chunk %s: %w", sha, err)
		}
	}

	decompressed, err := Decompress(raw)
	if err != nil {
		return "", fmt.Errorf("decompress chunk %s: %w", sha, err)
	}

	return string(decompressed), nil
}

// Exists reports whether either variant exists for the SHA.
func (s *Store) Exists(sha string) bool {
	if _, err := os.Stat(s.encryptedPath(sha)); err == nil {
		return true
	}
	if _, err := os.Stat(s.plainPath(sha)); err == nil {
		return true
	}
	return false
}

// Remove deletes both the plaintext and encrypted variants for a SHA.
func (s *Store) Remove(sha string) error {
	if sha == "" {
		return errors.New("sha is required")
	}

	if err := pathutil.RemoveIfExists(s.plainPath(sha)); err != nil {
		return fmt.Errorf("remove plaintext chunk: %w", err)
	}

	if err := pathutil.RemoveIfExists(s.encryptedPath(sha)); err != nil {
		return fmt.Errorf("remove encrypted chunk: %w", err)
	}

	return nil
}

// ListSHAs returns every SHA present in the chunk directory, from either
// variant, deduplicated. Used for orphan reconciliation at end of run.
func (s *Store) ListSHAs() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read chunk directory: %w", err)
	}

	seen := make(map[string]struct{})
	var shas []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		var sha string
		switch {
		case len(name) > 7 && name[len(name)-7:] == ".gz.enc":
			sha = name[:len(name)-7]
		case len(name) > 3 && name[len(name)-3:] == ".gz":
			sha = name[:len(name)-3]
		default:
			continue
		}

		if len(sha) != 40 {
			continue
		}
		if _, ok := seen[sha]; ok {
			continue
		}
		seen[sha] = struct{}{}
		shas = append(shas, sha)
	}

	return shas, nil
}

// CountByMode returns how many chunks are stored encrypted and plain.
func (s *Store) CountByMode() (encrypted, plain int, err error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("read chunk directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		switch {
		case len(name) > 7 && name[len(name)-7:] == ".gz.enc":
			encrypted++
		case len(name) > 3 && name[len(name)-3:] == ".gz":
			plain++
		}
	}

	return encrypted, plain, nil
}
