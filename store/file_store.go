package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/ewsdk/wallet-core/types"
)

var envelopeValidate = validator.New()

// FileStore is a LocalStore backed by a single JSON file, guarded by an
// in-process mutex the way the teacher's SafeFile guards its gob file
// (util.SafeFile), but upgraded to a temp-file-then-rename write so a
// process crash mid-save can never leave a half-written envelope behind -
// os.Rename is atomic on the same filesystem, which plain in-place writes
// are not.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a FileStore rooted at path (see
// global.Config.Store.Path). The parent directory is created if missing.
func NewFileStore(path string) (*FileStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("store: creating directory %s: %w", dir, err)
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Load(_ context.Context) (*types.Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("store: reading envelope: %w", err)
	}
	if len(data) == 0 {
		return nil, types.ErrNotFound
	}

	var envelope types.Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("store: decoding envelope: %w", err)
	}
	if err := envelopeValidate.Struct(&envelope); err != nil {
		return nil, fmt.Errorf("store: envelope on disk failed validation: %w", err)
	}
	return &envelope, nil
}

func (s *FileStore) Save(_ context.Context, envelope *types.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(envelope)
}

func (s *FileStore) RemoveAuthToken(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	envelope, err := s.loadLocked()
	if err != nil {
		return err
	}
	envelope.AuthToken = ""
	return s.writeLocked(envelope)
}

func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store: clearing envelope: %w", err)
	}
	return nil
}

func (s *FileStore) loadLocked() (*types.Envelope, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("store: reading envelope: %w", err)
	}
	if len(data) == 0 {
		return nil, types.ErrNotFound
	}
	var envelope types.Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("store: decoding envelope: %w", err)
	}
	if err := envelopeValidate.Struct(&envelope); err != nil {
		return nil, fmt.Errorf("store: envelope on disk failed validation: %w", err)
	}
	return &envelope, nil
}

// writeLocked serializes envelope to a sibling temp file, fsyncs it, then
// renames it over s.path. A reader never observes a partially written file:
// it either sees the old envelope or the new one.
func (s *FileStore) writeLocked(envelope *types.Envelope) error {
	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encoding envelope: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".envelope-*.tmp")
	if err != nil {
		return fmt.Errorf("store: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("store: writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("store: syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("store: renaming temp file into place: %w", err)
	}
	return nil
}
