package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"deployer/internal/models"
)

// DefaultLedgerFile is where the sandbox state lives when no path is configured
const DefaultLedgerFile = ".soroban/ledger.json"

// Store owns persistence of the sandbox ledger state. The backend loads the
// state before each phase and saves it afterwards.
type Store interface {
	Load(ctx context.Context) (*models.LedgerState, error)
	Save(ctx context.Context, state *models.LedgerState) error
}

// FileStore keeps the ledger state in a JSON file
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore writing to path
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultLedgerFile
	}
	return &FileStore{path: path}
}

// Path returns the ledger file location
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the ledger file. A missing file is an empty ledger.
func (s *FileStore) Load(ctx context.Context) (*models.LedgerState, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return models.NewLedgerState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger file %s: %w", s.path, err)
	}

	state := models.NewLedgerState()
	if len(raw) == 0 {
		return state, nil
	}
	if err := json.Unmarshal(raw, state); err != nil {
		return nil, fmt.Errorf("failed to decode ledger file %s: %w", s.path, err)
	}
	state.Normalize()

	return state, nil
}

// Save writes the state to a temporary file and renames it over the ledger
// file, so an interrupted save leaves the previous state intact.
func (s *FileStore) Save(ctx context.Context, state *models.LedgerState) error {
	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode ledger state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create ledger directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".ledger-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temporary ledger file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write ledger file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close ledger file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace ledger file %s: %w", s.path, err)
	}

	return nil
}

// MemoryStore keeps the state in memory; Load hands out deep copies so a
// failed phase cannot leak partial mutations.
type MemoryStore struct {
	mu    sync.Mutex
	state *models.LedgerState

	Loads int
	Saves int
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: models.NewLedgerState()}
}

func (s *MemoryStore) Load(ctx context.Context) (*models.LedgerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Loads++
	return cloneState(s.state), nil
}

func (s *MemoryStore) Save(ctx context.Context, state *models.LedgerState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Saves++
	s.state = cloneState(state)
	return nil
}

func cloneState(state *models.LedgerState) *models.LedgerState {
	out := models.NewLedgerState()
	for h, code := range state.Modules {
		out.Modules[h] = append([]byte(nil), code...)
	}
	for id, inst := range state.Instances {
		out.Instances[id] = inst
	}
	return out
}
