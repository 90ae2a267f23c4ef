package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

const (
	stateDirName  = ".onchange"
	stateFileName = "state.json"
)

// FileStore keeps the snapshot as JSON at <root>/.onchange/state.json.
type FileStore struct{}

func NewFileStore() *FileStore {
	return &FileStore{}
}

// StateDir returns the hidden state directory for a repository root.
func StateDir(root string) string {
	return filepath.Join(root, stateDirName)
}

// StatePath returns the snapshot file location for a repository root.
func StatePath(root string) string {
	return filepath.Join(StateDir(root), stateFileName)
}

// stateFile is the persisted schema. Digests are keyed by repository-relative
// forward-slash path.
type stateFile struct {
	Files map[string]string `json:"files"`
}

// Load reads the snapshot. Any read or decode problem yields an empty
// snapshot with existed=false; a half-usable state file must never pass for
// a valid baseline.
func (s *FileStore) Load(root string) (Snapshot, bool) {
	data, err := os.ReadFile(StatePath(root))
	if err != nil {
		return Snapshot{}, false
	}

	var parsed stateFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		return Snapshot{}, false
	}
	if parsed.Files == nil {
		return Snapshot{}, false
	}

	return Snapshot(parsed.Files), true
}

// Save writes the snapshot atomically: the payload goes to a temp file in
// the state directory, then a rename swaps it into place so a concurrent
// reader never observes a torn file.
func (s *FileStore) Save(root string, snap Snapshot) error {
	dir := StateDir(root)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	payload, err := json.MarshalIndent(stateFile{Files: snap}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	return writeFileAtomic(StatePath(root), append(payload, '\n'))
}

func writeFileAtomic(path string, payload []byte) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	tmpFile, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(payload); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	// Windows can refuse the rename while antivirus or indexing holds the
	// destination open; retry briefly before giving up.
	var lastErr error
	for i := 0; i < 6; i++ {
		if err := os.Rename(tmpPath, path); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if runtime.GOOS != "windows" {
			break
		}
		time.Sleep(time.Duration(i+1) * 10 * time.Millisecond)
	}

	return fmt.Errorf("rename temp file: %w", lastErr)
}

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	snaps   map[string]Snapshot
	saveErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[string]Snapshot)}
}

// FailSaves makes every subsequent Save return err.
func (m *MemoryStore) FailSaves(err error) {
	m.saveErr = err
}

func (m *MemoryStore) Load(root string) (Snapshot, bool) {
	snap, ok := m.snaps[root]
	if !ok {
		return Snapshot{}, false
	}
	return snap.Clone(), true
}

func (m *MemoryStore) Save(root string, snap Snapshot) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.snaps[root] = snap.Clone()
	return nil
}
