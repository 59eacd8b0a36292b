package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"stakingRewards/internal/model"
)

// FileStateStore keeps replay progress in a local JSON file.
type FileStateStore struct {
	Path string
}

type stateRecord struct {
	LastLine  uint64 `json:"last_line"`
	UpdatedAt string `json:"updated_at"`
}

func (s *FileStateStore) Load(ctx context.Context) (uint64, bool, error) {
	if s == nil || s.Path == "" {
		return 0, false, nil
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("read state: %w", err)
	}

	var rec stateRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return 0, false, fmt.Errorf("parse state: %w", err)
	}
	return rec.LastLine, true, nil
}

func (s *FileStateStore) Save(ctx context.Context, line uint64) error {
	if s == nil || s.Path == "" {
		return nil
	}
	rec := stateRecord{
		LastLine:  line,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	return writeJSONAtomic(s.Path, rec, "state")
}

// FileSnapshotStore writes the ledger snapshot as indented JSON.
type FileSnapshotStore struct {
	Path string
}

func (s *FileSnapshotStore) SaveSnapshot(ctx context.Context, snapshot model.Snapshot) error {
	if s == nil || s.Path == "" {
		return nil
	}
	return writeJSONAtomic(s.Path, snapshot, "snapshot")
}

// LoadSnapshot reads a snapshot written by SaveSnapshot.
func (s *FileSnapshotStore) LoadSnapshot(ctx context.Context) (model.Snapshot, bool, error) {
	if s == nil || s.Path == "" {
		return model.Snapshot{}, false, nil
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.Snapshot{}, false, nil
		}
		return model.Snapshot{}, false, fmt.Errorf("read snapshot: %w", err)
	}
	var snapshot model.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return model.Snapshot{}, false, fmt.Errorf("parse snapshot: %w", err)
	}
	return snapshot, true, nil
}

// writeJSONAtomic writes v to path through a temporary file and rename.
func writeJSONAtomic(path string, v any, what string) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s dir: %w", what, err)
		}
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", what, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s tmp: %w", what, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", what, err)
	}
	return nil
}
