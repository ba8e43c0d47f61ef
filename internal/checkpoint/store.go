package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tha-hammer/silmari/internal/types"
)

// recordSuffix is the filename suffix of published checkpoint records.
// In-flight temp files never carry it, so a crash mid-write can never leave
// a discoverable partial record.
const recordSuffix = ".json"

// Store persists checkpoints as one self-contained file per save under a
// single directory. Writes go to a temporary file first and are atomically
// published by rename; an existing record is never overwritten.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, types.NewError(types.CHECKPOINT_WRITE_FAILED, "checkpoint directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, types.WrapError(types.CHECKPOINT_WRITE_FAILED, "failed to create checkpoint directory", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory the store writes to.
func (s *Store) Dir() string { return s.dir }

// recordName builds the filename for a record. The zero-padded nanosecond
// prefix makes lexicographic order equal creation order; the fresh ID makes
// collisions impossible even within one nanosecond.
func recordName(createdAt time.Time, id types.ID) string {
	return fmt.Sprintf("%020d-%s%s", createdAt.UnixNano(), id, recordSuffix)
}

// Save publishes a new checkpoint record. It assigns a fresh identifier and
// timestamp, writes the encoded envelope to a temporary file, syncs it, and
// atomically renames it into place. The input checkpoint is not mutated; the
// published record is returned.
func (s *Store) Save(cp Checkpoint) (Checkpoint, error) {
	cp.ID = types.NewID()
	cp.CreatedAt = time.Now().UTC()

	data, err := encode(&cp)
	if err != nil {
		return Checkpoint{}, types.WrapError(types.CHECKPOINT_WRITE_FAILED, "failed to encode checkpoint", err)
	}

	final := filepath.Join(s.dir, recordName(cp.CreatedAt, cp.ID))
	if err := writeFileAtomic(final, data); err != nil {
		return Checkpoint{}, types.WrapError(types.CHECKPOINT_WRITE_FAILED, "failed to publish checkpoint", err)
	}
	return cp, nil
}

// writeFileAtomic writes data to a temp file in the target directory, syncs
// it, renames it over the final path, and syncs the directory.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return fsyncDir(dir)
}

func fsyncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

// recordFiles lists published record filenames sorted newest first.
func (s *Store) recordFiles() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, recordSuffix) {
			continue
		}
		names = append(names, name)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// load reads and decodes one record by filename.
func (s *Store) load(name string) (*Checkpoint, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, types.WrapError(types.CHECKPOINT_CORRUPT,
			fmt.Sprintf("failed to read checkpoint record %s", name), err)
	}
	return decode(raw)
}

// List returns every readable checkpoint, newest first. Corrupt records are
// skipped silently; use FindLatestResumable for resume semantics.
func (s *Store) List() ([]Checkpoint, error) {
	names, err := s.recordFiles()
	if err != nil {
		return nil, err
	}

	out := make([]Checkpoint, 0, len(names))
	for _, name := range names {
		cp, err := s.load(name)
		if err != nil {
			continue
		}
		out = append(out, *cp)
	}
	return out, nil
}

// FindLatestResumable returns the most recently published checkpoint that
// passes integrity validation, or nil when none exists. Records failing the
// checksum or version check are skipped, never resumed from.
func (s *Store) FindLatestResumable() (*Checkpoint, error) {
	names, err := s.recordFiles()
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		cp, err := s.load(name)
		if err != nil {
			continue
		}
		return cp, nil
	}
	return nil, nil
}
