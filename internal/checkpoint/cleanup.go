package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tha-hammer/silmari/internal/types"
)

// DeleteAllConfirmToken must be passed explicitly for a bulk delete of every
// checkpoint record. It exists so "delete all" can never happen by default-
// valued policy.
const DeleteAllConfirmToken = "delete-all-checkpoints"

// CleanupPolicy selects which records a Cleanup call removes.
type CleanupPolicy struct {
	// OlderThanDays deletes records older than this many days when > 0.
	OlderThanDays int

	// DeleteAll deletes every record; requires Confirm to equal
	// DeleteAllConfirmToken.
	DeleteAll bool

	// Confirm is the separate confirmation token for DeleteAll.
	Confirm string
}

// NeedsCleanup reports whether the store exceeds either retention threshold:
// more than maxCount records, or any record older than maxAge. Zero-valued
// thresholds are ignored.
func (s *Store) NeedsCleanup(maxCount int, maxAge time.Duration) (bool, error) {
	names, err := s.recordFiles()
	if err != nil {
		return false, err
	}
	if maxCount > 0 && len(names) > maxCount {
		return true, nil
	}
	if maxAge > 0 && len(names) > 0 {
		// Names sort newest first; the oldest record is last.
		oldest, ok := recordTime(names[len(names)-1])
		if ok && time.Since(oldest) > maxAge {
			return true, nil
		}
	}
	return false, nil
}

// Cleanup deletes records per the policy and returns how many were removed.
// Deletion is the only way a published checkpoint ever disappears.
func (s *Store) Cleanup(policy CleanupPolicy) (int, error) {
	if policy.DeleteAll {
		if policy.Confirm != DeleteAllConfirmToken {
			return 0, types.NewError(types.CHECKPOINT_CONFIRM_REQUIRED,
				fmt.Sprintf("deleting all checkpoints requires the confirmation token %q", DeleteAllConfirmToken))
		}
		return s.deleteWhere(func(time.Time) bool { return true })
	}

	if policy.OlderThanDays <= 0 {
		return 0, types.NewError(types.CHECKPOINT_CONFIRM_REQUIRED,
			"cleanup policy must set OlderThanDays or DeleteAll")
	}

	cutoff := time.Now().AddDate(0, 0, -policy.OlderThanDays)
	return s.deleteWhere(func(created time.Time) bool { return created.Before(cutoff) })
}

// deleteWhere removes every record whose creation time matches the predicate.
func (s *Store) deleteWhere(match func(time.Time) bool) (int, error) {
	names, err := s.recordFiles()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, name := range names {
		created, ok := recordTime(name)
		if !ok {
			continue
		}
		if !match(created) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			return removed, types.WrapError(types.CHECKPOINT_WRITE_FAILED,
				fmt.Sprintf("failed to delete checkpoint record %s", name), err)
		}
		removed++
	}
	return removed, nil
}

// recordTime parses the creation time from a record filename's nanosecond
// prefix.
func recordTime(name string) (time.Time, bool) {
	prefix, _, found := strings.Cut(name, "-")
	if !found {
		return time.Time{}, false
	}
	nanos, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(0, nanos), true
}
