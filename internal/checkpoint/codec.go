package checkpoint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/tha-hammer/silmari/internal/types"
)

// CodecVersion is the on-disk checkpoint format version. Records written by
// a newer version are rejected rather than misread.
const CodecVersion = 1

// envelope wraps the serialized checkpoint with version and integrity
// information.
type envelope struct {
	Version  int             `json:"version"`
	Checksum string          `json:"checksum"`
	Data     json.RawMessage `json:"data"`
}

// encode serializes a checkpoint into its versioned, checksummed envelope.
func encode(cp *Checkpoint) ([]byte, error) {
	data, err := json.Marshal(cp)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	env := envelope{
		Version:  CodecVersion,
		Checksum: computeChecksum(data),
		Data:     data,
	}
	out, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checkpoint envelope: %w", err)
	}
	return append(out, '\n'), nil
}

// decode parses and validates an envelope, returning the checkpoint inside.
// Checksum or version violations surface as CHECKPOINT_CORRUPT and
// CHECKPOINT_VERSION_MISMATCH so discovery can skip bad records.
func decode(raw []byte) (*Checkpoint, error) {
	if len(raw) == 0 {
		return nil, types.NewError(types.CHECKPOINT_CORRUPT, "checkpoint record is empty")
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, types.WrapError(types.CHECKPOINT_CORRUPT, "failed to parse checkpoint envelope", err)
	}
	if env.Version > CodecVersion {
		return nil, types.NewError(types.CHECKPOINT_VERSION_MISMATCH,
			fmt.Sprintf("checkpoint version %d is newer than supported version %d", env.Version, CodecVersion))
	}
	if env.Version < 1 {
		return nil, types.NewError(types.CHECKPOINT_VERSION_MISMATCH,
			fmt.Sprintf("checkpoint version %d is not supported", env.Version))
	}
	if err := validateChecksum(env.Data, env.Checksum); err != nil {
		return nil, err
	}

	var cp Checkpoint
	if err := json.Unmarshal(env.Data, &cp); err != nil {
		return nil, types.WrapError(types.CHECKPOINT_CORRUPT, "failed to parse checkpoint data", err)
	}
	return &cp, nil
}

// computeChecksum returns the hex SHA-256 of the serialized checkpoint data.
func computeChecksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// validateChecksum recomputes the checksum of data and compares against the
// stored value.
func validateChecksum(data []byte, expected string) error {
	if expected == "" {
		return types.NewError(types.CHECKPOINT_CORRUPT, "checkpoint record has no checksum")
	}
	if computed := computeChecksum(data); computed != expected {
		return types.NewError(types.CHECKPOINT_CORRUPT,
			fmt.Sprintf("checkpoint checksum mismatch: expected %s, got %s", expected, computed))
	}
	return nil
}
