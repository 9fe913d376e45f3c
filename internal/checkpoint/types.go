package checkpoint

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/errdefs"
)

// ErrCheckpointNotFound is returned by operations that require an
// existing checkpoint (ExtendTTL, Archive).
var ErrCheckpointNotFound = fmt.Errorf("checkpoint not found: %w", errdefs.ErrNotFound)

// ErrInvalidID is returned for an empty checkpoint id.
var ErrInvalidID = fmt.Errorf("checkpoint id is required: %w", errdefs.ErrValidation)

// Metadata is stored alongside each snapshot.
type Metadata struct {
	// Timestamp is when the snapshot was taken.
	Timestamp time.Time `json:"timestamp"`

	// Version is the writer's revision of the snapshot.
	Version int64 `json:"version"`
}

// Checkpoint is a stored snapshot.
type Checkpoint struct {
	ID        string          `json:"id"`
	State     json.RawMessage `json:"state"`
	Metadata  Metadata        `json:"metadata"`
	CreatedAt time.Time       `json:"created_at"`

	// TTL is the remaining lifetime at load time. Not persisted.
	TTL time.Duration `json:"-"`
}
