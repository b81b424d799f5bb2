package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrSchemaInvalid indicates the schema document is malformed or inconsistent.
	// No run is started when this surfaces.
	ErrSchemaInvalid = errors.New("schema invalid")

	// ErrFieldType indicates a record value failed declared-type coercion,
	// or a record is missing a field the schema requires.
	ErrFieldType = errors.New("field type mismatch")

	// ErrIndexAlreadyExists indicates an exclusive create hit an existing index
	ErrIndexAlreadyExists = errors.New("index already exists")

	// ErrIndexNotFound indicates an incremental run targeted a missing index
	ErrIndexNotFound = errors.New("index not found")

	// ErrEmbedding indicates the embedding call failed; the enclosing batch is aborted
	ErrEmbedding = errors.New("embedding failed")

	// ErrTaskNotFound indicates the queued task does not exist
	ErrTaskNotFound = errors.New("task not found")
)

// BulkItemError describes a single document that failed to write during a bulk
// submit. Item errors are reported and counted but never abort the batch.
type BulkItemError struct {
	DocID  string
	Status int
	Reason string
}

func (e BulkItemError) Error() string {
	return fmt.Sprintf("bulk item %s failed (status %d): %s", e.DocID, e.Status, e.Reason)
}
