// Package checkpoint persists journal state for crash recovery.
//
// A checkpoint is a single versioned msgpack document holding the full
// journal (search metadata plus all nodes in creation order). Decoding
// rebuilds the journal by replaying appends, so a resumed run reconstructs
// the exact same derived views. Incompatible schema versions are rejected,
// never silently misread.
package checkpoint

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/grove/journal"
	"github.com/pithecene-io/grove/types"
)

// SchemaVersion is the checkpoint document schema version.
// Bump on any incompatible change to the document or node layout.
const SchemaVersion = 1

// SchemaError is returned when a checkpoint was written with an
// incompatible schema version.
type SchemaError struct {
	Got  int
	Want int
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("checkpoint: schema version %d not supported (want %d)", e.Got, e.Want)
}

// document is the persisted checkpoint layout.
type document struct {
	SchemaVersion int              `msgpack:"schema_version"`
	GroveVersion  string           `msgpack:"grove_version"`
	Meta          types.SearchMeta `msgpack:"meta"`
	Nodes         []types.Node     `msgpack:"nodes"`
	SavedAt       string           `msgpack:"saved_at"`
}

// Encode serializes a journal snapshot into a checkpoint document.
func Encode(meta types.SearchMeta, snap *journal.Snapshot) ([]byte, error) {
	doc := document{
		SchemaVersion: SchemaVersion,
		GroveVersion:  types.Version,
		Meta:          meta,
		Nodes:         snap.Nodes(),
		SavedAt:       time.Now().UTC().Format(time.RFC3339Nano),
	}
	data, err := msgpack.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: encode failed: %w", err)
	}
	return data, nil
}

// Decode reconstructs a journal from a checkpoint document.
//
// Appends are replayed in creation order, then the rebuilt journal is
// verified against the persisted depth and creation_order values, so a
// corrupt or tampered document is detected rather than trusted.
func Decode(data []byte) (*journal.Journal, error) {
	var doc document
	if err := msgpack.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("checkpoint: decode failed: %w", err)
	}
	if doc.SchemaVersion != SchemaVersion {
		return nil, &SchemaError{Got: doc.SchemaVersion, Want: SchemaVersion}
	}
	if err := doc.Meta.Validate(); err != nil {
		return nil, fmt.Errorf("checkpoint: invalid metadata: %w", err)
	}

	j := journal.New(doc.Meta)
	for _, n := range doc.Nodes {
		wantDepth, wantOrder := n.Depth, n.CreationOrder
		stored, err := j.Append(n)
		if err != nil {
			return nil, fmt.Errorf("checkpoint: replay of node %s failed: %w", n.ID, err)
		}
		if stored.Depth != wantDepth || stored.CreationOrder != wantOrder {
			return nil, fmt.Errorf("checkpoint: node %s replays to depth=%d order=%d, document says depth=%d order=%d",
				n.ID, stored.Depth, stored.CreationOrder, wantDepth, wantOrder)
		}
	}
	if err := j.Verify(); err != nil {
		return nil, fmt.Errorf("checkpoint: verification failed: %w", err)
	}
	return j, nil
}
