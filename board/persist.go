package board

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/binary"
	"encoding/gob"
	"fmt"

	"github.com/evalgo/flowengine/objectstore"
)

// snapshotVersion is bumped whenever the on-disk envelope's shape changes
// in a way Overflow can't absorb on its own.
const snapshotVersion = 1

// snapshot is the on-disk envelope a Board is archived as. Overflow is a
// spare map in the envelope: Save never fills it and Load returns only
// Board, and gob drops any field this reader's types do not declare, so
// data a newer writer adds is not carried through a Load.
type snapshot struct {
	Version  int
	Board    Board
	Overflow map[string]any
}

// Save serializes b as a length-prefixed, gzip-compressed gob envelope,
// grounded on oriys-nova's internal/pkg/vsockpb.Codec 4-byte big-endian
// length-prefix framing; gob replaces that codec's protobuf payload since
// it needs no schema file and already round-trips every exported field on
// Board.
func Save(ctx context.Context, store objectstore.Store, b *Board) error {
	var payload bytes.Buffer
	gz := gzip.NewWriter(&payload)
	if err := gob.NewEncoder(gz).Encode(snapshot{Version: snapshotVersion, Board: *b}); err != nil {
		return fmt.Errorf("board %s: encode snapshot: %w", b.ID, err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("board %s: flush gzip writer: %w", b.ID, err)
	}

	framed := make([]byte, 4, 4+payload.Len())
	binary.BigEndian.PutUint32(framed, uint32(payload.Len()))
	framed = append(framed, payload.Bytes()...)

	return store.Put(ctx, objectstore.BoardPath(b.AppID, b.ID), framed)
}

// Load reverses Save: strip the length prefix, decompress, and decode the
// envelope it carries.
func Load(ctx context.Context, store objectstore.Store, appID, boardID string) (*Board, error) {
	raw, err := store.Get(ctx, objectstore.BoardPath(appID, boardID))
	if err != nil {
		return nil, fmt.Errorf("board %s: get snapshot: %w", boardID, err)
	}
	if len(raw) < 4 {
		return nil, fmt.Errorf("board %s: snapshot shorter than its length prefix", boardID)
	}
	length := binary.BigEndian.Uint32(raw[:4])
	body := raw[4:]
	if uint32(len(body)) != length {
		return nil, fmt.Errorf("board %s: length prefix %d does not match payload of %d bytes", boardID, length, len(body))
	}

	gz, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("board %s: open gzip reader: %w", boardID, err)
	}
	defer gz.Close()

	var snap snapshot
	if err := gob.NewDecoder(gz).Decode(&snap); err != nil {
		return nil, fmt.Errorf("board %s: decode snapshot: %w", boardID, err)
	}

	b := snap.Board
	return &b, nil
}
