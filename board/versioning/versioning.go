// Package versioning bumps and archives board.Board snapshots, grounded on
// oriys-nova's internal/domain.WorkflowVersion/PublishVersion handling
// (internal/workflow/service.go): a workflow keeps one mutable identity
// plus a monotonically increasing, immutable Version int bumped on each
// publish. This package generalizes that single integer into an explicit
// (major, minor, patch) triple: archive the outgoing version to the
// object store, then bump the triple whenever the board's structural
// fingerprint moved.
package versioning

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/evalgo/flowengine/board"
	"github.com/evalgo/flowengine/objectstore"
)

// Type is the part of the (major, minor, patch) triple a change bumps.
type Type int

const (
	Patch Type = iota
	Minor
	Major
)

// Bump increments v at the position vtype names, zeroing everything below
// it, the conventional semver rollover rule.
func Bump(v [3]int, vtype Type) [3]int {
	switch vtype {
	case Major:
		return [3]int{v[0] + 1, 0, 0}
	case Minor:
		return [3]int{v[0], v[1] + 1, 0}
	default:
		return [3]int{v[0], v[1], v[2] + 1}
	}
}

// Fingerprint computes a stable, order-independent FNV-1a hash of a board's
// structural shape: its id plus every node's id and kind. Two boards with
// the same fingerprint differ only in cosmetic fields (position, comments,
// pin values) that do not warrant a version bump on their own.
func Fingerprint(b *board.Board) string {
	ids := make([]string, 0, len(b.Nodes))
	for id := range b.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	h := fnv.New64a()
	fmt.Fprintf(h, "%s\n", b.ID)
	for _, id := range ids {
		n := b.Nodes[id]
		fmt.Fprintf(h, "%s|%s\n", n.ID, n.Kind)
	}
	return fmt.Sprintf("%x", h.Sum64())
}

// Upsert compares candidate's fingerprint against existing's (nil existing
// counts as always-different, the first-save case). When the fingerprint
// is unchanged and no explicit bump was requested, candidate's version is
// left exactly as existing's and nothing is archived. Otherwise existing is
// archived to its BoardVersionPath and candidate.Version is bumped per
// vtype from existing's version. With existing nil, candidate.Version is
// set to 1.0.0 and nothing is archived. force bypasses the fingerprint comparison, for callers that know a
// bump is wanted regardless (e.g. an explicit "publish a new major" command).
func Upsert(ctx context.Context, store objectstore.Store, existing, candidate *board.Board, vtype Type, force bool) error {
	if existing == nil {
		candidate.Version = [3]int{1, 0, 0}
		return nil
	}

	if !force && Fingerprint(existing) == Fingerprint(candidate) {
		candidate.Version = existing.Version
		return nil
	}

	data, err := json.Marshal(existing)
	if err != nil {
		return fmt.Errorf("versioning: marshal existing board %s: %w", existing.ID, err)
	}
	triple := fmt.Sprintf("%d.%d.%d", existing.Version[0], existing.Version[1], existing.Version[2])
	path := objectstore.BoardVersionPath(existing.AppID, existing.ID, triple)
	if err := store.Put(ctx, path, data); err != nil {
		return fmt.Errorf("versioning: archive board %s version %s: %w", existing.ID, triple, err)
	}

	candidate.Version = Bump(existing.Version, vtype)
	return nil
}
