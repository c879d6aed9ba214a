package board

import (
	"fmt"
	"hash/fnv"
)

// FixPins drops references to pins that no longer exist and restores the
// bidirectional ConnectedTo/DependsOn invariant for everything that
// remains.
func FixPins(b *Board) {
	exists := make(map[string]bool)
	for _, n := range b.Nodes {
		for id := range n.Pins {
			exists[id] = true
		}
	}

	for _, n := range b.Nodes {
		for _, p := range n.Pins {
			p.ConnectedTo = filterExisting(p.ConnectedTo, exists)
			p.DependsOn = filterExisting(p.DependsOn, exists)
		}
	}

	// Rebuild DependsOn purely from ConnectedTo so the two sides can never
	// drift: every producer's ConnectedTo is authoritative.
	depends := make(map[string][]string)
	for _, n := range b.Nodes {
		for _, p := range n.Pins {
			for _, toID := range p.ConnectedTo {
				depends[toID] = append(depends[toID], p.ID)
			}
		}
	}
	for _, n := range b.Nodes {
		for _, p := range n.Pins {
			p.DependsOn = depends[p.ID]
		}
	}
}

func filterExisting(ids []string, exists map[string]bool) []string {
	out := ids[:0]
	for _, id := range ids {
		if exists[id] {
			out = append(out, id)
		}
	}
	return out
}

// refHashThreshold is the minimum string length Cleanup interns rather than
// storing inline; short strings are cheaper kept verbatim than looked up.
const refHashThreshold = 64

// Cleanup interns every node/pin description and schema-ref string longer
// than refHashThreshold into b.Refs, keyed by a stable FNV-1a 64 hash of
// its content, and replaces the original field with the hash key. Interning
// the same string twice produces the same key, so Refs never grows beyond
// one entry per distinct string.
func Cleanup(b *Board) {
	for _, n := range b.Nodes {
		n.Description = intern(b, n.Description)
		for _, p := range n.Pins {
			if p.SchemaRef != nil {
				ref := intern(b, *p.SchemaRef)
				p.SchemaRef = &ref
			}
		}
	}
}

func intern(b *Board, s string) string {
	if len(s) < refHashThreshold {
		return s
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	key := fmt.Sprintf("ref:%x", h.Sum64())
	if _, exists := b.Refs[key]; !exists {
		b.Refs[key] = s
	}
	return key
}

// Expand reverses Cleanup for a single string, returning the original
// content if s is a Refs key, or s itself otherwise.
func Expand(b *Board, s string) string {
	if original, ok := b.Refs[s]; ok {
		return original
	}
	return s
}
