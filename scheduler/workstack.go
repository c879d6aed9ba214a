package scheduler

import "hash/fnv"

// WorkStack is the scheduler's pending-activation queue. Its Hash is used
// to detect a fixpoint: if two consecutive waves leave the stack's content
// unchanged, the run can never converge and is failed rather than looped
// forever.
type WorkStack struct {
	ids []string
}

// Push enqueues id; an id already pending is not enqueued twice.
func (w *WorkStack) Push(id string) {
	for _, pending := range w.ids {
		if pending == id {
			return
		}
	}
	w.ids = append(w.ids, id)
}

// Empty reports whether the stack has no pending work. This, not an
// unchanged hash, is the authoritative "run finished" signal: a hash can
// repeat because the run is genuinely done (empty stack, hash 0) or
// because it is stalled (nonempty stack, same ids) and those are not the
// same thing.
func (w *WorkStack) Empty() bool {
	return len(w.ids) == 0
}

// PopWave removes and returns up to max pending ids, preserving FIFO order
// within the wave.
func (w *WorkStack) PopWave(max int) []string {
	if max <= 0 || len(w.ids) == 0 {
		return nil
	}
	if max > len(w.ids) {
		max = len(w.ids)
	}
	wave := w.ids[:max]
	w.ids = w.ids[max:]
	return wave
}

// Hash is the XOR of each pending id's FNV-1a 64 hash, order-independent
// so two stacks holding the same set of ids in different orders
// compare equal.
func (w *WorkStack) Hash() uint64 {
	var acc uint64
	for _, id := range w.ids {
		h := fnv.New64a()
		_, _ = h.Write([]byte(id))
		acc ^= h.Sum64()
	}
	return acc
}
