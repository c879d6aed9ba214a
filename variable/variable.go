// Package variable defines board-scoped slots that persist across a run,
// as opposed to pin values which live only for the wave that produced
// them.
package variable

import (
	"sync"

	"github.com/evalgo/flowengine/pin"
)

// Variable is the authoring-time, board-owned declaration of a variable.
type Variable struct {
	ID         string
	Name       string
	Kind       pin.Kind
	ValueShape pin.ValueShape
	Default    []byte
	Exposed    bool
}

// Clone returns an independent copy of v.
func (v *Variable) Clone() *Variable {
	c := *v
	c.Default = append([]byte(nil), v.Default...)
	return &c
}

// RuntimeVariable is the run-scoped, mutex-guarded slot backing a
// Variable during execution. Concurrent reads/writes from parallel waves
// are serialized here rather than at the execctx layer.
type RuntimeVariable struct {
	Decl *Variable

	mu    sync.RWMutex
	value []byte
}

// NewRuntimeVariable seeds a slot from decl's default value.
func NewRuntimeVariable(decl *Variable) *RuntimeVariable {
	return &RuntimeVariable{
		Decl:  decl,
		value: append([]byte(nil), decl.Default...),
	}
}

// Get returns the current value.
func (rv *RuntimeVariable) Get() []byte {
	rv.mu.RLock()
	defer rv.mu.RUnlock()
	return append([]byte(nil), rv.value...)
}

// Set overwrites the current value.
func (rv *RuntimeVariable) Set(v []byte) {
	rv.mu.Lock()
	defer rv.mu.Unlock()
	rv.value = append([]byte(nil), v...)
}
