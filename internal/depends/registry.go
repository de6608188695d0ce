package depends

import (
	"context"
	"reflect"
	"sort"
	"sync"

	"github.com/danpasecinic/detour/task"
)

type valueKey struct {
	target  uintptr
	factory FactoryKey
	typ     reflect.Type
}

// ValueRegistry holds explicitly provided objects. Values are borrowed
// pointers; the registry never closes them.
type ValueRegistry struct {
	mu     sync.RWMutex
	values map[valueKey]reflect.Value
}

func NewValueRegistry() *ValueRegistry {
	return &ValueRegistry{values: make(map[valueKey]reflect.Value)}
}

// Set stores ptr, a *typ, under the key. Last write wins.
func (r *ValueRegistry) Set(target uintptr, factory FactoryKey, typ reflect.Type, ptr reflect.Value) {
	r.mu.Lock()
	r.values[valueKey{target, factory, typ}] = ptr
	r.mu.Unlock()
}

// Find looks up (target, factory) and then (global, factory). A factory
// keyed lookup never falls back to the unkeyed entry.
func (r *ValueRegistry) Find(target uintptr, factory FactoryKey, typ reflect.Type) (reflect.Value, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if target != TargetGlobal {
		if v, ok := r.values[valueKey{target, factory, typ}]; ok {
			return v, true
		}
	}
	v, ok := r.values[valueKey{TargetGlobal, factory, typ}]
	return v, ok
}

func (r *ValueRegistry) FindExact(target uintptr, factory FactoryKey, typ reflect.Type) (reflect.Value, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.values[valueKey{target, factory, typ}]
	return v, ok
}

func (r *ValueRegistry) Remove(target uintptr, factory FactoryKey, typ reflect.Type) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := valueKey{target, factory, typ}
	if _, ok := r.values[key]; !ok {
		return false
	}
	delete(r.values, key)
	return true
}

func (r *ValueRegistry) Clear() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.values)
	clear(r.values)
	return n
}

func (r *ValueRegistry) ClearTarget(target uintptr) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for k := range r.values {
		if k.target == target {
			delete(r.values, k)
			n++
		}
	}
	return n
}

func (r *ValueRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.values)
}

// PtrValue is what a dependency factory hands back.
type PtrValue struct {
	Ptr     reflect.Value
	Owned   bool
	Factory FactoryKey
	Cached  bool
}

// Meta describes how to produce the default for one injected parameter.
// A Plain meta has no factory and resolves through the slot cache,
// explicit values or default construction.
type Meta struct {
	Index   int
	Type    reflect.Type
	Factory FactoryKey
	Owned   bool
	Cached  bool
	Plain   bool

	Sync  func() (PtrValue, error)
	Async func(ctx context.Context) *task.Task[PtrValue]
}

func (m *Meta) IsAsync() bool {
	return m.Async != nil
}

type metaKey struct {
	target uintptr
	index  int
	typ    reflect.Type
}

type MetaRegistry struct {
	mu    sync.RWMutex
	metas map[metaKey]*Meta
}

func NewMetaRegistry() *MetaRegistry {
	return &MetaRegistry{metas: make(map[metaKey]*Meta)}
}

func (r *MetaRegistry) Register(target uintptr, m *Meta) {
	r.mu.Lock()
	r.metas[metaKey{target, m.Index, m.Type}] = m
	r.mu.Unlock()
}

func (r *MetaRegistry) Lookup(target uintptr, index int, typ reflect.Type) (*Meta, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.metas[metaKey{target, index, typ}]
	return m, ok
}

// ForTarget returns the metas of one target ordered by parameter index.
func (r *MetaRegistry) ForTarget(target uintptr) []*Meta {
	r.mu.RLock()
	var out []*Meta
	for k, m := range r.metas {
		if k.target == target {
			out = append(out, m)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func (r *MetaRegistry) Targets() []uintptr {
	r.mu.RLock()
	seen := make(map[uintptr]struct{})
	for k := range r.metas {
		seen[k.target] = struct{}{}
	}
	r.mu.RUnlock()

	out := make([]uintptr, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *MetaRegistry) RemoveTarget(target uintptr) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for k := range r.metas {
		if k.target == target {
			delete(r.metas, k)
			n++
		}
	}
	return n
}

func (r *MetaRegistry) Clear() {
	r.mu.Lock()
	clear(r.metas)
	r.mu.Unlock()
}

// Override replaces one exact explicit value until Restore puts the
// previous value back, or removes the key when there was none.
type Override struct {
	values   *ValueRegistry
	key      valueKey
	prev     reflect.Value
	hadPrev  bool
	restored bool
	mu       sync.Mutex
}

func NewOverride(values *ValueRegistry, target uintptr, factory FactoryKey, typ reflect.Type, ptr reflect.Value) *Override {
	prev, had := values.FindExact(target, factory, typ)
	values.Set(target, factory, typ, ptr)
	return &Override{
		values:  values,
		key:     valueKey{target, factory, typ},
		prev:    prev,
		hadPrev: had,
	}
}

func (o *Override) Restore() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.restored {
		return
	}
	o.restored = true

	if o.hadPrev {
		o.values.Set(o.key.target, o.key.factory, o.key.typ, o.prev)
		return
	}
	o.values.Remove(o.key.target, o.key.factory, o.key.typ)
}
