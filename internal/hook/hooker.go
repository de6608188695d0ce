package hook

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

//go:generate mockgen -source=hooker.go -destination=mock_hooker_test.go -package=hook_test

// Hooker installs one low-level detour per target. CreateHook hands back
// the callable that still reaches the original code.
type Hooker interface {
	CreateHook(target Target, detour reflect.Value) (original reflect.Value, err error)
	EnableHook(target Target) error
	DisableHook(target Target) error
	RemoveHook(target Target) error
}

var (
	ErrHookExists   = errors.New("hook already created for target")
	ErrHookNotFound = errors.New("no hook created for target")
)

type varHook struct {
	slot     reflect.Value
	original reflect.Value
	detour   reflect.Value
	enabled  bool
}

// FuncVarHooker patches function variables in place. Callers that invoke
// the variable reach the detour while the hook is enabled.
type FuncVarHooker struct {
	mu    sync.Mutex
	hooks map[uintptr]*varHook
}

func NewFuncVarHooker() *FuncVarHooker {
	return &FuncVarHooker{hooks: make(map[uintptr]*varHook)}
}

func (h *FuncVarHooker) CreateHook(target Target, detour reflect.Value) (reflect.Value, error) {
	slot := target.Var()
	if !slot.IsValid() || !slot.CanSet() {
		return reflect.Value{}, fmt.Errorf("target %s is not a settable func variable", target)
	}
	if !detour.IsValid() || detour.Type() != slot.Type() {
		return reflect.Value{}, fmt.Errorf("detour type does not match %s", slot.Type())
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.hooks[target.Key()]; exists {
		return reflect.Value{}, ErrHookExists
	}

	original := reflect.ValueOf(slot.Interface())
	h.hooks[target.Key()] = &varHook{
		slot:     slot,
		original: original,
		detour:   detour,
	}
	return original, nil
}

func (h *FuncVarHooker) EnableHook(target Target) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	hk, ok := h.hooks[target.Key()]
	if !ok {
		return ErrHookNotFound
	}
	hk.slot.Set(hk.detour)
	hk.enabled = true
	return nil
}

func (h *FuncVarHooker) DisableHook(target Target) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	hk, ok := h.hooks[target.Key()]
	if !ok {
		return ErrHookNotFound
	}
	hk.slot.Set(hk.original)
	hk.enabled = false
	return nil
}

func (h *FuncVarHooker) RemoveHook(target Target) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	hk, ok := h.hooks[target.Key()]
	if !ok {
		return ErrHookNotFound
	}
	if hk.enabled {
		hk.slot.Set(hk.original)
	}
	delete(h.hooks, target.Key())
	return nil
}

// Len reports how many hooks are currently created.
func (h *FuncVarHooker) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.hooks)
}
