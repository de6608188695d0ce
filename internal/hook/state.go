package hook

import (
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
)

// State is the install-once state machine of one target.
type State struct {
	mu        sync.Mutex
	installed atomic.Bool
	original  atomic.Pointer[reflect.Value]
}

func (s *State) Installed() bool {
	return s.installed.Load()
}

// Original returns the callable reaching the unpatched function.
func (s *State) Original() (reflect.Value, bool) {
	v := s.original.Load()
	if v == nil {
		return reflect.Value{}, false
	}
	return *v, true
}

// Install creates and enables the backend hook. A second call after a
// successful install returns nil without touching the backend.
func (s *State) Install(h Hooker, target Target, detour reflect.Value) *Error {
	if s.installed.Load() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.installed.Load() {
		return nil
	}
	if h == nil || target.IsZero() || !detour.IsValid() {
		return errInvalidInstallArgument(target.String(), "target/detour cannot be nil")
	}

	original, err := h.CreateHook(target, detour)
	if err != nil {
		return errCreateHookFailed(target.String(), err)
	}
	if !original.IsValid() {
		return errCreateHookFailed(target.String(), errors.New("backend returned no original"))
	}

	if err := h.EnableHook(target); err != nil {
		_ = h.RemoveHook(target)
		return errEnableHookFailed(target.String(), err)
	}

	s.original.Store(&original)
	s.installed.Store(true)
	return nil
}

// Uninstall disables and removes the backend hook.
func (s *State) Uninstall(h Hooker, target Target) *Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.installed.Load() {
		return nil
	}

	disableErr := h.DisableHook(target)
	removeErr := h.RemoveHook(target)

	s.installed.Store(false)
	s.original.Store(nil)

	if err := errors.Join(disableErr, removeErr); err != nil {
		return errUninstallFailed(target.String(), err)
	}
	return nil
}
