package hook

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
)

type ErrorCode uint16

const (
	ErrCodeNone ErrorCode = iota
	ErrCodeInvalidInstallArgument
	ErrCodeCreateHookFailed
	ErrCodeEnableHookFailed
	ErrCodeUninstallFailed
)

var codeNames = map[ErrorCode]string{
	ErrCodeNone:                   "NONE",
	ErrCodeInvalidInstallArgument: "INVALID_INSTALL_ARGUMENT",
	ErrCodeCreateHookFailed:       "CREATE_HOOK_FAILED",
	ErrCodeEnableHookFailed:       "ENABLE_HOOK_FAILED",
	ErrCodeUninstallFailed:        "UNINSTALL_FAILED",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", c)
}

type Error struct {
	Code    ErrorCode
	Target  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s]", e.Code))

	if e.Target != "" {
		b.WriteString(fmt.Sprintf(" target=%q:", e.Target))
	}

	b.WriteString(" ")
	b.WriteString(e.Message)

	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func errInvalidInstallArgument(target, message string) *Error {
	return &Error{
		Code:    ErrCodeInvalidInstallArgument,
		Target:  target,
		Message: "hook install failed: " + message,
	}
}

func errCreateHookFailed(target string, cause error) *Error {
	return &Error{
		Code:    ErrCodeCreateHookFailed,
		Target:  target,
		Message: "hook install failed: backend CreateHook failed",
		Cause:   cause,
	}
}

func errEnableHookFailed(target string, cause error) *Error {
	return &Error{
		Code:    ErrCodeEnableHookFailed,
		Target:  target,
		Message: "hook install failed: backend EnableHook failed",
		Cause:   cause,
	}
}

func errUninstallFailed(target string, cause error) *Error {
	return &Error{
		Code:    ErrCodeUninstallFailed,
		Target:  target,
		Message: "hook uninstall failed",
		Cause:   cause,
	}
}

type FailPolicy int

const (
	FailIgnore FailPolicy = iota
	FailThrow
	FailCallback
	FailTerminate
)

func (p FailPolicy) String() string {
	switch p {
	case FailIgnore:
		return "ignore"
	case FailThrow:
		return "throw"
	case FailCallback:
		return "callback"
	case FailTerminate:
		return "terminate"
	default:
		return "unknown"
	}
}

func ParseFailPolicy(s string) (FailPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ignore":
		return FailIgnore, nil
	case "throw", "panic":
		return FailThrow, nil
	case "callback":
		return FailCallback, nil
	case "terminate", "exit":
		return FailTerminate, nil
	default:
		return FailIgnore, fmt.Errorf("unknown hook fail policy %q", s)
	}
}

type Callback func(err *Error)

// Policy routes install failures. The last raised error is kept until
// cleared.
type Policy struct {
	mu       sync.RWMutex
	policy   FailPolicy
	callback Callback
	exit     func(code int)
	logger   *slog.Logger
	last     atomic.Pointer[Error]
}

func NewPolicy(logger *slog.Logger, exit func(code int)) *Policy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Policy{logger: logger, exit: exit}
}

func (p *Policy) Set(policy FailPolicy) {
	p.mu.Lock()
	p.policy = policy
	p.mu.Unlock()
}

func (p *Policy) Get() FailPolicy {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.policy
}

func (p *Policy) SetCallback(cb Callback) {
	p.mu.Lock()
	p.callback = cb
	p.mu.Unlock()
}

func (p *Policy) Last() *Error {
	return p.last.Load()
}

func (p *Policy) ClearLast() {
	p.last.Store(nil)
}

// Raise records err, notifies the callback and applies the policy. It
// returns err for the Ignore and Callback policies.
func (p *Policy) Raise(err *Error) error {
	p.last.Store(err)

	p.mu.RLock()
	policy, cb, exit := p.policy, p.callback, p.exit
	p.mu.RUnlock()

	if cb != nil {
		cb(err)
	}

	switch policy {
	case FailThrow:
		panic(err)
	case FailTerminate:
		p.logger.Error("hook install failed, terminating", "target", err.Target, "code", err.Code.String(), "error", err)
		if exit != nil {
			exit(2)
		}
	default:
		p.logger.Debug("hook install failed", "target", err.Target, "code", err.Code.String(), "error", err)
	}
	return err
}
