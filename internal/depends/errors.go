package depends

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	ireflect "github.com/danpasecinic/detour/internal/reflect"
)

type ErrorCode uint16

const (
	ErrCodeNone ErrorCode = iota
	ErrCodeMissingDependency
	ErrCodeTypeMismatch
	ErrCodeFactoryMismatch
	ErrCodeInvalidPlaceholder
	ErrCodeInternalInvariantBreak
)

var codeNames = map[ErrorCode]string{
	ErrCodeNone:                   "NONE",
	ErrCodeMissingDependency:      "MISSING_DEPENDENCY",
	ErrCodeTypeMismatch:           "TYPE_MISMATCH",
	ErrCodeFactoryMismatch:        "FACTORY_MISMATCH",
	ErrCodeInvalidPlaceholder:     "INVALID_PLACEHOLDER",
	ErrCodeInternalInvariantBreak: "INTERNAL_INVARIANT_BREAK",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", c)
}

type Error struct {
	Code          ErrorCode
	Target        string
	ParamIndex    int
	RequestedType string
	Factory       string
	Message       string
	Cause         error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s]", e.Code))

	if e.Target != "" {
		b.WriteString(fmt.Sprintf(" target=%q", e.Target))
	}
	if e.ParamIndex >= 0 {
		b.WriteString(fmt.Sprintf(" param=%d", e.ParamIndex))
	}
	if e.RequestedType != "" {
		b.WriteString(fmt.Sprintf(" type=%s", e.RequestedType))
	}
	if e.Factory != "" {
		b.WriteString(fmt.Sprintf(" factory=%s", e.Factory))
	}

	b.WriteString(": ")
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

func newError(code ErrorCode, req Request, factory FactoryKey, message string, cause error) *Error {
	e := &Error{
		Code:       code,
		Target:     req.TargetName,
		ParamIndex: req.Index,
		Message:    message,
		Cause:      cause,
	}
	if req.Declared != nil {
		e.RequestedType = ireflect.TypeKeyOf(req.Declared)
	}
	if !factory.IsZero() {
		e.Factory = factory.String()
	}
	return e
}

func errInvariant(message string) *Error {
	return &Error{Code: ErrCodeInternalInvariantBreak, ParamIndex: -1, Message: message}
}

type FailPolicy int

const (
	FailTerminate FailPolicy = iota
	FailThrow
	FailCallback
)

func (p FailPolicy) String() string {
	switch p {
	case FailTerminate:
		return "terminate"
	case FailThrow:
		return "throw"
	case FailCallback:
		return "callback"
	default:
		return "unknown"
	}
}

func ParseFailPolicy(s string) (FailPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "terminate", "exit":
		return FailTerminate, nil
	case "throw", "panic":
		return FailThrow, nil
	case "callback":
		return FailCallback, nil
	default:
		return FailTerminate, fmt.Errorf("unknown inject fail policy %q", s)
	}
}

type Callback func(err *Error)

type Policy struct {
	mu       sync.RWMutex
	policy   FailPolicy
	callback Callback
	exit     func(code int)
	logger   *slog.Logger
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

// Raise notifies the callback and applies the policy. When it returns the
// failed call must not proceed.
func (p *Policy) Raise(err *Error) {
	p.mu.RLock()
	policy, cb, exit := p.policy, p.callback, p.exit
	p.mu.RUnlock()

	if cb != nil {
		cb(err)
	}

	switch policy {
	case FailThrow:
		panic(err)
	case FailCallback:
		p.logger.Debug("inject failed", "target", err.Target, "code", err.Code.String(), "error", err)
	default:
		p.logger.Error("inject failed, terminating", "target", err.Target, "code", err.Code.String(), "error", err)
		if exit != nil {
			exit(2)
		}
	}
}
