package detour

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danpasecinic/detour/internal/depends"
	"github.com/danpasecinic/detour/internal/hook"
)

type ErrorCode uint16

const (
	ErrCodeUnknown ErrorCode = iota
	ErrCodeInvalidTarget
	ErrCodeInvalidBinding
	ErrCodeModuleApplyFailed
	ErrCodeValidationFailed
	ErrCodeRuntimeClosed
)

var codeNames = map[ErrorCode]string{
	ErrCodeUnknown:           "UNKNOWN",
	ErrCodeInvalidTarget:     "INVALID_TARGET",
	ErrCodeInvalidBinding:    "INVALID_BINDING",
	ErrCodeModuleApplyFailed: "MODULE_APPLY_FAILED",
	ErrCodeValidationFailed:  "VALIDATION_FAILED",
	ErrCodeRuntimeClosed:     "RUNTIME_CLOSED",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", c)
}

// Error reports misuse of the public API. Failures inside the hook
// pipeline and the injector surface as HookError and InjectError.
type Error struct {
	Code    ErrorCode
	Message string
	Target  string
	Cause   error
}

type (
	HookError   = hook.Error
	InjectError = depends.Error
)

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

func (e *Error) WithTarget(target string) *Error {
	e.Target = target
	return e
}

func newError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func errInvalidTarget(cause error) *Error {
	return newError(ErrCodeInvalidTarget, "target must be a pointer to a non-nil function variable", cause)
}

func errInvalidBinding(target string, message string, cause error) *Error {
	return newError(ErrCodeInvalidBinding, message, cause).WithTarget(target)
}

func errModuleApplyFailed(module string, cause error) *Error {
	return newError(
		ErrCodeModuleApplyFailed,
		fmt.Sprintf("failed to apply module %s", module),
		cause,
	)
}

func errValidationFailed(cause error) *Error {
	return newError(ErrCodeValidationFailed, "inject bindings are inconsistent", cause)
}

func errRuntimeClosed() *Error {
	return newError(ErrCodeRuntimeClosed, "runtime is closed", nil)
}

func IsInvalidTarget(err error) bool {
	var e *Error
	if errors.As(err, &e) && e.Code == ErrCodeInvalidTarget {
		return true
	}
	return isHookCode(err, hook.ErrCodeInvalidInstallArgument)
}

func IsInvalidBinding(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeInvalidBinding
}

func IsModuleApplyFailed(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeModuleApplyFailed
}

func IsValidationFailed(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeValidationFailed
}

func IsRuntimeClosed(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeRuntimeClosed
}

func IsInstallFailed(err error) bool {
	return isHookCode(err, hook.ErrCodeCreateHookFailed) || isHookCode(err, hook.ErrCodeEnableHookFailed)
}

func IsUninstallFailed(err error) bool {
	return isHookCode(err, hook.ErrCodeUninstallFailed)
}

func IsMissingDependency(err error) bool {
	return isInjectCode(err, depends.ErrCodeMissingDependency)
}

func IsTypeMismatch(err error) bool {
	return isInjectCode(err, depends.ErrCodeTypeMismatch)
}

func IsFactoryMismatch(err error) bool {
	return isInjectCode(err, depends.ErrCodeFactoryMismatch)
}

func IsInvalidPlaceholder(err error) bool {
	return isInjectCode(err, depends.ErrCodeInvalidPlaceholder)
}

func isHookCode(err error, code hook.ErrorCode) bool {
	var e *hook.Error
	return errors.As(err, &e) && e.Code == code
}

func isInjectCode(err error, code depends.ErrorCode) bool {
	var e *depends.Error
	return errors.As(err, &e) && e.Code == code
}
