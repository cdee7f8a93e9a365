// Package errors carries coded domain errors with structured context through
// the obfuscation pipeline.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type ErrorCode string

const (
	CodeConfig          ErrorCode = "CONFIG_ERROR"
	CodeValidationError ErrorCode = "VALIDATION_ERROR"
	CodeInvariant       ErrorCode = "INVARIANT_VIOLATION"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeInternal        ErrorCode = "INTERNAL_ERROR"
)

const (
	CtxPath    = "path"
	CtxStage   = "stage"
	CtxSymbol  = "symbol"
	CtxSetting = "setting"
)

type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]any
}

func (e *DomainError) WithContext(key string, value any) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Error renders "[CODE] message: cause (k=v, ...)" with context keys sorted.
func (e *DomainError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Context[k])
		}
		b.WriteString(")")
	}
	return b.String()
}

func (e *DomainError) Unwrap() error { return e.Err }

func New(code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg}
}

func Newf(code ErrorCode, format string, args ...any) error {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(err error, code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg, Err: err}
}

// AddContext sets key on the outermost domain error in err's chain. Errors
// without one are wrapped as internal.
func AddContext(err error, key string, value any) error {
	if err == nil {
		return nil
	}
	var de *DomainError
	if errors.As(err, &de) {
		de.WithContext(key, value)
		return err
	}
	return (&DomainError{Code: CodeInternal, Message: "unexpected failure", Err: err}).WithContext(key, value)
}

func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// CodeOf returns the code of the outermost domain error, or "" if there is none.
func CodeOf(err error) ErrorCode {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ContextValue looks key up on every domain error in err's chain, outermost
// first.
func ContextValue(err error, key string) (any, bool) {
	for err != nil {
		if de, ok := err.(*DomainError); ok {
			if v, found := de.Context[key]; found {
				return v, true
			}
		}
		err = errors.Unwrap(err)
	}
	return nil, false
}
