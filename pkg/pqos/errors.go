package pqos

import (
	"errors"
	"fmt"
)

// ErrUnavailable means the initial capability fetch failed and the
// reader cannot serve any queries. Platform capability is static for
// the process lifetime, so the failure is never retried.
var ErrUnavailable = errors.New("platform capabilities unavailable")

// UnknownCategoryError reports a category name that does not match
// any capability type.
type UnknownCategoryError struct {
	Name string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown capability category %q", e.Name)
}

// NotPresentError reports a category the platform does not support.
type NotPresentError struct {
	Cap CapType
}

func (e *NotPresentError) Error() string {
	return fmt.Sprintf("capability %s not present on this platform", e.Cap)
}

// NativeCallError reports a non-success status from the native
// provider, or a malformed record it handed back. Call names the
// provider operation for diagnostics.
type NativeCallError struct {
	Call   string
	Status Status
	Detail string
}

func (e *NativeCallError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Call, e.Detail)
	}
	return fmt.Sprintf("%s failed: %s", e.Call, e.Status)
}
