package pqos

import (
	"fmt"
	"strings"
)

// Status is the integer result convention used by native capability
// providers. Zero is success; everything else is translated by the
// reader into a typed error, never surfaced raw.
type Status int

const (
	StatusOK       Status = 0
	StatusError    Status = 1
	StatusParam    Status = 2
	StatusResource Status = 3
	StatusInit     Status = 4
	StatusPerm     Status = 6
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusError:
		return "error"
	case StatusParam:
		return "invalid parameter"
	case StatusResource:
		return "resource not available"
	case StatusInit:
		return "not initialized"
	case StatusPerm:
		return "permission denied"
	}
	return fmt.Sprintf("status %d", int(s))
}

// CapType identifies a capability category.
type CapType int

const (
	CapMon CapType = iota
	CapL3CA
	CapL2CA
	CapMBA
)

func (t CapType) String() string {
	switch t {
	case CapMon:
		return "mon"
	case CapL3CA:
		return "l3ca"
	case CapL2CA:
		return "l2ca"
	case CapMBA:
		return "mba"
	}
	return fmt.Sprintf("CapType(%d)", int(t))
}

// ParseCapType resolves a category name to its CapType. Matching is
// case-insensitive.
func ParseCapType(s string) (CapType, error) {
	switch strings.ToLower(s) {
	case "mon":
		return CapMon, nil
	case "l3ca":
		return CapL3CA, nil
	case "l2ca":
		return CapL2CA, nil
	case "mba":
		return CapMBA, nil
	}
	return 0, &UnknownCategoryError{Name: s}
}

// Descriptor is an opaque handle to a provider's capability snapshot.
// It is fetched once per reader, shared read-only across queries and
// never mutated. Its underlying resource belongs to the provider;
// queries must not be issued after the provider tears it down.
type Descriptor interface{}

// Native is the boundary to the platform capability provider. Every
// method is a fast, blocking, local query returning a raw Status; the
// reader owns translating non-success statuses into errors.
//
// CDP and MBA-controller status pairs use the raw tri-state integer
// convention: -1 unknown, 0 off, 1 on.
type Native interface {
	// CapGet fetches the platform capability descriptor.
	CapGet() (Descriptor, Status)

	// CapGetType returns the fixed-layout record for one capability
	// category, or StatusResource when the platform lacks it.
	CapGetType(d Descriptor, t CapType) ([]byte, Status)

	L3CosNum(d Descriptor) (uint32, Status)
	L2CosNum(d Descriptor) (uint32, Status)
	MBACosNum(d Descriptor) (uint32, Status)

	L3CDPEnabled(d Descriptor) (supported, enabled int32, s Status)
	L2CDPEnabled(d Descriptor) (supported, enabled int32, s Status)
	MBACtrlEnabled(d Descriptor) (supported, enabled int32, s Status)
}
