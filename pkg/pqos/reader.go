package pqos

import "fmt"

// Cap reads platform capabilities through a native provider. The
// capability descriptor is fetched once at construction and shared
// read-only across all queries; Cap adds no locking of its own, so
// concurrent use is only safe if the provider documents its queries
// as thread-safe.
type Cap struct {
	native Native
	desc   Descriptor
}

// NewCap fetches the platform capability descriptor from the
// provider. A non-success status means the platform cannot serve
// capability queries at all (unsupported hardware, subsystem not
// initialized, missing privilege); the reader is unusable and the
// fetch is not retried.
func NewCap(n Native) (*Cap, error) {
	desc, s := n.CapGet()
	if s != StatusOK {
		return nil, fmt.Errorf("%w: cap_get: %s", ErrUnavailable, s)
	}
	return &Cap{native: n, desc: desc}, nil
}

// Get resolves a category name (case-insensitive: mon, l3ca, l2ca,
// mba) and returns its decoded capability object. The name is
// validated before any native call is made.
func (c *Cap) Get(category string) (Capability, error) {
	t, err := ParseCapType(category)
	if err != nil {
		return nil, err
	}
	return c.GetType(t)
}

// GetType queries the descriptor for one capability category and
// decodes its record. Decoding either fully succeeds or fails with an
// error and no object; a malformed record is reported as a native
// contract violation, not caller misuse.
func (c *Cap) GetType(t CapType) (Capability, error) {
	raw, s := c.native.CapGetType(c.desc, t)
	if s != StatusOK {
		return nil, statusError("cap_get_type", t, s)
	}

	var (
		decoded Capability
		err     error
	)
	switch t {
	case CapMon:
		decoded, err = decodeMon(raw)
	case CapL3CA:
		decoded, err = decodeL3CA(raw)
	case CapL2CA:
		decoded, err = decodeL2CA(raw)
	case CapMBA:
		decoded, err = decodeMBA(raw)
	default:
		return nil, &UnknownCategoryError{Name: t.String()}
	}
	if err != nil {
		return nil, &NativeCallError{Call: "cap_get_type(" + t.String() + ")", Detail: err.Error()}
	}
	return decoded, nil
}

// CosNum returns the number of classes of service configurable for an
// allocation category (l3ca, l2ca or mba). A platform that lacks the
// category yields NotPresentError, never a zero count.
func (c *Cap) CosNum(category string) (uint32, error) {
	t, err := ParseCapType(category)
	if err != nil {
		return 0, err
	}

	var (
		call string
		n    uint32
		s    Status
	)
	switch t {
	case CapL3CA:
		call = "l3ca_get_cos_num"
		n, s = c.native.L3CosNum(c.desc)
	case CapL2CA:
		call = "l2ca_get_cos_num"
		n, s = c.native.L2CosNum(c.desc)
	case CapMBA:
		call = "mba_get_cos_num"
		n, s = c.native.MBACosNum(c.desc)
	default:
		return 0, &UnknownCategoryError{Name: category}
	}
	if s != StatusOK {
		return 0, statusError(call, t, s)
	}
	return n, nil
}

// CDPStatus reports code/data prioritization support and enablement
// for a cache allocation category (l3ca or l2ca). Both values are
// tri-state: a platform may leave them unknown.
func (c *Cap) CDPStatus(category string) (supported, enabled TriState, err error) {
	t, err := ParseCapType(category)
	if err != nil {
		return TriUnknown, TriUnknown, err
	}

	var (
		call     string
		sup, ena int32
		s        Status
	)
	switch t {
	case CapL3CA:
		call = "l3ca_cdp_enabled"
		sup, ena, s = c.native.L3CDPEnabled(c.desc)
	case CapL2CA:
		call = "l2ca_cdp_enabled"
		sup, ena, s = c.native.L2CDPEnabled(c.desc)
	default:
		return TriUnknown, TriUnknown, &UnknownCategoryError{Name: category}
	}
	if s != StatusOK {
		return TriUnknown, TriUnknown, statusError(call, t, s)
	}
	return decodeTriPair(call, sup, ena)
}

// MBACtrlStatus reports MBA software controller support and
// enablement as a tri-state pair.
func (c *Cap) MBACtrlStatus() (supported, enabled TriState, err error) {
	sup, ena, s := c.native.MBACtrlEnabled(c.desc)
	if s != StatusOK {
		return TriUnknown, TriUnknown, statusError("mba_ctrl_enabled", CapMBA, s)
	}
	return decodeTriPair("mba_ctrl_enabled", sup, ena)
}

func decodeTriPair(call string, sup, ena int32) (TriState, TriState, error) {
	supported, err := DecodeTriState(sup)
	if err != nil {
		return TriUnknown, TriUnknown, &NativeCallError{Call: call, Detail: err.Error()}
	}
	enabled, err := DecodeTriState(ena)
	if err != nil {
		return TriUnknown, TriUnknown, &NativeCallError{Call: call, Detail: err.Error()}
	}
	return supported, enabled, nil
}

func statusError(call string, t CapType, s Status) error {
	if s == StatusResource {
		return &NotPresentError{Cap: t}
	}
	return &NativeCallError{Call: call, Status: s}
}
