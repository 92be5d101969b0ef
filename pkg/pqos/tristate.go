package pqos

import "fmt"

// TriState is a three-valued flag used for capability bits the
// platform may report as supported, unsupported or not applicable.
// The unknown state is deliberately distinct from false and must not
// be collapsed to it by callers.
type TriState int8

const (
	TriUnknown TriState = -1
	TriFalse   TriState = 0
	TriTrue    TriState = 1
)

func (t TriState) String() string {
	switch t {
	case TriUnknown:
		return "unknown"
	case TriFalse:
		return "false"
	case TriTrue:
		return "true"
	}
	return fmt.Sprintf("TriState(%d)", int8(t))
}

// Bool reports the flag as a plain boolean. known is false when the
// state is unknown, in which case value carries no meaning.
func (t TriState) Bool() (value, known bool) {
	if t == TriUnknown {
		return false, false
	}
	return t == TriTrue, true
}

// MarshalYAML renders the state by name so unknown never serialises
// as a number a consumer could mistake for false.
func (t TriState) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}

// MarshalJSON renders the state by name, same as the YAML form.
func (t TriState) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// DecodeTriState converts the native -1/0/1 integer convention into a
// TriState. Any other value is a contract violation by the provider
// and is rejected rather than coerced.
func DecodeTriState(v int32) (TriState, error) {
	switch v {
	case -1:
		return TriUnknown, nil
	case 0:
		return TriFalse, nil
	case 1:
		return TriTrue, nil
	}
	return TriUnknown, fmt.Errorf("tri-state value out of range: %d", v)
}
