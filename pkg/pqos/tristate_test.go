package pqos

import "testing"

func TestDecodeTriState(t *testing.T) {
	t.Parallel()

	valid := map[int32]TriState{
		-1: TriUnknown,
		0:  TriFalse,
		1:  TriTrue,
	}
	for raw, want := range valid {
		got, err := DecodeTriState(raw)
		if err != nil {
			t.Fatalf("DecodeTriState(%d): %v", raw, err)
		}
		if got != want {
			t.Errorf("DecodeTriState(%d) = %v, want %v", raw, got, want)
		}
	}

	for _, raw := range []int32{2, -2, 42, 100, -100} {
		if _, err := DecodeTriState(raw); err == nil {
			t.Errorf("DecodeTriState(%d) accepted an out-of-range value", raw)
		}
	}
}

func TestTriStateUnknownIsNotFalse(t *testing.T) {
	t.Parallel()

	if TriUnknown == TriFalse {
		t.Fatal("unknown must stay distinct from false")
	}
	if _, known := TriUnknown.Bool(); known {
		t.Error("unknown should not report a known boolean value")
	}
	if value, known := TriFalse.Bool(); !known || value {
		t.Errorf("false should report (false, true), got (%v, %v)", value, known)
	}
	if value, known := TriTrue.Bool(); !known || !value {
		t.Errorf("true should report (true, true), got (%v, %v)", value, known)
	}
}

func TestTriStateString(t *testing.T) {
	t.Parallel()

	cases := map[TriState]string{
		TriUnknown: "unknown",
		TriFalse:   "false",
		TriTrue:    "true",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", state, got, want)
		}
	}
}

func TestTriStateMarshalJSON(t *testing.T) {
	t.Parallel()

	data, err := TriUnknown.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if string(data) != `"unknown"` {
		t.Errorf("unknown marshalled as %s", data)
	}
}
