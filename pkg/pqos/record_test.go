package pqos

import (
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecodeMonPreservesEventOrder(t *testing.T) {
	t.Parallel()

	src := &MonitoringCap{
		MaxRMID: 255,
		L3Size:  37748736,
		Events: []MonitorEvent{
			{Type: EventL3Occupancy, MaxRMID: 255, ScaleFactor: 1},
			{Type: EventTotalMemBW, MaxRMID: 255, ScaleFactor: 1, CounterLength: 24},
			{Type: EventLocalMemBW, MaxRMID: 255, ScaleFactor: 1, CounterLength: 24},
		},
	}
	got, err := decodeMon(EncodeMon(src))
	if err != nil {
		t.Fatalf("decodeMon: %v", err)
	}

	if len(got.Events) != len(src.Events) {
		t.Fatalf("decoded %d events, want %d", len(got.Events), len(src.Events))
	}
	src.MemSize = got.MemSize
	if diff := cmp.Diff(src, got); diff != "" {
		t.Errorf("decoded capability mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeMonEmptyEventList(t *testing.T) {
	t.Parallel()

	got, err := decodeMon(EncodeMon(&MonitoringCap{MaxRMID: 3}))
	if err != nil {
		t.Fatalf("decodeMon: %v", err)
	}
	if len(got.Events) != 0 {
		t.Errorf("expected no events, got %d", len(got.Events))
	}
}

func TestDecodeMonRejectsEventCountMismatch(t *testing.T) {
	t.Parallel()

	rec := EncodeMon(&MonitoringCap{
		Events: []MonitorEvent{{Type: EventL3Occupancy}},
	})

	// Declare one more event than the record carries.
	binary.LittleEndian.PutUint32(rec[16:], 2)
	if _, err := decodeMon(rec); err == nil {
		t.Error("expected error for over-declared event count")
	}

	// Declare one fewer.
	binary.LittleEndian.PutUint32(rec[16:], 0)
	if _, err := decodeMon(rec); err == nil {
		t.Error("expected error for under-declared event count")
	}
}

func TestDecodeL3CAScenario(t *testing.T) {
	t.Parallel()

	rec := EncodeL3CA(&L3AllocCap{
		NumClasses:    4,
		NumWays:       20,
		WaySize:       1835008,
		WayContention: 0xc0000,
		CDP:           TriTrue,
		CDPOn:         TriFalse,
	})
	got, err := decodeL3CA(rec)
	if err != nil {
		t.Fatalf("decodeL3CA: %v", err)
	}
	if got.NumClasses != 4 || got.NumWays != 20 {
		t.Errorf("got %d classes / %d ways, want 4 / 20", got.NumClasses, got.NumWays)
	}
	if got.CDP != TriTrue {
		t.Errorf("cdp = %v, want true", got.CDP)
	}
	if got.CDPOn != TriFalse {
		t.Errorf("cdp_on = %v, want false", got.CDPOn)
	}
}

func TestDecodeL3CARejectsBadTriState(t *testing.T) {
	t.Parallel()

	rec := EncodeL3CA(&L3AllocCap{NumClasses: 4})
	// Corrupt the cdp field with a value outside {-1, 0, 1}.
	binary.LittleEndian.PutUint32(rec[24:], 7)
	if _, err := decodeL3CA(rec); err == nil {
		t.Error("expected decode error for tri-state value 7")
	}
}

func TestDecodeRejectsTruncatedRecord(t *testing.T) {
	t.Parallel()

	rec := EncodeL3CA(&L3AllocCap{NumClasses: 8})
	if _, err := decodeL3CA(rec[:10]); err == nil {
		t.Error("expected decode error for truncated record")
	}
	if _, err := decodeMBA(nil); err == nil {
		t.Error("expected decode error for empty record")
	}
}

func TestDecodeRejectsSizeMismatch(t *testing.T) {
	t.Parallel()

	rec := EncodeMBA(&MBAAllocCap{NumClasses: 8})
	// Lie about the declared record size.
	binary.LittleEndian.PutUint32(rec[0:], 64)
	if _, err := decodeMBA(rec); err == nil {
		t.Error("expected decode error for declared size mismatch")
	}
}

func TestDecodeMBAIsLinearIsBoolean(t *testing.T) {
	t.Parallel()

	// is_linear follows the plain-boolean contract: 1 is linear,
	// anything else is not. -1 must not decode as unknown here.
	cases := map[int32]bool{
		1:  true,
		0:  false,
		-1: false,
		2:  false,
	}
	for raw, want := range cases {
		rec := EncodeMBA(&MBAAllocCap{NumClasses: 8, Ctrl: TriFalse, CtrlOn: TriFalse})
		binary.LittleEndian.PutUint32(rec[16:], uint32(raw))
		got, err := decodeMBA(rec)
		if err != nil {
			t.Fatalf("decodeMBA(is_linear=%d): %v", raw, err)
		}
		if got.IsLinear != want {
			t.Errorf("is_linear=%d decoded as %v, want %v", raw, got.IsLinear, want)
		}
	}
}

func TestDecodeMBACtrlUnknown(t *testing.T) {
	t.Parallel()

	rec := EncodeMBA(&MBAAllocCap{
		NumClasses:   8,
		ThrottleMax:  90,
		ThrottleStep: 10,
		IsLinear:     true,
		Ctrl:         TriUnknown,
		CtrlOn:       TriFalse,
	})
	got, err := decodeMBA(rec)
	if err != nil {
		t.Fatalf("decodeMBA: %v", err)
	}
	if got.Ctrl != TriUnknown {
		t.Errorf("ctrl = %v, want unknown", got.Ctrl)
	}
	if got.Ctrl == TriFalse {
		t.Error("unknown ctrl collapsed to false")
	}
}

func TestDecodeL2CAMatchesL3Layout(t *testing.T) {
	t.Parallel()

	rec := EncodeL2CA(&L2AllocCap{
		NumClasses:       8,
		NumWays:          16,
		WaySize:          65536,
		CDP:              TriFalse,
		CDPOn:            TriFalse,
		NonContiguousCBM: true,
	})
	got, err := decodeL2CA(rec)
	if err != nil {
		t.Fatalf("decodeL2CA: %v", err)
	}
	if got.Type() != CapL2CA {
		t.Errorf("Type() = %v, want l2ca", got.Type())
	}
	if !got.NonContiguousCBM {
		t.Error("non_contiguous_cbm lost in decode")
	}
}
