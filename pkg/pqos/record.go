package pqos

import (
	"encoding/binary"
	"fmt"
)

// Capability records cross the native boundary as little-endian
// fixed-layout buffers, fields in declared order:
//
//	mon:   memSize u32, maxRMID u32, l3Size u64, numEvents u32,
//	       then numEvents entries of
//	       (type u32, maxRMID u32, scaleFactor u32, counterLength u32)
//	l3ca:  memSize u32, numClasses u32, numWays u32, waySize u32,
//	l2ca   wayContention u64, cdp i32, cdpOn i32, nonContiguousCBM u32
//	mba:   memSize u32, numClasses u32, throttleMax u32,
//	       throttleStep u32, isLinear i32, ctrl i32, ctrlOn i32
//
// memSize is the total record length in bytes and must match the
// buffer handed over; the decoders reject anything short, long or
// otherwise inconsistent instead of guessing.

const monitorEventSize = 16

type recordReader struct {
	buf []byte
	off int
	err error
}

func (r *recordReader) u32() uint32 {
	if r.err != nil {
		return 0
	}
	if r.off+4 > len(r.buf) {
		r.err = fmt.Errorf("record truncated at offset %d", r.off)
		return 0
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *recordReader) u64() uint64 {
	if r.err != nil {
		return 0
	}
	if r.off+8 > len(r.buf) {
		r.err = fmt.Errorf("record truncated at offset %d", r.off)
		return 0
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v
}

func (r *recordReader) i32() int32 {
	return int32(r.u32())
}

func (r *recordReader) tristate() TriState {
	v := r.i32()
	if r.err != nil {
		return TriUnknown
	}
	t, err := DecodeTriState(v)
	if err != nil {
		r.err = err
	}
	return t
}

func (r *recordReader) remaining() int {
	return len(r.buf) - r.off
}

// finish validates that the declared size matches reality once all
// fields have been consumed.
func (r *recordReader) finish(memSize uint32) error {
	if r.err != nil {
		return r.err
	}
	if r.remaining() != 0 {
		return fmt.Errorf("record has %d trailing bytes", r.remaining())
	}
	if int(memSize) != len(r.buf) {
		return fmt.Errorf("record declares %d bytes but carries %d", memSize, len(r.buf))
	}
	return nil
}

func decodeMon(buf []byte) (*MonitoringCap, error) {
	r := &recordReader{buf: buf}
	c := &MonitoringCap{
		MemSize: r.u32(),
		MaxRMID: r.u32(),
		L3Size:  r.u64(),
	}
	n := r.u32()
	if r.err != nil {
		return nil, r.err
	}
	if int(n)*monitorEventSize != r.remaining() {
		return nil, fmt.Errorf("monitoring record declares %d events but carries %d bytes of entries", n, r.remaining())
	}
	c.Events = make([]MonitorEvent, 0, n)
	for i := uint32(0); i < n; i++ {
		c.Events = append(c.Events, MonitorEvent{
			Type:          EventType(r.u32()),
			MaxRMID:       r.u32(),
			ScaleFactor:   r.u32(),
			CounterLength: r.u32(),
		})
	}
	if err := r.finish(c.MemSize); err != nil {
		return nil, err
	}
	return c, nil
}

func decodeL3CA(buf []byte) (*L3AllocCap, error) {
	r := &recordReader{buf: buf}
	c := &L3AllocCap{
		MemSize:       r.u32(),
		NumClasses:    r.u32(),
		NumWays:       r.u32(),
		WaySize:       r.u32(),
		WayContention: r.u64(),
		CDP:           r.tristate(),
		CDPOn:         r.tristate(),
	}
	c.NonContiguousCBM = r.u32() != 0
	if err := r.finish(c.MemSize); err != nil {
		return nil, err
	}
	return c, nil
}

func decodeL2CA(buf []byte) (*L2AllocCap, error) {
	c, err := decodeL3CA(buf)
	if err != nil {
		return nil, err
	}
	l2 := L2AllocCap(*c)
	return &l2, nil
}

func decodeMBA(buf []byte) (*MBAAllocCap, error) {
	r := &recordReader{buf: buf}
	c := &MBAAllocCap{
		MemSize:      r.u32(),
		NumClasses:   r.u32(),
		ThrottleMax:  r.u32(),
		ThrottleStep: r.u32(),
	}
	// Linear throttling is a plain boolean in the native contract:
	// exactly 1, never the tri-state decoder.
	c.IsLinear = r.i32() == 1
	c.Ctrl = r.tristate()
	c.CtrlOn = r.tristate()
	if err := r.finish(c.MemSize); err != nil {
		return nil, err
	}
	return c, nil
}

type recordWriter struct {
	buf []byte
}

func (w *recordWriter) u32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *recordWriter) u64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *recordWriter) i32(v int32) {
	w.u32(uint32(v))
}

func (w *recordWriter) bool32(v bool) {
	if v {
		w.u32(1)
	} else {
		w.u32(0)
	}
}

// EncodeMon builds the wire record for a monitoring capability.
// MemSize is filled in from the encoded length; providers do not set
// it themselves. The encoders exist for native providers that
// assemble records in Go rather than receive them from C memory.
func EncodeMon(c *MonitoringCap) []byte {
	w := &recordWriter{}
	w.u32(uint32(20 + len(c.Events)*monitorEventSize))
	w.u32(c.MaxRMID)
	w.u64(c.L3Size)
	w.u32(uint32(len(c.Events)))
	for _, ev := range c.Events {
		w.u32(uint32(ev.Type))
		w.u32(ev.MaxRMID)
		w.u32(ev.ScaleFactor)
		w.u32(ev.CounterLength)
	}
	return w.buf
}

// EncodeL3CA builds the wire record for an L3 allocation capability.
func EncodeL3CA(c *L3AllocCap) []byte {
	w := &recordWriter{}
	w.u32(36)
	w.u32(c.NumClasses)
	w.u32(c.NumWays)
	w.u32(c.WaySize)
	w.u64(c.WayContention)
	w.i32(int32(c.CDP))
	w.i32(int32(c.CDPOn))
	w.bool32(c.NonContiguousCBM)
	return w.buf
}

// EncodeL2CA builds the wire record for an L2 allocation capability.
func EncodeL2CA(c *L2AllocCap) []byte {
	l3 := L3AllocCap(*c)
	return EncodeL3CA(&l3)
}

// EncodeMBA builds the wire record for a memory bandwidth allocation
// capability.
func EncodeMBA(c *MBAAllocCap) []byte {
	w := &recordWriter{}
	w.u32(28)
	w.u32(c.NumClasses)
	w.u32(c.ThrottleMax)
	w.u32(c.ThrottleStep)
	w.bool32(c.IsLinear)
	w.i32(int32(c.Ctrl))
	w.i32(int32(c.CtrlOn))
	return w.buf
}
