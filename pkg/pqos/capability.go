// Package pqos reads Platform Quality-of-Service (Intel RDT) hardware
// capabilities through a native provider: which monitoring and
// allocation features the platform supports and their configuration
// limits. It is read-only; it never changes allocation state.
package pqos

import "fmt"

// EventType identifies a resource monitoring event.
type EventType uint32

const (
	EventL3Occupancy EventType = 0x1
	EventLocalMemBW  EventType = 0x2
	EventTotalMemBW  EventType = 0x4
	EventRemoteMemBW EventType = 0x8
	EventLLCMisses   EventType = 0x4000
	EventIPC         EventType = 0x8000
)

func (e EventType) String() string {
	switch e {
	case EventL3Occupancy:
		return "l3_occup"
	case EventLocalMemBW:
		return "lmem_bw"
	case EventTotalMemBW:
		return "tmem_bw"
	case EventRemoteMemBW:
		return "rmem_bw"
	case EventLLCMisses:
		return "llc_miss"
	case EventIPC:
		return "ipc"
	}
	return fmt.Sprintf("event(0x%x)", uint32(e))
}

// MarshalYAML renders the event by name for display consumers.
func (e EventType) MarshalYAML() (interface{}, error) {
	return e.String(), nil
}

// MarshalJSON renders the event by name, same as the YAML form.
func (e EventType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + e.String() + `"`), nil
}

// Capability is implemented by every decoded capability object. Each
// object is an immutable snapshot taken at query time and owned by
// the caller.
type Capability interface {
	Type() CapType
}

// MonitorEvent describes one supported monitoring event.
type MonitorEvent struct {
	Type          EventType `yaml:"type" json:"type"`
	MaxRMID       uint32    `yaml:"max_rmid" json:"max_rmid"`
	ScaleFactor   uint32    `yaml:"scale_factor" json:"scale_factor"`
	CounterLength uint32    `yaml:"counter_length" json:"counter_length"`
}

// MonitoringCap describes resource monitoring (CMT/MBM) support.
type MonitoringCap struct {
	MemSize uint32         `yaml:"mem_size" json:"mem_size"`
	MaxRMID uint32         `yaml:"max_rmid" json:"max_rmid"`
	L3Size  uint64         `yaml:"l3_size" json:"l3_size"`
	Events  []MonitorEvent `yaml:"events" json:"events"`
}

func (*MonitoringCap) Type() CapType { return CapMon }

// L3AllocCap describes L3 cache allocation (CAT) support.
type L3AllocCap struct {
	MemSize          uint32   `yaml:"mem_size" json:"mem_size"`
	NumClasses       uint32   `yaml:"num_classes" json:"num_classes"`
	NumWays          uint32   `yaml:"num_ways" json:"num_ways"`
	WaySize          uint32   `yaml:"way_size" json:"way_size"`
	WayContention    uint64   `yaml:"way_contention" json:"way_contention"`
	CDP              TriState `yaml:"cdp" json:"cdp"`
	CDPOn            TriState `yaml:"cdp_on" json:"cdp_on"`
	NonContiguousCBM bool     `yaml:"non_contiguous_cbm" json:"non_contiguous_cbm"`
}

func (*L3AllocCap) Type() CapType { return CapL3CA }

// L2AllocCap describes L2 cache allocation support. The shape matches
// L3AllocCap but the two remain distinct types so a decoded object
// always knows its own category.
type L2AllocCap struct {
	MemSize          uint32   `yaml:"mem_size" json:"mem_size"`
	NumClasses       uint32   `yaml:"num_classes" json:"num_classes"`
	NumWays          uint32   `yaml:"num_ways" json:"num_ways"`
	WaySize          uint32   `yaml:"way_size" json:"way_size"`
	WayContention    uint64   `yaml:"way_contention" json:"way_contention"`
	CDP              TriState `yaml:"cdp" json:"cdp"`
	CDPOn            TriState `yaml:"cdp_on" json:"cdp_on"`
	NonContiguousCBM bool     `yaml:"non_contiguous_cbm" json:"non_contiguous_cbm"`
}

func (*L2AllocCap) Type() CapType { return CapL2CA }

// MBAAllocCap describes memory bandwidth allocation support.
// IsLinear is a plain boolean in the native contract (exactly 1 means
// linear), unlike the Ctrl pair which is tri-state.
type MBAAllocCap struct {
	MemSize      uint32   `yaml:"mem_size" json:"mem_size"`
	NumClasses   uint32   `yaml:"num_classes" json:"num_classes"`
	ThrottleMax  uint32   `yaml:"throttle_max" json:"throttle_max"`
	ThrottleStep uint32   `yaml:"throttle_step" json:"throttle_step"`
	IsLinear     bool     `yaml:"is_linear" json:"is_linear"`
	Ctrl         TriState `yaml:"ctrl" json:"ctrl"`
	CtrlOn       TriState `yaml:"ctrl_on" json:"ctrl_on"`
}

func (*MBAAllocCap) Type() CapType { return CapMBA }
