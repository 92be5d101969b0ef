// Package resctrl implements the pqos.Native capability provider on
// top of the Linux resctrl filesystem. It reads the read-only info/
// hierarchy once into an immutable snapshot and answers every query
// from that snapshot.
package resctrl

import (
	"errors"
	"log/slog"
	"os"

	"github.com/sameehj/pqoscap/pkg/pqos"
	"github.com/sameehj/pqoscap/pkg/system"
)

// Config points the provider at the platform files it reads. Zero
// values select the standard locations; tests point them at fixture
// trees.
type Config struct {
	// Root is the resctrl mountpoint. When empty it is discovered
	// from the mounts table.
	Root string
	// Mounts is the mounts table, default /proc/mounts.
	Mounts string
	// CPUInfo is the cpuinfo file, default /proc/cpuinfo.
	CPUInfo string
	// CacheDir is a per-cpu cache sysfs directory, default
	// /sys/devices/system/cpu/cpu0/cache.
	CacheDir string
}

// Provider serves capability queries from a resctrl snapshot. The
// snapshot is built once in CapGet and never mutated, so concurrent
// queries against the same descriptor are safe.
type Provider struct {
	cfg Config
	log *slog.Logger
}

func New(cfg Config) *Provider {
	if cfg.Mounts == "" {
		cfg.Mounts = "/proc/mounts"
	}
	if cfg.CPUInfo == "" {
		cfg.CPUInfo = "/proc/cpuinfo"
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = "/sys/devices/system/cpu/cpu0/cache"
	}
	return &Provider{cfg: cfg, log: slog.Default()}
}

// SetLogger replaces the provider's logger.
func (p *Provider) SetLogger(l *slog.Logger) {
	if l != nil {
		p.log = l
	}
}

type tripair struct {
	supported int32
	enabled   int32
}

// snapshot is the provider's Descriptor: one immutable view of the
// platform, built at CapGet time.
type snapshot struct {
	records map[pqos.CapType][]byte
	cos     map[pqos.CapType]uint32
	l3CDP   tripair
	l2CDP   tripair
	mbaCtrl tripair
}

func (p *Provider) CapGet() (pqos.Descriptor, pqos.Status) {
	snap, err := p.scan()
	if err != nil {
		p.log.Error("resctrl capability scan failed", "error", err)
		switch {
		case errors.Is(err, os.ErrPermission):
			return nil, pqos.StatusPerm
		case errors.Is(err, system.ErrNotMounted):
			return nil, pqos.StatusInit
		}
		return nil, pqos.StatusError
	}
	return snap, pqos.StatusOK
}

func (p *Provider) CapGetType(d pqos.Descriptor, t pqos.CapType) ([]byte, pqos.Status) {
	snap, ok := d.(*snapshot)
	if !ok {
		return nil, pqos.StatusParam
	}
	rec, ok := snap.records[t]
	if !ok {
		return nil, pqos.StatusResource
	}
	return rec, pqos.StatusOK
}

func (p *Provider) L3CosNum(d pqos.Descriptor) (uint32, pqos.Status) {
	return cosNum(d, pqos.CapL3CA)
}

func (p *Provider) L2CosNum(d pqos.Descriptor) (uint32, pqos.Status) {
	return cosNum(d, pqos.CapL2CA)
}

func (p *Provider) MBACosNum(d pqos.Descriptor) (uint32, pqos.Status) {
	return cosNum(d, pqos.CapMBA)
}

func cosNum(d pqos.Descriptor, t pqos.CapType) (uint32, pqos.Status) {
	snap, ok := d.(*snapshot)
	if !ok {
		return 0, pqos.StatusParam
	}
	n, ok := snap.cos[t]
	if !ok {
		return 0, pqos.StatusResource
	}
	return n, pqos.StatusOK
}

func (p *Provider) L3CDPEnabled(d pqos.Descriptor) (int32, int32, pqos.Status) {
	return cdpPair(d, pqos.CapL3CA)
}

func (p *Provider) L2CDPEnabled(d pqos.Descriptor) (int32, int32, pqos.Status) {
	return cdpPair(d, pqos.CapL2CA)
}

func cdpPair(d pqos.Descriptor, t pqos.CapType) (int32, int32, pqos.Status) {
	snap, ok := d.(*snapshot)
	if !ok {
		return 0, 0, pqos.StatusParam
	}
	if _, ok := snap.records[t]; !ok {
		return 0, 0, pqos.StatusResource
	}
	pair := snap.l3CDP
	if t == pqos.CapL2CA {
		pair = snap.l2CDP
	}
	return pair.supported, pair.enabled, pqos.StatusOK
}

func (p *Provider) MBACtrlEnabled(d pqos.Descriptor) (int32, int32, pqos.Status) {
	snap, ok := d.(*snapshot)
	if !ok {
		return 0, 0, pqos.StatusParam
	}
	if _, ok := snap.records[pqos.CapMBA]; !ok {
		return 0, 0, pqos.StatusResource
	}
	return snap.mbaCtrl.supported, snap.mbaCtrl.enabled, pqos.StatusOK
}
