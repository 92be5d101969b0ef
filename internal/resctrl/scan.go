package resctrl

import (
	"fmt"
	"math/bits"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sameehj/pqoscap/pkg/pqos"
	"github.com/sameehj/pqoscap/pkg/system"
)

// MBM counters are at least 24 bits wide on every platform resctrl
// supports; the filesystem does not expose the exact width.
const mbmCounterWidth = 24

func (p *Provider) scan() (*snapshot, error) {
	root := p.cfg.Root
	var mountOpts string
	if root == "" {
		var err error
		root, mountOpts, err = system.FindResctrl(p.cfg.Mounts)
		if err != nil {
			return nil, err
		}
	} else if mp, opts, err := system.FindResctrl(p.cfg.Mounts); err == nil && mp == root {
		mountOpts = opts
	}
	if _, err := os.Stat(root); err != nil {
		return nil, err
	}

	flags, err := system.CPUFlags(p.cfg.CPUInfo)
	if err != nil {
		p.log.Warn("cpuinfo unavailable, CDP support reported as unknown", "error", err)
		flags = nil
	}

	snap := &snapshot{
		records: make(map[pqos.CapType][]byte),
		cos:     make(map[pqos.CapType]uint32),
	}
	info := filepath.Join(root, "info")

	if err := p.scanCache(info, 3, flags, snap); err != nil {
		return nil, err
	}
	if err := p.scanCache(info, 2, flags, snap); err != nil {
		return nil, err
	}
	if err := p.scanMBA(info, mountOpts, snap); err != nil {
		return nil, err
	}
	if err := p.scanMon(info, snap); err != nil {
		return nil, err
	}

	if len(snap.records) == 0 {
		return nil, fmt.Errorf("no capability directories under %s", info)
	}
	return snap, nil
}

// scanCache reads one cache allocation level (L3 or L2). When CDP is
// enabled the kernel replaces the plain info directory with CODE and
// DATA variants, so presence of the CODE directory doubles as the
// enablement signal.
func (p *Provider) scanCache(info string, level int, flags map[string]bool, snap *snapshot) error {
	base := fmt.Sprintf("L%d", level)
	dir := filepath.Join(info, base)
	cdpOn := dirExists(filepath.Join(info, base+"CODE"))
	if cdpOn {
		dir = filepath.Join(info, base+"CODE")
	}
	if !dirExists(dir) {
		return nil
	}

	numClosids, err := paramUint(dir, "num_closids")
	if err != nil {
		return fmt.Errorf("%s: %w", base, err)
	}
	cbm, err := paramHex(dir, "cbm_mask")
	if err != nil {
		return fmt.Errorf("%s: %w", base, err)
	}
	shareable := optionalHex(dir, "shareable_bits")
	sparse := optionalUint(dir, "sparse_masks")

	numWays := uint32(bits.OnesCount64(cbm))
	var waySize uint32
	cacheBytes, err := cacheSize(p.cfg.CacheDir, level)
	if err != nil {
		p.log.Debug("cache size unavailable", "level", level, "error", err)
	} else if numWays > 0 {
		waySize = uint32(cacheBytes / uint64(numWays))
	}

	var cdp, cdpEnabled int32
	cdpFlag := fmt.Sprintf("cdp_l%d", level)
	switch {
	case cdpOn:
		cdp, cdpEnabled = 1, 1
	case flags == nil:
		cdp, cdpEnabled = -1, 0
	case flags[cdpFlag]:
		cdp, cdpEnabled = 1, 0
	default:
		cdp, cdpEnabled = 0, 0
	}

	cap3 := &pqos.L3AllocCap{
		NumClasses:       uint32(numClosids),
		NumWays:          numWays,
		WaySize:          waySize,
		WayContention:    shareable,
		CDP:              pqos.TriState(cdp),
		CDPOn:            pqos.TriState(cdpEnabled),
		NonContiguousCBM: sparse == 1,
	}

	if level == 3 {
		snap.records[pqos.CapL3CA] = pqos.EncodeL3CA(cap3)
		snap.cos[pqos.CapL3CA] = cap3.NumClasses
		snap.l3CDP = tripair{supported: cdp, enabled: cdpEnabled}
	} else {
		cap2 := pqos.L2AllocCap(*cap3)
		snap.records[pqos.CapL2CA] = pqos.EncodeL2CA(&cap2)
		snap.cos[pqos.CapL2CA] = cap2.NumClasses
		snap.l2CDP = tripair{supported: cdp, enabled: cdpEnabled}
	}
	return nil
}

func (p *Provider) scanMBA(info, mountOpts string, snap *snapshot) error {
	dir := filepath.Join(info, "MB")
	if !dirExists(dir) {
		return nil
	}

	numClosids, err := paramUint(dir, "num_closids")
	if err != nil {
		return fmt.Errorf("MB: %w", err)
	}
	gran, err := paramUint(dir, "bandwidth_gran")
	if err != nil {
		return fmt.Errorf("MB: %w", err)
	}
	minBw, err := paramUint(dir, "min_bandwidth")
	if err != nil {
		return fmt.Errorf("MB: %w", err)
	}
	linear := optionalUint(dir, "delay_linear") == 1

	var throttleMax uint32
	if minBw <= 100 {
		throttleMax = uint32(100 - minBw)
	}

	// The mba_MBps mount option is the only controller signal resctrl
	// gives us; without it, support stays unknown rather than false.
	ctrl := tripair{supported: -1, enabled: 0}
	if hasMountOption(mountOpts, "mba_MBps") {
		ctrl = tripair{supported: 1, enabled: 1}
	}

	c := &pqos.MBAAllocCap{
		NumClasses:   uint32(numClosids),
		ThrottleMax:  throttleMax,
		ThrottleStep: uint32(gran),
		IsLinear:     linear,
		Ctrl:         pqos.TriState(ctrl.supported),
		CtrlOn:       pqos.TriState(ctrl.enabled),
	}
	snap.records[pqos.CapMBA] = pqos.EncodeMBA(c)
	snap.cos[pqos.CapMBA] = c.NumClasses
	snap.mbaCtrl = ctrl
	return nil
}

func (p *Provider) scanMon(info string, snap *snapshot) error {
	dir := filepath.Join(info, "L3_MON")
	if !dirExists(dir) {
		return nil
	}

	numRmids, err := paramUint(dir, "num_rmids")
	if err != nil {
		return fmt.Errorf("L3_MON: %w", err)
	}
	features, err := paramString(dir, "mon_features")
	if err != nil {
		return fmt.Errorf("L3_MON: %w", err)
	}

	var maxRMID uint32
	if numRmids > 0 {
		maxRMID = uint32(numRmids - 1)
	}

	var events []pqos.MonitorEvent
	for _, feature := range strings.Fields(features) {
		ev := pqos.MonitorEvent{MaxRMID: maxRMID, ScaleFactor: 1}
		switch feature {
		case "llc_occupancy":
			ev.Type = pqos.EventL3Occupancy
		case "mbm_total_bytes":
			ev.Type = pqos.EventTotalMemBW
			ev.CounterLength = mbmCounterWidth
		case "mbm_local_bytes":
			ev.Type = pqos.EventLocalMemBW
			ev.CounterLength = mbmCounterWidth
		default:
			p.log.Debug("unrecognized monitoring feature", "feature", feature)
			continue
		}
		events = append(events, ev)
	}

	l3Size, err := cacheSize(p.cfg.CacheDir, 3)
	if err != nil {
		p.log.Debug("L3 size unavailable", "error", err)
	}

	c := &pqos.MonitoringCap{
		MaxRMID: maxRMID,
		L3Size:  l3Size,
		Events:  events,
	}
	snap.records[pqos.CapMon] = pqos.EncodeMon(c)
	return nil
}

func dirExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

func paramString(dir, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func paramUint(dir, name string) (uint64, error) {
	s, err := paramString(dir, name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return v, nil
}

func paramHex(dir, name string) (uint64, error) {
	s, err := paramString(dir, name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return v, nil
}

func optionalUint(dir, name string) uint64 {
	v, err := paramUint(dir, name)
	if err != nil {
		return 0
	}
	return v
}

func optionalHex(dir, name string) uint64 {
	v, err := paramHex(dir, name)
	if err != nil {
		return 0
	}
	return v
}

func hasMountOption(options, want string) bool {
	for _, opt := range strings.Split(options, ",") {
		if opt == want {
			return true
		}
	}
	return false
}

// cacheSize reads the total size of the given cache level from the
// per-cpu cache sysfs tree ("36864K" style values).
func cacheSize(cacheDir string, level int) (uint64, error) {
	s, err := paramString(filepath.Join(cacheDir, fmt.Sprintf("index%d", level)), "size")
	if err != nil {
		return 0, err
	}
	mult := uint64(1)
	switch {
	case strings.HasSuffix(s, "K"):
		mult = 1024
		s = strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		mult = 1024 * 1024
		s = strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "G"):
		mult = 1024 * 1024 * 1024
		s = strings.TrimSuffix(s, "G")
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse cache size %q: %w", s, err)
	}
	return v * mult, nil
}
