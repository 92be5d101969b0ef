package system

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
)

// ErrNotMounted is returned by FindResctrl when no resctrl filesystem
// appears in the mounts table.
var ErrNotMounted = errors.New("resctrl filesystem not mounted")

const (
	defaultCPUInfo = "/proc/cpuinfo"
	defaultMounts  = "/proc/mounts"
	defaultVersion = "/proc/version"
)

// rdtFlags are the /proc/cpuinfo feature flags relevant to platform
// QoS, in display order.
var rdtFlags = []string{
	"rdt_a",
	"cat_l3",
	"cdp_l3",
	"cat_l2",
	"cdp_l2",
	"mba",
	"cqm_llc",
	"cqm_mbm_total",
	"cqm_mbm_local",
}

// Profile describes the RDT-relevant state of the running platform.
type Profile struct {
	Kernel         string
	Arch           string
	Flags          []string
	ResctrlMounted bool
	ResctrlPath    string
}

// Detect gathers the platform profile from the usual proc paths.
func Detect() (*Profile, error) {
	return DetectFrom(defaultCPUInfo, defaultMounts, defaultVersion)
}

// DetectFrom is Detect with injectable proc file locations.
func DetectFrom(cpuinfo, mounts, version string) (*Profile, error) {
	p := &Profile{Arch: runtime.GOARCH}

	if data, err := os.ReadFile(version); err == nil {
		parts := strings.Fields(string(data))
		if len(parts) >= 3 {
			p.Kernel = parts[2]
		}
	}

	flags, err := CPUFlags(cpuinfo)
	if err != nil {
		return nil, fmt.Errorf("read cpu flags: %w", err)
	}
	for _, flag := range rdtFlags {
		if flags[flag] {
			p.Flags = append(p.Flags, flag)
		}
	}

	if path, _, err := FindResctrl(mounts); err == nil {
		p.ResctrlMounted = true
		p.ResctrlPath = path
	}

	return p, nil
}

// HasFlag reports whether the CPU advertises a feature flag.
func (p *Profile) HasFlag(name string) bool {
	for _, flag := range p.Flags {
		if flag == name {
			return true
		}
	}
	return false
}

// CPUFlags parses the flags line of a cpuinfo file into a set. Only
// the first processor entry is read; flags do not differ across
// cores on the platforms resctrl supports.
func CPUFlags(path string) (map[string]bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "flags") {
			continue
		}
		_, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		flags := make(map[string]bool)
		for _, flag := range strings.Fields(value) {
			flags[flag] = true
		}
		return flags, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("no flags line in %s", path)
}

// FindResctrl locates the resctrl filesystem in a mounts table and
// returns its mountpoint and mount options.
func FindResctrl(mountsPath string) (path, options string, err error) {
	file, err := os.Open(mountsPath)
	if err != nil {
		return "", "", err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 4 && fields[2] == "resctrl" {
			return fields[1], fields[3], nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", "", err
	}
	return "", "", ErrNotMounted
}
