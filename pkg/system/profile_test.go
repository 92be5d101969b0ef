package system

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const sampleCPUInfo = `processor	: 0
vendor_id	: GenuineIntel
model name	: Intel(R) Xeon(R) Platinum 8260 CPU
flags		: fpu vme msr rdt_a cat_l3 cdp_l3 mba cqm_llc cqm_mbm_total
processor	: 1
flags		: fpu vme msr rdt_a cat_l3 cdp_l3 mba cqm_llc cqm_mbm_total
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestCPUFlags(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "cpuinfo", sampleCPUInfo)

	flags, err := CPUFlags(path)
	if err != nil {
		t.Fatalf("CPUFlags: %v", err)
	}
	for _, want := range []string{"rdt_a", "cat_l3", "cdp_l3", "mba"} {
		if !flags[want] {
			t.Errorf("missing flag %s", want)
		}
	}
	if flags["cat_l2"] {
		t.Error("unexpected cat_l2 flag")
	}
}

func TestCPUFlagsNoFlagsLine(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "cpuinfo", "processor\t: 0\n")
	if _, err := CPUFlags(path); err == nil {
		t.Fatal("expected error for cpuinfo without flags line")
	}
}

func TestFindResctrl(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mounts := "sysfs /sys sysfs rw 0 0\nresctrl /sys/fs/resctrl resctrl rw,relatime,cdp 0 0\n"
	path := writeFile(t, dir, "mounts", mounts)

	mountpoint, options, err := FindResctrl(path)
	if err != nil {
		t.Fatalf("FindResctrl: %v", err)
	}
	if mountpoint != "/sys/fs/resctrl" {
		t.Errorf("mountpoint = %q", mountpoint)
	}
	if options != "rw,relatime,cdp" {
		t.Errorf("options = %q", options)
	}
}

func TestFindResctrlNotMounted(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "mounts", "sysfs /sys sysfs rw 0 0\n")
	if _, _, err := FindResctrl(path); !errors.Is(err, ErrNotMounted) {
		t.Fatalf("expected ErrNotMounted, got %v", err)
	}
}

func TestDetectFrom(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cpuinfo := writeFile(t, dir, "cpuinfo", sampleCPUInfo)
	mounts := writeFile(t, dir, "mounts", "resctrl /sys/fs/resctrl resctrl rw 0 0\n")
	version := writeFile(t, dir, "version", "Linux version 5.15.0-91-generic (buildd@host) ...\n")

	profile, err := DetectFrom(cpuinfo, mounts, version)
	if err != nil {
		t.Fatalf("DetectFrom: %v", err)
	}
	if profile.Kernel != "5.15.0-91-generic" {
		t.Errorf("kernel = %q", profile.Kernel)
	}
	if !profile.HasFlag("cat_l3") || !profile.HasFlag("mba") {
		t.Errorf("flags = %v", profile.Flags)
	}
	if profile.HasFlag("cat_l2") {
		t.Errorf("unexpected cat_l2 in %v", profile.Flags)
	}
	if !profile.ResctrlMounted || profile.ResctrlPath != "/sys/fs/resctrl" {
		t.Errorf("resctrl state = %v %q", profile.ResctrlMounted, profile.ResctrlPath)
	}
}
