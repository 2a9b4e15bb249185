package btrfs

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/mrostecki/btrfs-perf/target"
)

// Tunables of the roundrobin read policy.
const (
	// Penalty value for non-rotational disks.
	RRNonrotInc = "roundrobin_nonrot_nonlocal_inc"
	// Penalty value for rotational disks.
	RRRotInc = "roundrobin_rot_nonlocal_inc"
)

func rrIncPath(fsid, knob string) string {
	return path.Join("/sys", "fs", "btrfs", fsid, "read_policies", knob)
}

// ReadRRInc reads the current value of a roundrobin penalty knob.
func ReadRRInc(t target.Target, fsid, knob string) (int, error) {
	out, err := t.ReadFile(rrIncPath(fsid, knob))
	if err != nil {
		return 0, fmt.Errorf("%w: reading %s: %v", ErrDiscovery, rrIncPath(fsid, knob), err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return 0, fmt.Errorf("%w: %s contains %q: %v", ErrDiscovery, knob, out, err)
	}
	return v, nil
}

// SetRRInc sets a roundrobin penalty knob.
func SetRRInc(t target.Target, fsid, knob string, inc int) error {
	if err := t.WriteFile(rrIncPath(fsid, knob), []byte(strconv.Itoa(inc))); err != nil {
		return fmt.Errorf("%w: %s=%d on %s: %v", ErrPolicyWrite, knob, inc, fsid, err)
	}
	return nil
}
