// Package btrfs talks to the btrfs sysfs surface of a target: filesystem
// identity, raid1 read policies and the roundrobin tunables.
package btrfs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/mrostecki/btrfs-perf/target"
)

var (
	// ErrDiscovery means the filesystem identity or its read policy attribute
	// could not be read (wrong filesystem, kernel without read policy
	// support, insufficient permissions).
	ErrDiscovery = errors.New("btrfs: policy discovery failed")

	// ErrPolicyWrite means the filesystem rejected a read policy value. The
	// active policy is unchanged when this is returned.
	ErrPolicyWrite = errors.New("btrfs: cannot set read policy")
)

// GetFSID returns the filesystem id of the btrfs filesystem mounted at
// mountpoint. It shells out to btrfs-progs, same as everything else that
// needs the uuid of a mounted filesystem.
func GetFSID(ctx context.Context, t target.Target, mountpoint string) (string, error) {
	out, err := t.RunCommand(ctx, fmt.Sprintf("btrfs filesystem show %q", mountpoint), nil)
	if err != nil {
		return "", fmt.Errorf("%w: btrfs filesystem show %s: %v (output: %s)", ErrDiscovery, mountpoint, err, out)
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	fields := strings.Fields(lines[0])
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: empty output from btrfs filesystem show %s", ErrDiscovery, mountpoint)
	}
	// First line looks like: Label: none  uuid: 1234-...
	return fields[len(fields)-1], nil
}

func policyPath(fsid string) string {
	return path.Join("/sys", "fs", "btrfs", fsid, "read_policies", "policy")
}

// ReadPolicies reads the read policy attribute of the filesystem, which looks
// like "pid [latency] roundrobin", and returns the active policy plus all
// valid ones in sysfs order. Duplicates, should the kernel ever report any,
// are passed through.
func ReadPolicies(t target.Target, fsid string) (active string, all []string, err error) {
	out, err := t.ReadFile(policyPath(fsid))
	if err != nil {
		return "", nil, fmt.Errorf("%w: reading %s: %v", ErrDiscovery, policyPath(fsid), err)
	}
	for _, p := range strings.Fields(string(out)) {
		if strings.HasPrefix(p, "[") && strings.HasSuffix(p, "]") {
			p = p[1 : len(p)-1]
			active = p
		}
		all = append(all, p)
	}
	if active == "" {
		return "", nil, fmt.Errorf("%w: no active policy in %q", ErrDiscovery, string(out))
	}
	return active, all, nil
}

// ListPolicies returns the read policies currently valid for the filesystem.
// The set is fetched fresh on every call.
func ListPolicies(t target.Target, fsid string) ([]string, error) {
	_, all, err := ReadPolicies(t, fsid)
	return all, err
}

// SetPolicy activates the given read policy and returns a restore function
// that puts the previously active policy back. The restore function must be
// called (usually deferred) exactly once; it never fails, a failed
// restoration is logged as a warning since the measurement it protected has
// already finished. If activation itself fails, nothing was changed and the
// restore function is nil.
func SetPolicy(t target.Target, fsid, policy string) (restore func(), err error) {
	prev, _, err := ReadPolicies(t, fsid)
	if err != nil {
		return nil, err
	}
	if err := t.WriteFile(policyPath(fsid), []byte(policy)); err != nil {
		return nil, fmt.Errorf("%w: %q on %s: %v", ErrPolicyWrite, policy, fsid, err)
	}
	restored := false
	return func() {
		if restored {
			return
		}
		restored = true
		if err := t.WriteFile(policyPath(fsid), []byte(prev)); err != nil {
			slog.Warn("restoring previous read policy failed",
				slog.String("fsid", fsid),
				slog.String("policy", prev),
				slog.String("error", err.Error()))
		}
	}, nil
}

// DropCaches drops the page cache so consecutive runs do not read from
// memory.
func DropCaches(t target.Target) error {
	return t.WriteFile(path.Join("/proc", "sys", "vm", "drop_caches"), []byte("1"))
}
