package fio

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hashicorp/go-version"

	"github.com/mrostecki/btrfs-perf/target"
)

// Oldest fio whose json output carries per-job read bandwidth in the shape we
// parse.
const MinFioVersion = "2.1"

// CheckPrerequisites verifies the target can run the benchmark: the user is
// root (the read policy attribute is root-writable) and a recent enough fio
// is installed.
func CheckPrerequisites(ctx context.Context, t target.Target) error {
	out, err := t.RunCommand(ctx, "id -u", nil)
	if err != nil {
		return fmt.Errorf("checking user id: %w", err)
	}
	if strings.TrimSpace(string(out)) != "0" {
		return fmt.Errorf("the benchmark must be run as root")
	}

	out, err = t.RunCommand(ctx, "fio --version", nil)
	if err != nil {
		return fmt.Errorf("fio is not installed: %w", err)
	}

	raw := strings.TrimSpace(string(out))
	v, err := version.NewVersion(strings.TrimPrefix(raw, "fio-"))
	if err != nil {
		// Development builds report versions like fio-3.28-64-gabcd that may
		// not parse; presence is the important part.
		slog.Warn("cannot parse fio version", slog.String("version", raw))
		return nil
	}
	minimum := version.Must(version.NewVersion(MinFioVersion))
	if v.LessThan(minimum) {
		return fmt.Errorf("fio %s is too old, need at least %s", v, minimum)
	}
	return nil
}
