// Package bench drives the policy benchmark loop and reduces per-worker
// bandwidth measurements into reportable results.
package bench

import (
	"errors"

	"github.com/mrostecki/btrfs-perf/fio"
)

// ErrNoMeasurements means a run produced zero measurements. The runner never
// returns an empty set without an error, so hitting this indicates a bug.
var ErrNoMeasurements = errors.New("bench: no measurements to aggregate")

// Result is the reduction of one run's worker bandwidths, in MiB/s. Sum is
// the reported aggregate for multi-worker runs: it is the total throughput
// the policy achieved across concurrent workers, which is what matters when
// comparing how policies scale.
type Result struct {
	Min float64
	Max float64
	Sum float64
}

// Aggregate reduces the measurements of one run to min, max and sum.
func Aggregate(ms []fio.Measurement) (Result, error) {
	if len(ms) == 0 {
		return Result{}, ErrNoMeasurements
	}
	res := Result{Min: ms[0].BandwidthMiBps, Max: ms[0].BandwidthMiBps}
	for _, m := range ms {
		if m.BandwidthMiBps < res.Min {
			res.Min = m.BandwidthMiBps
		}
		if m.BandwidthMiBps > res.Max {
			res.Max = m.BandwidthMiBps
		}
		res.Sum += m.BandwidthMiBps
	}
	return res, nil
}
