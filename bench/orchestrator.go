package bench

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/schollz/progressbar/v3"

	"github.com/mrostecki/btrfs-perf/btrfs"
	"github.com/mrostecki/btrfs-perf/fio"
	"github.com/mrostecki/btrfs-perf/report"
	"github.com/mrostecki/btrfs-perf/sysmon"
	"github.com/mrostecki/btrfs-perf/target"
)

// Orchestrator benchmarks every read policy of one filesystem under the four
// workload shapes. It is strictly sequential: overlapping runs would contend
// for the same devices and make the bandwidth comparison meaningless.
type Orchestrator struct {
	Target target.Target
	Runner *fio.Runner
	FSID   string

	Loops int    // 0 picks the fio default
	Size  string // "" picks the fio package default

	// Policies overrides policy discovery, benchmarking only the listed
	// policies in the given order. Nil means discover from sysfs.
	Policies []string

	// Workloads overrides the four built-in shapes. When set it must hold
	// exactly four descriptors filling the seqread/1, seqread/N, randread/1,
	// randread/N report slots in that order.
	Workloads []fio.JobDescriptor

	// Progress draws a progress bar over the policy x workload grid.
	Progress bool

	// Monitor, when non-nil, samples disk counters while each run is in
	// flight. Only useful for local targets.
	Monitor *sysmon.Monitor
}

type workload struct {
	name   string
	job    fio.JobDescriptor
	single bool
}

// BuildWorkloads returns the four workloads a policy will be measured under.
func (o *Orchestrator) BuildWorkloads() ([]fio.JobDescriptor, error) {
	if o.Workloads != nil {
		if len(o.Workloads) != 4 {
			return nil, fmt.Errorf("%w: expected 4 workloads, got %d", fio.ErrInvalidSpec, len(o.Workloads))
		}
		return o.Workloads, nil
	}

	seqSingle, err := fio.SeqReadSingle(o.Loops, o.Size)
	if err != nil {
		return nil, err
	}
	seqMulti, err := fio.SeqReadMulti(o.Loops, o.Size)
	if err != nil {
		return nil, err
	}
	randSingle, err := fio.RandReadSingle(o.Loops, o.Size)
	if err != nil {
		return nil, err
	}
	randMulti, err := fio.RandReadMulti(o.Loops, o.Size)
	if err != nil {
		return nil, err
	}
	return []fio.JobDescriptor{seqSingle, seqMulti, randSingle, randMulti}, nil
}

// Run benchmarks every policy returned by the filesystem, in that order, and
// returns one report row per policy. Duplicate policy names are benchmarked
// separately. An empty policy list yields zero rows and no error. Any run
// failure aborts the whole benchmark after the active policy has been
// restored; the returned error names the policy and workload that failed.
func (o *Orchestrator) Run(ctx context.Context) ([]report.Row, error) {
	jobs, err := o.BuildWorkloads()
	if err != nil {
		return nil, err
	}
	workloads := []workload{
		{name: "seqread/single", job: jobs[0], single: jobs[0].NumJobs == 1},
		{name: "seqread/multi", job: jobs[1], single: jobs[1].NumJobs == 1},
		{name: "randread/single", job: jobs[2], single: jobs[2].NumJobs == 1},
		{name: "randread/multi", job: jobs[3], single: jobs[3].NumJobs == 1},
	}

	policies := o.Policies
	if policies == nil {
		policies, err = btrfs.ListPolicies(o.Target, o.FSID)
		if err != nil {
			return nil, err
		}
	}

	var bar *progressbar.ProgressBar
	if o.Progress {
		bar = progressbar.Default(int64(len(policies)*len(workloads)), "Benchmarking:")
	}

	var rows []report.Row
	for _, policy := range policies {
		row, err := o.benchmarkPolicy(ctx, policy, workloads, bar)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if bar != nil {
		bar.Finish()
	}
	return rows, nil
}

func (o *Orchestrator) benchmarkPolicy(ctx context.Context, policy string, workloads []workload, bar *progressbar.ProgressBar) (report.Row, error) {
	slog.Debug("benchmarking policy", slog.String("policy", policy))

	restore, err := btrfs.SetPolicy(o.Target, o.FSID, policy)
	if err != nil {
		return report.Row{}, err
	}
	// Exactly one restoration attempt per successful activation, no matter
	// how the runs below end.
	defer restore()

	cells := make([]report.Cell, 0, len(workloads))
	for _, w := range workloads {
		slog.Debug("running workload",
			slog.String("policy", policy),
			slog.String("workload", w.name),
			slog.Int("numjobs", w.job.NumJobs))

		res, err := o.runWorkload(ctx, w.job)
		if err != nil {
			return report.Row{}, fmt.Errorf("policy %q: workload %s: %w", policy, w.name, err)
		}
		cells = append(cells, report.Cell{Single: w.single, Min: res.Min, Max: res.Max, Sum: res.Sum})
		if bar != nil {
			bar.Add(1)
		}
	}

	return report.Row{
		Policy:     policy,
		SeqSingle:  cells[0],
		SeqMulti:   cells[1],
		RandSingle: cells[2],
		RandMulti:  cells[3],
	}, nil
}

func (o *Orchestrator) runWorkload(ctx context.Context, job fio.JobDescriptor) (Result, error) {
	if o.Monitor != nil {
		o.Monitor.Start()
		defer o.Monitor.Stop()
	}

	ms, err := o.Runner.Run(ctx, job)
	if err != nil {
		return Result{}, err
	}
	return Aggregate(ms)
}
