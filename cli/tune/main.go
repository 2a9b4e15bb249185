// roundrobin-tune searches for the best values of the sysfs knobs of the
// roundrobin raid1 read policy:
//
//	/sys/fs/btrfs/<fsid>/read_policies/roundrobin_nonrot_nonlocal_inc
//	/sys/fs/btrfs/<fsid>/read_policies/roundrobin_rot_nonlocal_inc
//
// It benchmarks every candidate value with fio and leaves the best one set.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/mrostecki/btrfs-perf/bench"
	"github.com/mrostecki/btrfs-perf/btrfs"
	"github.com/mrostecki/btrfs-perf/fio"
	"github.com/mrostecki/btrfs-perf/target"
)

// Candidate knob values are swept over [0, nIter).
const nIter = 10

type options struct {
	jobPath     string
	nonrot      bool
	rot         bool
	benchType   string
	multithread bool
	loops       int
	size        string
	timeout     time.Duration
}

func main() {
	debug := flag.Bool("debug", false, "Verbose debug log.")
	opts := options{}
	flag.StringVar(&opts.jobPath, "fio-job", "", "Path to the fio job to use. If not set, the default pre-defined job will be used.")
	flag.StringVar(&opts.jobPath, "j", "", "Shorthand for -fio-job.")
	flag.BoolVar(&opts.nonrot, "nonrotational", false, "Find the best value for "+btrfs.RRNonrotInc+".")
	flag.BoolVar(&opts.rot, "rotational", false, "Find the best value for "+btrfs.RRRotInc+".")
	flag.StringVar(&opts.benchType, "benchmark-type", "seqread", "Benchmark to tune for, seqread or randread.")
	flag.BoolVar(&opts.multithread, "multithread", false, "Run multithreaded benchmarks.")
	flag.IntVar(&opts.loops, "loops", 0, "Number of loops to run fio jobs in. 0 uses the fio job default.")
	flag.StringVar(&opts.size, "size", fio.DefaultSize, "Size of I/O to test.")
	flag.DurationVar(&opts.timeout, "timeout", 0, "Timeout for one fio invocation. 0 disables the timeout.")
	remote := flag.String("remote", "", "Tune a remote host instead of the local machine, as user@host[:port].")
	sshKey := flag.String("ssh-key", "", "Private key for --remote.")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: roundrobin-tune [flags] <mountpoint>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	if !opts.nonrot && !opts.rot {
		fmt.Fprintln(os.Stderr, "nothing to tune, pass -nonrotational and/or -rotational")
		os.Exit(2)
	}

	if err := run(flag.Arg(0), opts, *remote, *sshKey); err != nil {
		slog.Error("tuning failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func buildJob(opts options) (fio.JobDescriptor, error) {
	switch {
	case opts.benchType == "seqread" && opts.multithread:
		return fio.SeqReadMulti(opts.loops, opts.size)
	case opts.benchType == "seqread":
		return fio.SeqReadSingle(opts.loops, opts.size)
	case opts.benchType == "randread" && opts.multithread:
		return fio.RandReadMulti(opts.loops, opts.size)
	case opts.benchType == "randread":
		return fio.RandReadSingle(opts.loops, opts.size)
	}
	return fio.JobDescriptor{}, fmt.Errorf("unknown benchmark type %q", opts.benchType)
}

func run(mountpoint string, opts options, remote, sshKey string) error {
	ctx := context.Background()

	t, err := target.Parse(remote, sshKey)
	if err != nil {
		return err
	}

	if err := fio.CheckPrerequisites(ctx, t); err != nil {
		return err
	}

	fsid, err := btrfs.GetFSID(ctx, t, mountpoint)
	if err != nil {
		return err
	}

	runner := &fio.Runner{Target: t, Dir: mountpoint, Timeout: opts.timeout}

	var job fio.JobDescriptor
	if opts.jobPath == "" {
		job, err = buildJob(opts)
		if err != nil {
			return err
		}
		if err := runner.LayoutDataFiles(ctx, []fio.JobDescriptor{job}, false); err != nil {
			return err
		}
	}

	// Total bandwidth of one run with the currently set knob values.
	runOnce := func() (float64, error) {
		if err := btrfs.DropCaches(t); err != nil {
			return 0, err
		}
		var ms []fio.Measurement
		var err error
		if opts.jobPath != "" {
			ms, err = runner.RunFile(ctx, opts.jobPath)
		} else {
			ms, err = runner.Run(ctx, job)
		}
		if err != nil {
			return 0, err
		}
		res, err := bench.Aggregate(ms)
		if err != nil {
			return 0, err
		}
		return res.Sum, nil
	}

	knobs := []string{}
	if opts.nonrot {
		knobs = append(knobs, btrfs.RRNonrotInc)
	}
	if opts.rot {
		knobs = append(knobs, btrfs.RRRotInc)
	}
	for _, knob := range knobs {
		v, err := btrfs.ReadRRInc(t, fsid, knob)
		if err != nil {
			return err
		}
		slog.Debug("current knob value", slog.String("knob", knob), slog.Int("inc", v))
	}

	restore, err := btrfs.SetPolicy(t, fsid, "roundrobin")
	if err != nil {
		return err
	}
	defer restore()

	switch {
	case opts.nonrot && opts.rot:
		return tuneBoth(t, fsid, runOnce)
	case opts.nonrot:
		return tuneKnob(t, fsid, btrfs.RRNonrotInc, runOnce)
	default:
		return tuneKnob(t, fsid, btrfs.RRRotInc, runOnce)
	}
}

func tuneKnob(t target.Target, fsid, knob string, runOnce func() (float64, error)) error {
	best := 0
	bestBW := math.Inf(-1)

	for inc := 0; inc < nIter; inc++ {
		slog.Debug("checking knob value", slog.String("knob", knob), slog.Int("inc", inc))
		if err := btrfs.SetRRInc(t, fsid, knob, inc); err != nil {
			return err
		}
		bw, err := runOnce()
		if err != nil {
			return err
		}
		slog.Debug("bandwidth", slog.Float64("mibps", bw))
		if bw > bestBW {
			bestBW = bw
			best = inc
		}
	}

	fmt.Printf("The best %s value: %d, with bw: %.1f MiB/s\n", knob, best, bestBW)
	return btrfs.SetRRInc(t, fsid, knob, best)
}

func tuneBoth(t target.Target, fsid string, runOnce func() (float64, error)) error {
	bestNonrot, bestRot := 0, 0
	bestBW := math.Inf(-1)

	for nonrot := 0; nonrot < nIter; nonrot++ {
		if err := btrfs.SetRRInc(t, fsid, btrfs.RRNonrotInc, nonrot); err != nil {
			return err
		}
		for rot := 0; rot < nIter; rot++ {
			slog.Debug("checking knob values",
				slog.Int("nonrot_inc", nonrot),
				slog.Int("rot_inc", rot))
			if err := btrfs.SetRRInc(t, fsid, btrfs.RRRotInc, rot); err != nil {
				return err
			}
			bw, err := runOnce()
			if err != nil {
				return err
			}
			slog.Debug("bandwidth", slog.Float64("mibps", bw))
			if bw > bestBW {
				bestBW = bw
				bestNonrot = nonrot
				bestRot = rot
			}
		}
	}

	fmt.Printf("The best %s value: %d, the best %s value: %d, with bw: %.1f MiB/s\n",
		btrfs.RRNonrotInc, bestNonrot, btrfs.RRRotInc, bestRot, bestBW)
	if err := btrfs.SetRRInc(t, fsid, btrfs.RRNonrotInc, bestNonrot); err != nil {
		return err
	}
	return btrfs.SetRRInc(t, fsid, btrfs.RRRotInc, bestRot)
}
