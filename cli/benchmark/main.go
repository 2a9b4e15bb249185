// policies-benchmark runs fio on every available btrfs raid1 read policy of
// a mounted filesystem and prints a bandwidth comparison table.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mrostecki/btrfs-perf/bench"
	"github.com/mrostecki/btrfs-perf/btrfs"
	"github.com/mrostecki/btrfs-perf/fio"
	"github.com/mrostecki/btrfs-perf/report"
	"github.com/mrostecki/btrfs-perf/sysmon"
	"github.com/mrostecki/btrfs-perf/target"
)

func main() {
	debug := flag.Bool("debug", false, "Verbose debug log.")
	workloadsPath := flag.String("workloads", "", "Path to a json file with four workload descriptors overriding the built-in seqread/randread x single/multi grid.")
	policiesFlag := flag.String("policies", "", "Comma-separated subset of read policies to benchmark. All available policies by default.")
	loops := flag.Int("loops", 0, "Number of loops to run fio jobs in. 0 uses the fio job default.")
	size := flag.String("size", fio.DefaultSize, "Size of I/O to test.")
	timeout := flag.Duration("timeout", 0, "Timeout for one fio invocation. 0 disables the timeout.")
	noProgress := flag.Bool("no-progress", false, "Do not draw the progress bar.")
	remote := flag.String("remote", "", "Benchmark a remote host instead of the local machine, as user@host[:port].")
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
		fmt.Fprintln(os.Stderr, "usage: policies-benchmark [flags] <mountpoint>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	opts := options{
		mountpoint:    flag.Arg(0),
		workloadsPath: *workloadsPath,
		policies:      *policiesFlag,
		loops:         *loops,
		size:          *size,
		timeout:       *timeout,
		progress:      !*noProgress,
		remote:        *remote,
		sshKey:        *sshKey,
	}
	if err := run(opts); err != nil {
		slog.Error("benchmark failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

type options struct {
	mountpoint    string
	workloadsPath string
	policies      string
	loops         int
	size          string
	timeout       time.Duration
	progress      bool
	remote        string
	sshKey        string
}

func run(opts options) error {
	ctx := context.Background()

	t, err := target.Parse(opts.remote, opts.sshKey)
	if err != nil {
		return err
	}

	if err := fio.CheckPrerequisites(ctx, t); err != nil {
		return err
	}

	fsid, err := btrfs.GetFSID(ctx, t, opts.mountpoint)
	if err != nil {
		return err
	}
	slog.Debug("filesystem under test", slog.String("fsid", fsid))

	runner := &fio.Runner{Target: t, Dir: opts.mountpoint, Timeout: opts.timeout}
	orch := &bench.Orchestrator{
		Target:   t,
		Runner:   runner,
		FSID:     fsid,
		Loops:    opts.loops,
		Size:     opts.size,
		Progress: opts.progress,
	}
	if opts.remote == "" {
		orch.Monitor = sysmon.New()
	}
	if opts.policies != "" {
		orch.Policies = strings.Split(opts.policies, ",")
	}

	if opts.workloadsPath != "" {
		buf, err := os.ReadFile(opts.workloadsPath)
		if err != nil {
			return fmt.Errorf("reading workloads file: %w", err)
		}
		orch.Workloads, err = fio.DecodeWorkloads(buf)
		if err != nil {
			return err
		}
	}

	jobs, err := orch.BuildWorkloads()
	if err != nil {
		return err
	}
	if err := runner.LayoutDataFiles(ctx, jobs, opts.progress); err != nil {
		return err
	}

	rows, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	nthreads := jobs[1].NumJobs
	report.Render(os.Stdout, rows, nthreads)
	return nil
}
