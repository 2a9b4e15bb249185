package fio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mrostecki/btrfs-perf/target"
)

var (
	// ErrExecution means fio could not be run or produced nothing parseable.
	ErrExecution = errors.New("fio: execution failed")

	// ErrOutput means fio produced well-formed output that is inconsistent
	// with the job it was asked to run.
	ErrOutput = errors.New("fio: inconsistent output")
)

// Measurement is the read bandwidth achieved by one fio worker in one run.
type Measurement struct {
	JobName        string
	BandwidthMiBps float64
}

// Runner invokes fio on a target. The zero value runs "fio" from PATH with
// no timeout.
type Runner struct {
	Target  target.Target
	FioPath string
	// Dir is where fio runs, normally the mountpoint of the filesystem under
	// test. The job data files are created there.
	Dir string
	// Timeout bounds one whole fio invocation. Zero means no timeout.
	Timeout time.Duration
}

func (r *Runner) fioPath() string {
	if r.FioPath == "" {
		return "fio"
	}
	return r.FioPath
}

func (r *Runner) command(args string) string {
	cmd := fmt.Sprintf("%s --output-format=json %s", r.fioPath(), args)
	if r.Dir != "" {
		cmd = fmt.Sprintf("cd %q && %s", r.Dir, cmd)
	}
	return cmd
}

// Run executes the job and returns one measurement per fio worker, in job
// order, normalized to MiB/s. It returns exactly job.NumJobs measurements or
// an error; fio reporting any other number of workers is a misconfiguration,
// not something to paper over. No retries happen here, a benchmark must
// reflect first-attempt behavior.
func (r *Runner) Run(ctx context.Context, job JobDescriptor) ([]Measurement, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	slog.Debug("running fio",
		slog.String("mode", string(job.Mode)),
		slog.Int("numjobs", job.NumJobs),
		slog.String("size", job.Size))

	out, err := r.Target.RunCommand(ctx, r.command("-"), bytes.NewReader(job.Render()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v (output: %s)", ErrExecution, err, bytes.TrimSpace(out))
	}

	return parseOutput(out, job.NumJobs)
}

// RunFile executes a user-supplied fio job file. The worker count is whatever
// the file configures, so the returned measurements are only checked to be
// non-empty.
func (r *Runner) RunFile(ctx context.Context, path string) ([]Measurement, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	slog.Debug("running fio", slog.String("job", path))

	out, err := r.Target.RunCommand(ctx, r.command(fmt.Sprintf("%q", path)), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v (output: %s)", ErrExecution, err, bytes.TrimSpace(out))
	}

	return parseOutput(out, 0)
}

type fioOutput struct {
	Jobs []fioJob `json:"jobs"`
}

type fioJob struct {
	JobName string   `json:"jobname"`
	Read    fioStats `json:"read"`
}

type fioStats struct {
	// bw is KiB/s, bw_bytes is bytes/s. Older fio only reports bw.
	BW      *float64 `json:"bw"`
	BWBytes *float64 `json:"bw_bytes"`
}

func parseOutput(out []byte, numJobs int) ([]Measurement, error) {
	// fio may print option warnings before the json document.
	if i := bytes.IndexByte(out, '{'); i > 0 {
		out = out[i:]
	}

	var parsed fioOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decoding fio output: %v", ErrExecution, err)
	}
	if len(parsed.Jobs) == 0 {
		return nil, fmt.Errorf("%w: fio output contains no jobs", ErrExecution)
	}
	if numJobs > 0 && len(parsed.Jobs) != numJobs {
		return nil, fmt.Errorf("%w: expected %d workers, fio reported %d", ErrOutput, numJobs, len(parsed.Jobs))
	}

	measurements := make([]Measurement, 0, len(parsed.Jobs))
	for i, j := range parsed.Jobs {
		var mibps float64
		switch {
		case j.Read.BWBytes != nil:
			mibps = *j.Read.BWBytes / (1 << 20)
		case j.Read.BW != nil:
			mibps = *j.Read.BW / 1024
		default:
			return nil, fmt.Errorf("%w: worker %d (%s) has no read bandwidth", ErrOutput, i, j.JobName)
		}
		measurements = append(measurements, Measurement{JobName: j.JobName, BandwidthMiBps: mibps})
	}
	return measurements, nil
}
