// Package fio builds fio jobs for the read benchmarks and runs them on a
// target, turning fio's json output into bandwidth measurements.
package fio

import (
	"errors"
	"fmt"

	"github.com/shirou/gopsutil/v4/cpu"
)

const (
	DefaultLoops     = 3
	DefaultSize      = "10G"
	DefaultBlockSize = "64k"
	DefaultFilename  = "btrfs-raid1"
)

// ErrInvalidSpec means a job descriptor does not describe a runnable job.
var ErrInvalidSpec = errors.New("fio: invalid job spec")

type Mode string

const (
	ModeSeqRead  Mode = "read"
	ModeRandRead Mode = "randread"
)

// JobDescriptor describes one fio invocation. Treat it as immutable once
// built.
type JobDescriptor struct {
	Mode      Mode
	NumJobs   int
	Loops     int    // 0 means DefaultLoops
	Size      string // per-file I/O size, e.g. "10G"
	BlockSize string // "" means DefaultBlockSize
	Filename  string // data file relative to the mountpoint, "" means DefaultFilename
}

func (j JobDescriptor) Validate() error {
	if j.Mode != ModeSeqRead && j.Mode != ModeRandRead {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidSpec, j.Mode)
	}
	if j.NumJobs < 1 {
		return fmt.Errorf("%w: numjobs must be positive, got %d", ErrInvalidSpec, j.NumJobs)
	}
	if j.Loops < 0 {
		return fmt.Errorf("%w: loops must be positive, got %d", ErrInvalidSpec, j.Loops)
	}
	if j.Size == "" {
		return fmt.Errorf("%w: size must not be empty", ErrInvalidSpec)
	}
	return nil
}

func (j JobDescriptor) loops() int {
	if j.Loops == 0 {
		return DefaultLoops
	}
	return j.Loops
}

func (j JobDescriptor) blockSize() string {
	if j.BlockSize == "" {
		return DefaultBlockSize
	}
	return j.BlockSize
}

func (j JobDescriptor) filename() string {
	if j.Filename == "" {
		return DefaultFilename
	}
	return j.Filename
}

// Render serializes the descriptor into a fio job file.
func (j JobDescriptor) Render() []byte {
	return []byte(fmt.Sprintf(`[global]
name=btrfs-raid1
filename=%s
rw=%s
loops=%d
bs=%s
direct=0
numjobs=%d
time_based=0

[file1]
size=%s
ioengine=libaio
`, j.filename(), j.Mode, j.loops(), j.blockSize(), j.NumJobs, j.Size))
}

// DetectedParallelism returns the logical CPU count of the local machine, or
// 1 when it cannot be detected. Multi-threaded jobs run one fio worker per
// logical CPU.
func DetectedParallelism() int {
	n, err := cpu.Counts(true)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// SeqReadSingle builds the sequential read job with a single worker. A loops
// value of 0 picks the fio default.
func SeqReadSingle(loops int, size string) (JobDescriptor, error) {
	return newJob(ModeSeqRead, 1, loops, size)
}

// SeqReadMulti builds the sequential read job with one worker per logical
// CPU.
func SeqReadMulti(loops int, size string) (JobDescriptor, error) {
	return newJob(ModeSeqRead, DetectedParallelism(), loops, size)
}

// RandReadSingle builds the random read job with a single worker.
func RandReadSingle(loops int, size string) (JobDescriptor, error) {
	return newJob(ModeRandRead, 1, loops, size)
}

// RandReadMulti builds the random read job with one worker per logical CPU.
func RandReadMulti(loops int, size string) (JobDescriptor, error) {
	return newJob(ModeRandRead, DetectedParallelism(), loops, size)
}

func newJob(mode Mode, numJobs, loops int, size string) (JobDescriptor, error) {
	if size == "" {
		size = DefaultSize
	}
	j := JobDescriptor{Mode: mode, NumJobs: numJobs, Loops: loops, Size: size}
	if err := j.Validate(); err != nil {
		return JobDescriptor{}, err
	}
	return j, nil
}
