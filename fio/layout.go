package fio

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alitto/pond"
	"github.com/schollz/progressbar/v3"
)

// LayoutDataFiles creates the data files of the given jobs before any
// measured run, so the first benchmarked policy does not pay the file layout
// cost. Jobs sharing a data file are laid out once; distinct files are laid
// out concurrently. This happens outside any measurement, so the concurrency
// does not distort results.
func (r *Runner) LayoutDataFiles(ctx context.Context, jobs []JobDescriptor, progress bool) error {
	type layoutKey struct {
		filename string
		size     string
	}

	seen := map[layoutKey]JobDescriptor{}
	for _, job := range jobs {
		k := layoutKey{filename: job.filename(), size: job.Size}
		if prev, ok := seen[k]; !ok || job.NumJobs > prev.NumJobs {
			seen[k] = job
		}
	}

	if len(seen) == 0 {
		return nil
	}

	var bar *progressbar.ProgressBar
	if progress {
		bar = progressbar.Default(int64(len(seen)), "Laying out data files:")
	}

	var mu sync.Mutex
	var firstErr error

	pool := pond.New(len(seen), 0, pond.MinWorkers(len(seen)))
	for _, job := range seen {
		pool.Submit(func() {
			if bar != nil {
				defer bar.Add(1)
			}
			out, err := r.Target.RunCommand(ctx, r.command("--create_only=1 -"), bytes.NewReader(job.Render()))
			if err != nil {
				slog.Error("laying out data file failed",
					slog.String("filename", job.filename()),
					slog.String("error", err.Error()),
					slog.String("output", string(out)))
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("%w: laying out %s: %v", ErrExecution, job.filename(), err)
				}
				mu.Unlock()
			}
		})
	}
	pool.StopAndWait()

	return firstErr
}
