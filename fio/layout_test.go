package fio

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrostecki/btrfs-perf/target/targettest"
)

func TestLayoutDataFilesDeduplicates(t *testing.T) {
	fake := targettest.New()
	fake.Script("fio ", targettest.CommandResponse{Output: []byte(`{"jobs":[]}`)})

	// The four default-shaped jobs share one data file, so one layout run.
	jobs := []JobDescriptor{
		{Mode: ModeSeqRead, NumJobs: 1, Size: "1G"},
		{Mode: ModeSeqRead, NumJobs: 4, Size: "1G"},
		{Mode: ModeRandRead, NumJobs: 1, Size: "1G"},
		{Mode: ModeRandRead, NumJobs: 4, Size: "1G"},
	}
	r := &Runner{Target: fake}
	require.NoError(t, r.LayoutDataFiles(context.Background(), jobs, false))
	require.Len(t, fake.Commands, 1)
	assert.Contains(t, fake.Commands[0], "--create_only=1")
}

func TestLayoutDataFilesDistinctFiles(t *testing.T) {
	fake := targettest.New()
	fake.Script("fio ", targettest.CommandResponse{Output: []byte(`{"jobs":[]}`)})

	jobs := []JobDescriptor{
		{Mode: ModeSeqRead, NumJobs: 1, Size: "1G"},
		{Mode: ModeSeqRead, NumJobs: 1, Size: "1G", Filename: "other"},
	}
	r := &Runner{Target: fake}
	require.NoError(t, r.LayoutDataFiles(context.Background(), jobs, false))
	assert.Len(t, fake.Commands, 2)
}

func TestLayoutDataFilesFailure(t *testing.T) {
	fake := targettest.New()
	fake.Script("fio ", targettest.CommandResponse{
		Output: []byte("fio: No space left on device\n"),
		Err:    errors.New("exit status 1"),
	})

	jobs := []JobDescriptor{{Mode: ModeSeqRead, NumJobs: 1, Size: "1G"}}
	r := &Runner{Target: fake}
	err := r.LayoutDataFiles(context.Background(), jobs, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExecution)
	assert.True(t, strings.Contains(err.Error(), "btrfs-raid1"))
}
