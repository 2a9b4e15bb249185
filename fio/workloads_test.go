package fio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeWorkloads(t *testing.T) {
	buf := []byte(`[
		{"mode": "read", "size": "1G"},
		{"mode": "read", "numjobs": 8, "loops": 2, "size": "1G"},
		{"mode": "randread", "size": "1G", "blocksize": "4k"},
		{"mode": "randread", "numjobs": 8, "size": "1G", "filename": "other"}
	]`)

	jobs, err := DecodeWorkloads(buf)
	require.NoError(t, err)
	require.Len(t, jobs, 4)

	assert.Equal(t, ModeSeqRead, jobs[0].Mode)
	assert.Equal(t, 1, jobs[0].NumJobs)
	assert.Equal(t, 8, jobs[1].NumJobs)
	assert.Equal(t, 2, jobs[1].Loops)
	assert.Equal(t, "4k", jobs[2].BlockSize)
	assert.Equal(t, "other", jobs[3].Filename)
}

func TestDecodeWorkloadsDefaultsSize(t *testing.T) {
	jobs, err := DecodeWorkloads([]byte(`[{"mode": "read"}]`))
	require.NoError(t, err)
	assert.Equal(t, DefaultSize, jobs[0].Size)
}

func TestDecodeWorkloadsBadMode(t *testing.T) {
	_, err := DecodeWorkloads([]byte(`[{"mode": "write", "size": "1G"}]`))
	assert.ErrorIs(t, err, ErrInvalidSpec)
}

func TestDecodeWorkloadsEmpty(t *testing.T) {
	_, err := DecodeWorkloads([]byte(`[]`))
	assert.ErrorIs(t, err, ErrInvalidSpec)
}

func TestDecodeWorkloadsNotJSON(t *testing.T) {
	_, err := DecodeWorkloads([]byte(`rw=read`))
	assert.ErrorIs(t, err, ErrInvalidSpec)
}
