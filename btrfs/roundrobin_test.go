package btrfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrostecki/btrfs-perf/target/targettest"
)

func TestReadRRInc(t *testing.T) {
	fake := targettest.New()
	fake.SetFile("/sys/fs/btrfs/"+testFSID+"/read_policies/"+RRNonrotInc, []byte("3\n"))

	v, err := ReadRRInc(fake, testFSID, RRNonrotInc)
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestReadRRIncMissing(t *testing.T) {
	fake := targettest.New()

	_, err := ReadRRInc(fake, testFSID, RRRotInc)
	assert.ErrorIs(t, err, ErrDiscovery)
}

func TestSetRRInc(t *testing.T) {
	fake := targettest.New()
	path := "/sys/fs/btrfs/" + testFSID + "/read_policies/" + RRRotInc
	fake.SetFile(path, []byte("0\n"))

	require.NoError(t, SetRRInc(fake, testFSID, RRRotInc, 7))
	assert.Equal(t, []byte("7"), fake.File(path))
}

func TestSetRRIncMissingKnob(t *testing.T) {
	fake := targettest.New()

	err := SetRRInc(fake, testFSID, RRNonrotInc, 1)
	assert.ErrorIs(t, err, ErrPolicyWrite)
}
