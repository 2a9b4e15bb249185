package fio

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrostecki/btrfs-perf/target/targettest"
)

func TestCheckPrerequisites(t *testing.T) {
	fake := targettest.New()
	fake.Script("id -u", targettest.CommandResponse{Output: []byte("0\n")})
	fake.Script("fio --version", targettest.CommandResponse{Output: []byte("fio-3.33\n")})

	assert.NoError(t, CheckPrerequisites(context.Background(), fake))
}

func TestCheckPrerequisitesNotRoot(t *testing.T) {
	fake := targettest.New()
	fake.Script("id -u", targettest.CommandResponse{Output: []byte("1000\n")})

	err := CheckPrerequisites(context.Background(), fake)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "root")
}

func TestCheckPrerequisitesNoFio(t *testing.T) {
	fake := targettest.New()
	fake.Script("id -u", targettest.CommandResponse{Output: []byte("0\n")})
	fake.Script("fio --version", targettest.CommandResponse{
		Output: []byte("sh: fio: command not found\n"),
		Err:    errors.New("exit status 127"),
	})

	err := CheckPrerequisites(context.Background(), fake)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not installed")
}

func TestCheckPrerequisitesOldFio(t *testing.T) {
	fake := targettest.New()
	fake.Script("id -u", targettest.CommandResponse{Output: []byte("0\n")})
	fake.Script("fio --version", targettest.CommandResponse{Output: []byte("fio-1.57\n")})

	err := CheckPrerequisites(context.Background(), fake)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too old")
}

func TestCheckPrerequisitesUnparseableVersion(t *testing.T) {
	fake := targettest.New()
	fake.Script("id -u", targettest.CommandResponse{Output: []byte("0\n")})
	fake.Script("fio --version", targettest.CommandResponse{Output: []byte("fio-git-snapshot\n")})

	// Presence is what matters; an odd version string only warns.
	assert.NoError(t, CheckPrerequisites(context.Background(), fake))
}
