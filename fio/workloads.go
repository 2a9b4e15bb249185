package fio

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// WorkloadInput is one entry of a workload override file: a json array of
// these replaces the four built-in workloads.
type WorkloadInput struct {
	Mode      string
	NumJobs   int
	Loops     int
	Size      string
	BlockSize string
	Filename  string
}

// DecodeWorkloads parses a workload override file. Entries may omit loops,
// size, blocksize and filename; numjobs defaults to 1.
func DecodeWorkloads(buf []byte) ([]JobDescriptor, error) {
	var raw []map[string]any
	if err := json.Unmarshal(buf, &raw); err != nil {
		return nil, fmt.Errorf("%w: parsing workloads file: %v", ErrInvalidSpec, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: workloads file contains no workloads", ErrInvalidSpec)
	}

	jobs := make([]JobDescriptor, 0, len(raw))
	for i, entry := range raw {
		input := &WorkloadInput{}
		if err := mapstructure.Decode(entry, input); err != nil {
			return nil, fmt.Errorf("%w: workload %d: %v", ErrInvalidSpec, i, err)
		}
		if input.NumJobs == 0 {
			input.NumJobs = 1
		}
		if input.Size == "" {
			input.Size = DefaultSize
		}
		j := JobDescriptor{
			Mode:      Mode(input.Mode),
			NumJobs:   input.NumJobs,
			Loops:     input.Loops,
			Size:      input.Size,
			BlockSize: input.BlockSize,
			Filename:  input.Filename,
		}
		if err := j.Validate(); err != nil {
			return nil, fmt.Errorf("workload %d: %w", i, err)
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}
