package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCellString(t *testing.T) {
	single := Cell{Single: true, Min: 120.5, Max: 120.5, Sum: 120.5}
	assert.Equal(t, "120.5 MiB/s", single.String())

	multi := Cell{Min: 28.4, Max: 31.0, Sum: 119.4}
	assert.Equal(t, "119.4 MiB/s (28.4-31.0 MiB/s)", multi.String())
}

func TestRender(t *testing.T) {
	rows := []Row{
		{
			Policy:     "roundrobin",
			SeqSingle:  Cell{Single: true, Sum: 120.5},
			SeqMulti:   Cell{Min: 28.4, Max: 31.0, Sum: 119.4},
			RandSingle: Cell{Single: true, Sum: 95.0},
			RandMulti:  Cell{Min: 20.0, Max: 23.0, Sum: 86.0},
		},
		{
			Policy:     "devid",
			SeqSingle:  Cell{Single: true, Sum: 110.0},
			SeqMulti:   Cell{Min: 25.0, Max: 28.0, Sum: 106.0},
			RandSingle: Cell{Single: true, Sum: 90.0},
			RandMulti:  Cell{Min: 16.0, Max: 19.0, Sum: 70.0},
		},
	}

	var buf bytes.Buffer
	Render(&buf, rows, 4)

	out := buf.String()
	assert.Contains(t, out, "policy")
	assert.Contains(t, out, "seqread (4 threads)")
	assert.Contains(t, out, "randread (1 thread)")
	assert.Contains(t, out, "roundrobin")
	assert.Contains(t, out, "devid")
	assert.Contains(t, out, "119.4 MiB/s (28.4-31.0 MiB/s)")

	// Row order follows policy iteration order.
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("roundrobin")), bytes.Index(buf.Bytes(), []byte("devid")))
}

func TestRenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, nil, 1)
	assert.Contains(t, buf.String(), "policy")
}
