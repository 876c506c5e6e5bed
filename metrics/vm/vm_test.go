package vm

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapter_WritePrometheus(t *testing.T) {
	a := New("rescache", "fonts")
	a.Hit()
	a.Miss()
	a.Miss()
	a.Load(2*time.Millisecond, nil)
	a.Load(time.Millisecond, errors.New("boom"))
	a.Size(3)

	var buf bytes.Buffer
	a.WritePrometheus(&buf)
	out := buf.String()

	require.NotEmpty(t, out)
	assert.Contains(t, out, `rescache_hits_total{cache="fonts"} 1`)
	assert.Contains(t, out, `rescache_misses_total{cache="fonts"} 2`)
	assert.Contains(t, out, `rescache_loads_total{cache="fonts",result="ok"} 1`)
	assert.Contains(t, out, `rescache_loads_total{cache="fonts",result="error"} 1`)
	assert.Contains(t, out, `rescache_size_entries{cache="fonts"} 3`)
}

func TestAdapter_EscapesCacheName(t *testing.T) {
	var a *Adapter
	require.NotPanics(t, func() { a = New("rescache", `ui "big", bold`) })
	a.Hit()

	var buf bytes.Buffer
	a.WritePrometheus(&buf)
	assert.Contains(t, buf.String(), `rescache_hits_total{cache="ui \"big\", bold"} 1`)
}
