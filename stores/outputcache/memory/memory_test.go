package memory

import (
	"context"
	"testing"

	"github.com/bsv-blockchain/outputcache/stores/outputcache"
	"github.com/bsv-blockchain/outputcache/stores/outputcache/tests"
	"github.com/bsv-blockchain/outputcache/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ outputcache.Store = (*Memory)(nil)

func TestMemory(t *testing.T) {
	tests.Store(t, New(ulogger.TestLogger{}))
}

func TestMemoryClose(t *testing.T) {
	tests.Close(t, New(ulogger.TestLogger{}))
}

func TestMemoryHealthCountsOutputs(t *testing.T) {
	ctx := context.Background()
	m := New(ulogger.TestLogger{})

	require.NoError(t, m.Put(ctx, tests.TxID, 0, tests.IssuanceOutput))
	require.NoError(t, m.Put(ctx, tests.TxID, 0, tests.UncoloredOutput))
	require.NoError(t, m.Put(ctx, tests.TxID, 1, tests.UncoloredOutput))

	status, details, err := m.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, 200, status)
	assert.Equal(t, "Memory store holding 2 outputs", details)
}
