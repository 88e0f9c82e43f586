package logger

import (
	"context"
	"testing"

	"github.com/bsv-blockchain/outputcache/stores/outputcache/memory"
	"github.com/bsv-blockchain/outputcache/stores/outputcache/tests"
	"github.com/bsv-blockchain/outputcache/ulogger"
	"github.com/bsv-blockchain/outputcache/util/test/mocklogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerPassesThrough(t *testing.T) {
	tests.Store(t, New(ulogger.TestLogger{}, memory.New(ulogger.TestLogger{})))
}

func TestLoggerLogsEveryCall(t *testing.T) {
	ctx := context.Background()
	log := mocklogger.NewTestLogger()

	store := New(log, memory.New(ulogger.TestLogger{}))

	require.NoError(t, store.Put(ctx, tests.TxID, 5, tests.IssuanceOutput))

	_, found, err := store.Get(ctx, tests.TxID, 5)
	require.NoError(t, err)
	require.True(t, found)

	_, found, err = store.Get(ctx, tests.TxID, 6)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, store.Commit(ctx))

	_, _, err = store.Health(ctx)
	require.NoError(t, err)

	require.NoError(t, store.Close(ctx))

	log.AssertNumberOfCalls(t, "Infof", 6)

	messages := log.Messages()
	require.Len(t, messages, 6)

	assert.Contains(t, messages[0], "[Put] key 7472616e73616374696f6e:5")
	assert.Contains(t, messages[0], "OutputType issuance")
	assert.Contains(t, messages[1], "found true")
	assert.Contains(t, messages[2], "found false")
	assert.Contains(t, messages[2], "output <nil>")
	assert.Contains(t, messages[3], "[Commit] err <nil>")
	assert.Contains(t, messages[4], "[Health] status 200")
	assert.Contains(t, messages[5], "[Close]")
	assert.Contains(t, messages[0], "called from logger.TestLoggerLogsEveryCall")
}
