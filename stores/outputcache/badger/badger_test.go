package badger

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/bsv-blockchain/go-bt/v2/bscript"
	"github.com/bsv-blockchain/outputcache/errors"
	"github.com/bsv-blockchain/outputcache/stores/outputcache"
	"github.com/bsv-blockchain/outputcache/stores/outputcache/tests"
	"github.com/bsv-blockchain/outputcache/ulogger"
	"github.com/bsv-blockchain/outputcache/util"
	"github.com/bsv-blockchain/outputcache/util/test"
	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ outputcache.Store = (*Badger)(nil)

func setup(t *testing.T, location outputcache.Location) *Badger {
	t.Helper()

	store, err := New(context.Background(), ulogger.TestLogger{}, test.CreateBaseTestSettings(), location)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close(context.Background())
	})

	return store
}

func TestBadgerInMemory(t *testing.T) {
	tests.Store(t, setup(t, outputcache.Ephemeral()))
}

func TestBadgerOnDisk(t *testing.T) {
	tests.Store(t, setup(t, outputcache.Durable(t.TempDir())))
}

func TestBadgerDurability(t *testing.T) {
	location := outputcache.Durable(filepath.Join(t.TempDir(), "outputs"))

	tests.Durability(t, func(t *testing.T) outputcache.Store {
		store, err := New(context.Background(), ulogger.TestLogger{}, test.CreateBaseTestSettings(), location)
		require.NoError(t, err)

		return store
	})
}

func TestBadgerClose(t *testing.T) {
	store := setup(t, outputcache.Ephemeral())

	tests.Close(t, store)

	status, _, err := store.Health(context.Background())
	require.Error(t, err)
	assert.Equal(t, 503, status)
}

func TestBadgerRefusesForeignData(t *testing.T) {
	dir := t.TempDir()

	db, err := badger.Open(badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	require.NoError(t, db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("foo"), []byte("bar"))
	}))
	require.NoError(t, db.Close())

	_, err = New(context.Background(), ulogger.TestLogger{}, test.CreateBaseTestSettings(), outputcache.Durable(dir))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStorageUnavailable))
}

func TestBadgerRefusesOtherVersion(t *testing.T) {
	dir := t.TempDir()

	db, err := badger.Open(badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	require.NoError(t, db.Update(func(txn *badger.Txn) error {
		return txn.Set(versionKey, []byte{0x00, 0x00, 0x00, 0x09})
	}))
	require.NoError(t, db.Close())

	_, err = New(context.Background(), ulogger.TestLogger{}, test.CreateBaseTestSettings(), outputcache.Durable(dir))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStorageUnavailable))
}

func TestBadgerLockedLocation(t *testing.T) {
	location := outputcache.Durable(t.TempDir())
	_ = setup(t, location)

	_, err := New(context.Background(), ulogger.TestLogger{}, test.CreateBaseTestSettings(), location)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStorageUnavailable))
}

func TestBadgerCorruptValue(t *testing.T) {
	store := setup(t, outputcache.Ephemeral())

	key := outputcache.NewOutputKey(tests.TxID, 1).Bytes()
	require.NoError(t, store.store.Update(func(txn *badger.Txn) error {
		return txn.Set(key, []byte{0x01, 0x02})
	}))

	_, found, err := store.Get(context.Background(), tests.TxID, 1)
	require.Error(t, err)
	assert.False(t, found)
	assert.True(t, errors.IsEncodingError(err))
	tests.RequireOutputData(t, err, tests.TxID, 1)
}

func TestBadgerLargeSpanIsFlushed(t *testing.T) {
	util.SkipLongTests(t)

	ctx := context.Background()
	store := setup(t, outputcache.Ephemeral())

	output := &outputcache.CachedOutput{
		Value:         1,
		LockingScript: bscript.NewFromBytes(bytes.Repeat([]byte{0x51}, 64*1024)),
		OutputType:    outputcache.OutputTypeUncolored,
	}

	const count = 400

	for i := uint32(0); i < count; i++ {
		require.NoError(t, store.Put(ctx, tests.TxHash, i, output))
	}

	for i := uint32(0); i < count; i += 50 {
		got, found, err := store.Get(ctx, tests.TxHash, i)
		require.NoError(t, err)
		require.True(t, found)
		assert.Len(t, got.ScriptBytes(), 64*1024)
	}

	require.NoError(t, store.Commit(ctx))
}
