// Package tests holds the behaviour every outputcache.Store backend must show. Each
// backend's own tests open a store and hand it to these functions.
package tests

import (
	"bytes"
	"context"
	"encoding/hex"
	"math"
	"net/http"
	"testing"

	"github.com/bsv-blockchain/go-bt/v2/bscript"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/outputcache/errors"
	"github.com/bsv-blockchain/outputcache/stores/outputcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Opener opens a fresh session on the same location every time it is called.
type Opener func(t *testing.T) outputcache.Store

var (
	TxID = []byte("transaction")

	hash, _ = chainhash.NewHashFromStr("5e3bc5947f48cec766090aa17f309fd16259de029dcef5d306b514848c9687c7")
	// TxHash is a real 32 byte transaction id, as most callers will use.
	TxHash = hash.CloneBytes()

	IssuanceOutput = &outputcache.CachedOutput{
		Value:         150,
		LockingScript: bscript.NewFromBytes([]byte("abcd")),
		AssetAddress:  []byte("1234"),
		AssetQuantity: 75,
		OutputType:    outputcache.OutputTypeIssuance,
	}

	UncoloredOutput = &outputcache.CachedOutput{
		Value:         100,
		LockingScript: bscript.NewFromBytes([]byte("abcd")),
		AssetQuantity: 0,
		OutputType:    outputcache.OutputTypeUncolored,
	}

	MaxOutput = &outputcache.CachedOutput{
		Value:         math.MaxInt64,
		LockingScript: bscript.NewFromBytes(bytes.Repeat([]byte{0x51}, 16384)),
		AssetAddress:  []byte("1234"),
		AssetQuantity: math.MaxInt64,
		OutputType:    outputcache.OutputTypeTransfer,
	}
)

// Store runs every single-session test against db. The sub tests use distinct keys
// so they can share one store.
func Store(t *testing.T, db outputcache.Store) {
	t.Run("scenario issuance round trip", func(t *testing.T) {
		ScenarioIssuance(t, db)
	})

	t.Run("scenario issuance round trip after commit", func(t *testing.T) {
		ScenarioIssuanceCommitted(t, db)
	})

	t.Run("scenario uncolored keeps absent address", func(t *testing.T) {
		ScenarioUncolored(t, db)
	})

	t.Run("scenario maximum values", func(t *testing.T) {
		ScenarioMaximumValues(t, db)
	})

	t.Run("scenario miss", func(t *testing.T) {
		ScenarioMiss(t, db)
	})

	t.Run("round trip", func(t *testing.T) {
		RoundTrip(t, db)
	})

	t.Run("overwrite", func(t *testing.T) {
		Overwrite(t, db)
	})

	t.Run("pre commit visibility", func(t *testing.T) {
		PreCommitVisibility(t, db)
	})

	t.Run("commit idempotent", func(t *testing.T) {
		CommitIdempotent(t, db)
	})

	t.Run("txid lengths", func(t *testing.T) {
		TxIDLengths(t, db)
	})

	t.Run("no aliasing", func(t *testing.T) {
		NoAliasing(t, db)
	})

	t.Run("invalid output", func(t *testing.T) {
		NilOutput(t, db)
	})

	t.Run("health", func(t *testing.T) {
		Health(t, db)
	})
}

func ScenarioIssuance(t *testing.T, db outputcache.Store) {
	ctx := context.Background()

	require.NoError(t, db.Put(ctx, TxID, 5, IssuanceOutput))

	requireOutput(t, db, TxID, 5, IssuanceOutput)
}

func ScenarioIssuanceCommitted(t *testing.T, db outputcache.Store) {
	ctx := context.Background()

	require.NoError(t, db.Put(ctx, TxID, 6, IssuanceOutput))
	require.NoError(t, db.Commit(ctx))

	requireOutput(t, db, TxID, 6, IssuanceOutput)
}

func ScenarioUncolored(t *testing.T, db outputcache.Store) {
	ctx := context.Background()

	require.NoError(t, db.Put(ctx, TxID, 7, UncoloredOutput))

	output := requireOutput(t, db, TxID, 7, UncoloredOutput)
	assert.Nil(t, output.AssetAddress, "absent asset address must not come back as empty bytes")
	assert.False(t, output.HasAssetAddress())
}

func ScenarioMaximumValues(t *testing.T, db outputcache.Store) {
	ctx := context.Background()

	require.NoError(t, db.Put(ctx, TxID, 8, MaxOutput))

	output := requireOutput(t, db, TxID, 8, MaxOutput)
	assert.Equal(t, uint64(math.MaxInt64), output.Value)
	assert.Equal(t, uint64(math.MaxInt64), output.AssetQuantity)
	assert.Len(t, output.ScriptBytes(), 16384)
}

func ScenarioMiss(t *testing.T, db outputcache.Store) {
	output, found, err := db.Get(context.Background(), []byte("untouched"), 0)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, output)
}

func RoundTrip(t *testing.T, db outputcache.Store) {
	ctx := context.Background()

	outputs := []*outputcache.CachedOutput{
		IssuanceOutput,
		UncoloredOutput,
		MaxOutput,
		{
			Value:         1,
			LockingScript: bscript.NewFromBytes([]byte{}),
			AssetAddress:  []byte{},
			AssetQuantity: 1,
			OutputType:    outputcache.OutputTypeTransfer,
		},
		{
			Value:         0,
			LockingScript: bscript.NewFromBytes([]byte{0x6a, 0x02, 0x4f, 0x41}),
			AssetAddress:  []byte{0x00, 0x00},
			AssetQuantity: 0,
			OutputType:    outputcache.OutputTypeMarkerOutput,
		},
		{
			Value:         math.MaxUint64,
			LockingScript: bscript.NewFromBytes([]byte{0x00}),
			AssetAddress:  []byte{0xff},
			AssetQuantity: math.MaxUint64,
			OutputType:    outputcache.OutputTypeIssuance,
		},
	}

	for i, output := range outputs {
		require.NoError(t, db.Put(ctx, TxHash, uint32(i), output))
	}

	for i, output := range outputs {
		requireOutput(t, db, TxHash, uint32(i), output)
	}

	require.NoError(t, db.Commit(ctx))

	for i, output := range outputs {
		requireOutput(t, db, TxHash, uint32(i), output)
	}
}

func Overwrite(t *testing.T, db outputcache.Store) {
	ctx := context.Background()
	txID := []byte("overwrite")

	require.NoError(t, db.Put(ctx, txID, 0, IssuanceOutput))
	require.NoError(t, db.Put(ctx, txID, 0, UncoloredOutput))

	requireOutput(t, db, txID, 0, UncoloredOutput)

	require.NoError(t, db.Commit(ctx))
	require.NoError(t, db.Put(ctx, txID, 0, MaxOutput))

	requireOutput(t, db, txID, 0, MaxOutput)

	require.NoError(t, db.Commit(ctx))

	requireOutput(t, db, txID, 0, MaxOutput)
}

func PreCommitVisibility(t *testing.T, db outputcache.Store) {
	ctx := context.Background()
	txID := []byte("uncommitted")

	_, found, err := db.Get(ctx, txID, 1)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, db.Put(ctx, txID, 1, IssuanceOutput))

	requireOutput(t, db, txID, 1, IssuanceOutput)

	// a neighbouring index is still a miss
	_, found, err = db.Get(ctx, txID, 2)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, db.Commit(ctx))
}

func CommitIdempotent(t *testing.T, db outputcache.Store) {
	ctx := context.Background()
	txID := []byte("idempotent")

	require.NoError(t, db.Commit(ctx))
	require.NoError(t, db.Commit(ctx))

	require.NoError(t, db.Put(ctx, txID, 0, IssuanceOutput))
	require.NoError(t, db.Commit(ctx))
	require.NoError(t, db.Commit(ctx))

	requireOutput(t, db, txID, 0, IssuanceOutput)
}

func TxIDLengths(t *testing.T, db outputcache.Store) {
	ctx := context.Background()

	short := []byte{0x01}
	long := []byte{0x01, 0x00, 0x00, 0x00}

	require.NoError(t, db.Put(ctx, short, 0, IssuanceOutput))
	require.NoError(t, db.Put(ctx, long, 0x02000000, UncoloredOutput))

	requireOutput(t, db, short, 0, IssuanceOutput)
	requireOutput(t, db, long, 0x02000000, UncoloredOutput)

	_, found, err := db.Get(ctx, long, 0)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, db.Put(ctx, []byte{}, math.MaxUint32, MaxOutput))
	requireOutput(t, db, []byte{}, math.MaxUint32, MaxOutput)
}

func NoAliasing(t *testing.T, db outputcache.Store) {
	ctx := context.Background()
	txID := []byte("aliasing")

	input := IssuanceOutput.Clone()
	require.NoError(t, db.Put(ctx, txID, 0, input))

	// changing the caller's copy after Put must not change the stored output
	(*input.LockingScript)[0] = 'z'
	input.AssetAddress[0] = 'z'

	first := requireOutput(t, db, txID, 0, IssuanceOutput)

	// and neither must changing what Get handed out
	(*first.LockingScript)[0] = 'y'
	first.AssetAddress[0] = 'y'

	requireOutput(t, db, txID, 0, IssuanceOutput)
}

func NilOutput(t *testing.T, db outputcache.Store) {
	err := db.Put(context.Background(), TxID, 99, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))

	unknown := UncoloredOutput.Clone()
	unknown.OutputType = outputcache.OutputType(42)

	err = db.Put(context.Background(), TxID, 99, unknown)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))

	_, found, err := db.Get(context.Background(), TxID, 99)
	require.NoError(t, err)
	assert.False(t, found)
}

func Health(t *testing.T, db outputcache.Store) {
	status, details, err := db.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 200, status)
	assert.NotEmpty(t, details)
}

// Durability checks that committed writes survive a new session on the same
// location and that uncommitted ones do not.
func Durability(t *testing.T, open Opener) {
	ctx := context.Background()

	db := open(t)

	require.NoError(t, db.Put(ctx, TxID, 5, IssuanceOutput))
	require.NoError(t, db.Put(ctx, TxID, 8, MaxOutput))
	require.NoError(t, db.Commit(ctx))

	require.NoError(t, db.Put(ctx, TxID, 9, UncoloredOutput))
	require.NoError(t, db.Close(ctx))

	db = open(t)

	requireOutput(t, db, TxID, 5, IssuanceOutput)
	requireOutput(t, db, TxID, 8, MaxOutput)

	_, found, err := db.Get(ctx, TxID, 9)
	require.NoError(t, err)
	assert.False(t, found, "uncommitted write survived Close")

	// reopening an existing store keeps working for writes too
	require.NoError(t, db.Put(ctx, TxID, 10, UncoloredOutput))
	require.NoError(t, db.Commit(ctx))
	require.NoError(t, db.Close(ctx))

	db = open(t)
	defer func() {
		_ = db.Close(ctx)
	}()

	requireOutput(t, db, TxID, 10, UncoloredOutput)
}

// Close checks that Close is idempotent and that a closed store refuses work.
func Close(t *testing.T, db outputcache.Store) {
	ctx := context.Background()

	require.NoError(t, db.Put(ctx, TxID, 1, IssuanceOutput))
	require.NoError(t, db.Close(ctx))
	require.NoError(t, db.Close(ctx))

	err := db.Put(ctx, TxID, 2, IssuanceOutput)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStorageUnavailable))

	_, _, err = db.Get(ctx, TxID, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStorageUnavailable))

	err = db.Commit(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStorageUnavailable))

	status, _, err := db.Health(ctx)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStorageUnavailable))
}

// RequireOutputData asserts that err names the output it is about.
func RequireOutputData(t *testing.T, err error, txID []byte, index uint32) {
	t.Helper()

	var tErr *errors.Error
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, hex.EncodeToString(txID), tErr.GetData(errors.DataTxID))
	assert.Equal(t, index, tErr.GetData(errors.DataOutputIndex))
}

func requireOutput(t *testing.T, db outputcache.Store, txID []byte, index uint32, expected *outputcache.CachedOutput) *outputcache.CachedOutput {
	t.Helper()

	output, found, err := db.Get(context.Background(), txID, index)
	require.NoError(t, err)
	require.True(t, found, "expected output %x:%d", txID, index)
	require.NotNil(t, output)

	assert.Equal(t, expected.Value, output.Value)
	assert.Equal(t, expected.ScriptBytes(), output.ScriptBytes())
	assert.Equal(t, expected.HasAssetAddress(), output.HasAssetAddress())
	assert.Equal(t, expected.AssetAddress, output.AssetAddress)
	assert.Equal(t, expected.AssetQuantity, output.AssetQuantity)
	assert.Equal(t, expected.OutputType, output.OutputType)
	assert.True(t, expected.Equal(output))

	return output
}
