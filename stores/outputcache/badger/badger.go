// Package badger stores cached outputs in a badger key-value database, on disk or
// fully in memory.
//
// Puts are collected in a badger update transaction that is committed by Commit.
// When that transaction grows past badger's size limit it is committed early and a
// new one is started, so a very large span of writes is not all-or-nothing.
package badger

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/bsv-blockchain/outputcache/errors"
	"github.com/bsv-blockchain/outputcache/settings"
	"github.com/bsv-blockchain/outputcache/stores/outputcache"
	"github.com/bsv-blockchain/outputcache/tracing"
	"github.com/bsv-blockchain/outputcache/ulogger"
	"github.com/dgraph-io/badger/v4"
	"github.com/ordishs/gocore"
)

var (
	stats = gocore.NewStat("outputcache_badger")

	versionKey   = []byte{0x00, 'V', 'E', 'R', 'S', 'I', 'O', 'N'}
	versionValue = []byte{0x00, 0x00, 0x00, 0x01}
)

type loggerWrapper struct {
	ulogger.Logger
}

func (l loggerWrapper) Warningf(format string, args ...interface{}) {
	l.Warnf(format, args...)
}

type Badger struct {
	mu       sync.Mutex
	logger   ulogger.Logger
	store    *badger.DB
	location outputcache.Location
	txn      *badger.Txn
	closed   bool
}

func New(ctx context.Context, logger ulogger.Logger, tSettings *settings.Settings, location outputcache.Location) (*Badger, error) {
	initPrometheusMetrics()

	logger = logger.New("bdgr")

	opts := badger.DefaultOptions(location.Path()).
		WithLogger(loggerWrapper{logger}).
		WithLoggingLevel(badger.ERROR).
		WithSyncWrites(tSettings.OutputCache.BadgerSyncWrites)

	if tSettings.OutputCache.BadgerNumMemtables > 0 {
		opts = opts.WithNumMemtables(tSettings.OutputCache.BadgerNumMemtables)
	}

	if !location.IsDurable() {
		opts = opts.WithDir("").WithValueDir("").WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.NewStorageUnavailableError("failed to open badger store at %s", location, err)
	}

	if err = checkVersion(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Infof("Using badger output cache at %s", location)

	return &Badger{
		logger:   logger,
		store:    db,
		location: location,
	}, nil
}

// checkVersion stamps an empty database with our version and refuses one that holds
// data from anything else.
func checkVersion(db *badger.DB) error {
	var (
		version []byte
		hasKeys bool
	)

	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(versionKey)
		if err == nil {
			version, err = item.ValueCopy(nil)
			return err
		}

		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: false})
		defer it.Close()

		it.Rewind()
		hasKeys = it.Valid()

		return nil
	})
	if err != nil {
		return errors.NewStorageUnavailableError("failed to read badger store version", err)
	}

	switch {
	case version != nil && !bytes.Equal(version, versionValue):
		return errors.NewStorageUnavailableError("badger store has version %x, expected %x", version, versionValue)
	case version != nil:
		return nil
	case hasKeys:
		return errors.NewStorageUnavailableError("badger store holds data that is not an output cache")
	}

	if err = db.Update(func(txn *badger.Txn) error {
		return txn.Set(versionKey, versionValue)
	}); err != nil {
		return errors.NewStorageUnavailableError("failed to write badger store version", err)
	}

	return nil
}

func (b *Badger) Health(_ context.Context) (int, string, error) {
	details := fmt.Sprintf("Badger at %s", b.location)

	if b.store.IsClosed() {
		return http.StatusServiceUnavailable, details, errors.NewStorageUnavailableError("badger store is closed")
	}

	return http.StatusOK, details, nil
}

func (b *Badger) Put(ctx context.Context, txID []byte, index uint32, output *outputcache.CachedOutput) (err error) {
	_, span, deferFn := tracing.StartTracing(ctx, "badger:Put",
		tracing.WithParentStat(stats),
		tracing.WithCounter(prometheusOutputCachePut),
	)
	defer func() {
		span.RecordError(err)
		deferFn()
	}()

	if err = output.Validate(); err != nil {
		return countError("Put", errors.NewInvalidArgumentError("[Put] cannot store output %x:%d", txID, index, err))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return countError("Put", errors.NewStorageUnavailableError("[Put] store is closed"))
	}

	key := outputcache.NewOutputKey(txID, index).Bytes()
	value := output.Bytes()

	if b.txn == nil {
		b.txn = b.store.NewTransaction(true)
	}

	err = b.txn.Set(key, value)
	if errors.Is(err, badger.ErrTxnTooBig) {
		b.logger.Debugf("[Put] pending transaction too big, committing early")
		prometheusOutputCacheFlush.Inc()

		if err = b.txn.Commit(); err != nil {
			b.txn = nil
			return countError("Put", errors.NewStorageUnavailableError("[Put] failed to flush pending outputs", err))
		}

		b.txn = b.store.NewTransaction(true)
		err = b.txn.Set(key, value)
	}

	if err != nil {
		return countError("Put", errors.NewStorageUnavailableError("[Put] failed to write output %x:%d", txID, index, err))
	}

	return nil
}

func (b *Badger) Get(ctx context.Context, txID []byte, index uint32) (output *outputcache.CachedOutput, found bool, err error) {
	_, span, deferFn := tracing.StartTracing(ctx, "badger:Get",
		tracing.WithParentStat(stats),
		tracing.WithCounter(prometheusOutputCacheGet),
	)
	defer func() {
		span.RecordError(err)
		deferFn()
	}()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, false, countError("Get", errors.NewStorageUnavailableError("[Get] store is closed"))
	}

	key := outputcache.NewOutputKey(txID, index).Bytes()

	var data []byte

	read := func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		data, err = item.ValueCopy(nil)

		return err
	}

	// the pending transaction sees its own writes
	if b.txn != nil {
		err = read(b.txn)
	} else {
		err = b.store.View(read)
	}

	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			prometheusOutputCacheMiss.Inc()
			return nil, false, nil
		}

		return nil, false, countError("Get", errors.WithOutput(errors.NewStorageUnavailableError("[Get] failed to read output", err), txID, index))
	}

	output, err = outputcache.NewCachedOutputFromBytes(data)
	if err != nil {
		return nil, false, countError("Get", errors.WithOutput(errors.NewEncodingError("[Get] failed to decode output", err), txID, index))
	}

	return output, true, nil
}

func (b *Badger) Commit(ctx context.Context) (err error) {
	_, span, deferFn := tracing.StartTracing(ctx, "badger:Commit",
		tracing.WithParentStat(stats),
		tracing.WithCounter(prometheusOutputCacheCommit),
	)
	defer func() {
		span.RecordError(err)
		deferFn()
	}()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return countError("Commit", errors.NewStorageUnavailableError("[Commit] store is closed"))
	}

	if b.txn == nil {
		return nil
	}

	txn := b.txn
	b.txn = nil

	if err = txn.Commit(); err != nil {
		return countError("Commit", errors.NewStorageUnavailableError("[Commit] failed to commit outputs", err))
	}

	return nil
}

func (b *Badger) Close(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true

	if b.txn != nil {
		b.txn.Discard()
		b.txn = nil
	}

	if err := b.store.Close(); err != nil {
		return errors.NewStorageError("[Close] failed to close badger store", err)
	}

	return nil
}

func countError(function string, err error) error {
	code := errors.ERR_UNKNOWN

	var tErr *errors.Error
	if errors.As(err, &tErr) {
		code = tErr.Code()
	}

	prometheusOutputCacheErrors.WithLabelValues(function, code.Enum()).Inc()

	return err
}
