// Package leveldb stores cached outputs in a goleveldb database, in a directory on
// disk or in leveldb's memory storage.
//
// Puts are collected in a leveldb.Batch and mirrored in a non-expiring overlay cache
// so that Get sees them before they are written. Commit writes the batch with fsync.
package leveldb

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
	"github.com/btcsuite/goleveldb/leveldb"
	"github.com/btcsuite/goleveldb/leveldb/opt"
	"github.com/btcsuite/goleveldb/leveldb/storage"
	"github.com/ordishs/gocore"
	cache "github.com/patrickmn/go-cache"
)

var (
	stats = gocore.NewStat("outputcache_leveldb")

	versionKey   = []byte{0x00, 'V', 'E', 'R', 'S', 'I', 'O', 'N'}
	versionValue = []byte{0x00, 0x00, 0x00, 0x01}
)

type LevelDB struct {
	mu       sync.Mutex
	logger   ulogger.Logger
	db       *leveldb.DB
	location outputcache.Location
	batch    *leveldb.Batch
	pending  *cache.Cache
	closed   bool
}

func New(ctx context.Context, logger ulogger.Logger, tSettings *settings.Settings, location outputcache.Location) (*LevelDB, error) {
	initPrometheusMetrics()

	logger = logger.New("ldb")

	options := &opt.Options{
		ErrorIfExist:   false,
		ErrorIfMissing: false,
	}

	if tSettings.OutputCache.LevelDBBlockCacheMB > 0 {
		options.BlockCacheCapacity = tSettings.OutputCache.LevelDBBlockCacheMB * opt.MiB
	}

	var (
		db  *leveldb.DB
		err error
	)

	if location.IsDurable() {
		db, err = leveldb.OpenFile(location.Path(), options)
	} else {
		db, err = leveldb.Open(storage.NewMemStorage(), options)
	}

	if err != nil {
		return nil, errors.NewStorageUnavailableError("failed to open leveldb store at %s", location, err)
	}

	if err = checkVersion(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Infof("Using leveldb output cache at %s", location)

	return &LevelDB{
		logger:   logger,
		db:       db,
		location: location,
		batch:    new(leveldb.Batch),
		pending:  newPending(),
	}, nil
}

// pending writes must never expire before Commit, so the janitor is disabled
func newPending() *cache.Cache {
	return cache.New(cache.NoExpiration, 0)
}

// checkVersion stamps an empty database with our version and refuses one that holds
// data from anything else.
func checkVersion(db *leveldb.DB) error {
	version, err := db.Get(versionKey, nil)
	if err == nil {
		if !bytes.Equal(version, versionValue) {
			return errors.NewStorageUnavailableError("leveldb store has version %x, expected %x", version, versionValue)
		}

		return nil
	}

	if !errors.Is(err, leveldb.ErrNotFound) {
		return errors.NewStorageUnavailableError("failed to read leveldb store version", err)
	}

	iter := db.NewIterator(nil, nil)
	hasKeys := iter.First()
	iter.Release()

	if err = iter.Error(); err != nil {
		return errors.NewStorageUnavailableError("failed to scan leveldb store", err)
	}

	if hasKeys {
		return errors.NewStorageUnavailableError("leveldb store holds data that is not an output cache")
	}

	if err = db.Put(versionKey, versionValue, &opt.WriteOptions{Sync: true}); err != nil {
		return errors.NewStorageUnavailableError("failed to write leveldb store version", err)
	}

	return nil
}

func (l *LevelDB) Health(_ context.Context) (int, string, error) {
	details := fmt.Sprintf("LevelDB at %s", l.location)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return http.StatusServiceUnavailable, details, errors.NewStorageUnavailableError("leveldb store is closed")
	}

	if _, err := l.db.GetProperty("leveldb.num-files-at-level0"); err != nil {
		return http.StatusServiceUnavailable, details, errors.NewStorageUnavailableError("leveldb health check failed", err)
	}

	return http.StatusOK, details, nil
}

func (l *LevelDB) Put(ctx context.Context, txID []byte, index uint32, output *outputcache.CachedOutput) (err error) {
	_, span, deferFn := tracing.StartTracing(ctx, "leveldb:Put",
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

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return countError("Put", errors.NewStorageUnavailableError("[Put] store is closed"))
	}

	key := outputcache.NewOutputKey(txID, index).Bytes()
	value := output.Bytes()

	l.batch.Put(key, value)
	l.pending.Set(string(key), value, cache.NoExpiration)

	return nil
}

func (l *LevelDB) Get(ctx context.Context, txID []byte, index uint32) (output *outputcache.CachedOutput, found bool, err error) {
	_, span, deferFn := tracing.StartTracing(ctx, "leveldb:Get",
		tracing.WithParentStat(stats),
		tracing.WithCounter(prometheusOutputCacheGet),
	)
	defer func() {
		span.RecordError(err)
		deferFn()
	}()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, false, countError("Get", errors.NewStorageUnavailableError("[Get] store is closed"))
	}

	key := outputcache.NewOutputKey(txID, index).Bytes()

	var data []byte

	if obj, ok := l.pending.Get(string(key)); ok {
		data, _ = obj.([]byte)
	} else {
		data, err = l.db.Get(key, nil)
		if err != nil {
			if errors.Is(err, leveldb.ErrNotFound) {
				prometheusOutputCacheMiss.Inc()
				return nil, false, nil
			}

			return nil, false, countError("Get", errors.WithOutput(errors.NewStorageUnavailableError("[Get] failed to read output", err), txID, index))
		}
	}

	output, err = outputcache.NewCachedOutputFromBytes(data)
	if err != nil {
		return nil, false, countError("Get", errors.WithOutput(errors.NewEncodingError("[Get] failed to decode output", err), txID, index))
	}

	return output, true, nil
}

func (l *LevelDB) Commit(ctx context.Context) (err error) {
	_, span, deferFn := tracing.StartTracing(ctx, "leveldb:Commit",
		tracing.WithParentStat(stats),
		tracing.WithCounter(prometheusOutputCacheCommit),
	)
	defer func() {
		span.RecordError(err)
		deferFn()
	}()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return countError("Commit", errors.NewStorageUnavailableError("[Commit] store is closed"))
	}

	if l.batch.Len() == 0 {
		return nil
	}

	// pending writes stay visible if the write fails, so a retried Commit can succeed
	if err = l.db.Write(l.batch, &opt.WriteOptions{Sync: l.location.IsDurable()}); err != nil {
		return countError("Commit", errors.NewStorageUnavailableError("[Commit] failed to write %d outputs", l.batch.Len(), err))
	}

	l.batch.Reset()
	l.pending.Flush()

	return nil
}

func (l *LevelDB) Close(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}

	l.closed = true

	l.batch.Reset()
	l.pending.Flush()

	if err := l.db.Close(); err != nil {
		return errors.NewStorageError("[Close] failed to close leveldb store", err)
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
