// Package sql stores cached outputs in a single SQL table, on sqlite (file or shared
// memory) or postgres.
//
// Writes go into a database transaction that is opened by the first Put after a
// Commit and stays open until the next Commit. Reads made while it is open go
// through the same transaction so they see the pending writes.
//
// # Usage
//
//	store, err := sql.New(ctx, logger, tSettings, &url.URL{Scheme: "sqlite", Path: "/outputcache"})
//
// # Metrics
//
//   - sql_outputcache_get, sql_outputcache_put, sql_outputcache_commit
//   - sql_outputcache_miss: gets that found nothing
//   - sql_outputcache_errors: errors by function and error code
package sql

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/bsv-blockchain/go-bt/v2/bscript"
	"github.com/bsv-blockchain/outputcache/errors"
	"github.com/bsv-blockchain/outputcache/settings"
	"github.com/bsv-blockchain/outputcache/stores/outputcache"
	"github.com/bsv-blockchain/outputcache/tracing"
	"github.com/bsv-blockchain/outputcache/ulogger"
	"github.com/bsv-blockchain/outputcache/util"
	"github.com/bsv-blockchain/outputcache/util/usql"
	"github.com/ordishs/gocore"
)

var stats = gocore.NewStat("outputcache_sql")

const putSavepoint = "put_output"

type Store struct {
	mu        sync.Mutex
	logger    ulogger.Logger
	db        *usql.DB
	engine    util.SQLEngine
	dbTimeout time.Duration
	txn       *usql.Tx
	closed    bool
}

// New opens the database named by storeURL (postgres, sqlite or sqlitememory) and
// makes sure the cached_outputs table is there.
func New(ctx context.Context, logger ulogger.Logger, tSettings *settings.Settings, storeURL *url.URL) (*Store, error) {
	db, err := util.InitSQLDB(logger, storeURL, tSettings)
	if err != nil {
		return nil, err
	}

	return newStore(ctx, logger, tSettings, db, util.SQLEngine(storeURL.Scheme))
}

// NewWithLocation opens a sqlite database at a durable location, or a private shared
// memory database for an ephemeral one.
func NewWithLocation(ctx context.Context, logger ulogger.Logger, tSettings *settings.Settings, location outputcache.Location) (*Store, error) {
	var (
		db     *usql.DB
		engine util.SQLEngine
		err    error
	)

	if location.IsDurable() {
		engine = util.Sqlite
		db, err = util.OpenSQLiteFile(logger, location.Path())
	} else {
		engine = util.SqliteMemory
		db, err = util.OpenSQLiteMemory(logger)
	}

	if err != nil {
		return nil, err
	}

	return newStore(ctx, logger, tSettings, db, engine)
}

func newStore(ctx context.Context, logger ulogger.Logger, tSettings *settings.Settings, db *usql.DB, engine util.SQLEngine) (*Store, error) {
	initPrometheusMetrics()

	if err := createSchema(ctx, db, engine); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := validateSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	dbTimeout := tSettings.OutputCache.DBTimeout
	if dbTimeout <= 0 {
		dbTimeout = 5 * time.Second
	}

	return &Store{
		logger:    logger,
		db:        db,
		engine:    engine,
		dbTimeout: dbTimeout,
	}, nil
}

func (s *Store) Health(ctx context.Context) (int, string, error) {
	details := fmt.Sprintf("SQL Engine is %s", s.engine)

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return http.StatusServiceUnavailable, details, errors.NewStorageUnavailableError("sql store is closed")
	}

	var num int

	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&num); err != nil {
		return http.StatusServiceUnavailable, details, errors.NewStorageUnavailableError("sql health check failed", err)
	}

	return http.StatusOK, details, nil
}

func (s *Store) Put(ctx context.Context, txID []byte, index uint32, output *outputcache.CachedOutput) (err error) {
	ctx, span, deferFn := tracing.StartTracing(ctx, "sql:Put",
		tracing.WithParentStat(stats),
		tracing.WithCounter(prometheusOutputCachePut),
	)
	defer func() {
		span.RecordError(err)
		deferFn()
	}()

	if err = output.Validate(); err != nil {
		return s.countError("Put", errors.NewInvalidArgumentError("[Put] cannot store output %x:%d", txID, index, err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.countError("Put", errors.NewStorageUnavailableError("[Put] store is closed"))
	}

	txn, err := s.pendingTxn(ctx)
	if err != nil {
		return s.countError("Put", err)
	}

	ctx, cancelTimeout := context.WithTimeout(ctx, s.dbTimeout)
	defer cancelTimeout()

	q := `
		INSERT INTO cached_outputs (
		 transaction_id
		,output_index
		,value
		,locking_script
		,asset_address
		,asset_quantity
		,output_type
		) VALUES (
		 $1
		,$2
		,$3
		,$4
		,$5
		,$6
		,$7
		)
		ON CONFLICT (transaction_id, output_index) DO UPDATE SET
		 value = excluded.value
		,locking_script = excluded.locking_script
		,asset_address = excluded.asset_address
		,asset_quantity = excluded.asset_quantity
		,output_type = excluded.output_type
	`

	// a nil interface binds NULL, which is how an absent asset address is stored
	var assetAddress interface{}
	if output.HasAssetAddress() {
		assetAddress = output.AssetAddress
	}

	savepoint := s.engine == util.Postgres

	// postgres aborts the whole transaction when a statement fails, so each write
	// gets its own savepoint to keep earlier pending writes committable
	if savepoint {
		if _, err = txn.ExecContext(ctx, "SAVEPOINT "+putSavepoint); err != nil {
			return s.countError("Put", errors.NewStorageUnavailableError("[Put] failed to write output %x:%d", txID, index, err))
		}
	}

	if _, err = txn.ExecContext(ctx, q,
		nonNil(txID),
		int64(index),
		int64(output.Value), //nolint:gosec // stored bit for bit
		output.ScriptBytes(),
		assetAddress,
		int64(output.AssetQuantity), //nolint:gosec // stored bit for bit
		int16(output.OutputType),
	); err != nil {
		if savepoint {
			if _, rbErr := txn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK TO SAVEPOINT "+putSavepoint); rbErr != nil {
				s.logger.Errorf("[Put] failed to roll back write of output %x:%d: %v", txID, index, rbErr)
			}
		}

		return s.countError("Put", errors.NewStorageUnavailableError("[Put] failed to write output %x:%d", txID, index, err))
	}

	if savepoint {
		if _, err = txn.ExecContext(ctx, "RELEASE SAVEPOINT "+putSavepoint); err != nil {
			return s.countError("Put", errors.NewStorageUnavailableError("[Put] failed to write output %x:%d", txID, index, err))
		}
	}

	return nil
}

func (s *Store) Get(ctx context.Context, txID []byte, index uint32) (output *outputcache.CachedOutput, found bool, err error) {
	ctx, span, deferFn := tracing.StartTracing(ctx, "sql:Get",
		tracing.WithParentStat(stats),
		tracing.WithCounter(prometheusOutputCacheGet),
	)
	defer func() {
		span.RecordError(err)
		deferFn()
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, false, s.countError("Get", errors.NewStorageUnavailableError("[Get] store is closed"))
	}

	ctx, cancelTimeout := context.WithTimeout(ctx, s.dbTimeout)
	defer cancelTimeout()

	q := `
		SELECT
		 value
		,locking_script
		,asset_address
		,CASE WHEN asset_address IS NULL THEN 0 ELSE 1 END
		,asset_quantity
		,output_type
		FROM cached_outputs
		WHERE transaction_id = $1 AND output_index = $2
	`

	var rows *sql.Rows

	if s.txn != nil {
		rows, err = s.txn.QueryContext(ctx, q, nonNil(txID), int64(index))
	} else {
		rows, err = s.db.QueryContext(ctx, q, nonNil(txID), int64(index))
	}

	if err != nil {
		return nil, false, s.countError("Get", errors.WithOutput(errors.NewStorageUnavailableError("[Get] failed to read output", err), txID, index))
	}

	defer func() {
		_ = rows.Close()
	}()

	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return nil, false, s.countError("Get", errors.WithOutput(errors.NewStorageUnavailableError("[Get] failed to read output", err), txID, index))
		}

		prometheusOutputCacheMiss.Inc()

		return nil, false, nil
	}

	output, err = scanOutput(rows)
	if err != nil {
		return nil, false, s.countError("Get", errors.WithOutput(errors.NewEncodingError("[Get] failed to decode output", err), txID, index))
	}

	return output, true, nil
}

func (s *Store) Commit(ctx context.Context) (err error) {
	_, span, deferFn := tracing.StartTracing(ctx, "sql:Commit",
		tracing.WithParentStat(stats),
		tracing.WithCounter(prometheusOutputCacheCommit),
	)
	defer func() {
		span.RecordError(err)
		deferFn()
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.countError("Commit", errors.NewStorageUnavailableError("[Commit] store is closed"))
	}

	if s.txn == nil {
		return nil
	}

	// the transaction is finished either way
	txn := s.txn
	s.txn = nil

	if err = txn.Commit(); err != nil {
		return s.countError("Commit", errors.NewStorageUnavailableError("[Commit] failed to commit outputs", err))
	}

	return nil
}

func (s *Store) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	if s.txn != nil {
		if err := s.txn.Rollback(); err != nil {
			s.logger.Warnf("[SQL][Close] failed to roll back uncommitted outputs: %v", err)
		}

		s.txn = nil
	}

	if err := s.db.Close(); err != nil {
		return errors.NewStorageError("[Close] failed to close %s database", s.engine, err)
	}

	return nil
}

// pendingTxn returns the open write transaction, starting one if needed. The caller
// holds s.mu.
func (s *Store) pendingTxn(ctx context.Context) (*usql.Tx, error) {
	if s.txn != nil {
		return s.txn, nil
	}

	// the transaction outlives the call that opened it, so it must not be rolled back
	// when that call's context is cancelled
	txn, err := s.db.BeginTx(context.WithoutCancel(ctx), nil)
	if err != nil {
		return nil, errors.NewStorageUnavailableError("failed to begin transaction", err)
	}

	s.txn = txn

	return txn, nil
}

func (s *Store) countError(function string, err error) error {
	code := errors.ERR_UNKNOWN

	var tErr *errors.Error
	if errors.As(err, &tErr) {
		code = tErr.Code()
	}

	prometheusOutputCacheErrors.WithLabelValues(function, code.Enum()).Inc()

	return err
}

func scanOutput(rows *sql.Rows) (*outputcache.CachedOutput, error) {
	var (
		value           int64
		lockingScript   []byte
		assetAddress    []byte
		hasAssetAddress int64
		assetQuantity   int64
		outputType      int64
	)

	if err := rows.Scan(&value, &lockingScript, &assetAddress, &hasAssetAddress, &assetQuantity, &outputType); err != nil {
		return nil, err
	}

	ot, err := outputcache.ParseOutputType(outputType)
	if err != nil {
		return nil, err
	}

	script := bscript.Script(nonNil(lockingScript))

	output := &outputcache.CachedOutput{
		Value:         uint64(value), //nolint:gosec // stored bit for bit
		LockingScript: &script,
		AssetQuantity: uint64(assetQuantity), //nolint:gosec // stored bit for bit
		OutputType:    ot,
	}

	// drivers may hand back nil for an empty blob, so presence comes from the query
	if hasAssetAddress != 0 {
		output.AssetAddress = nonNil(assetAddress)
	}

	return output, nil
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}

	return b
}
