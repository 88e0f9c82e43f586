package sql

import (
	"context"
	"database/sql"
	stderrors "errors"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/bsv-blockchain/go-bt/v2/bscript"
	"github.com/bsv-blockchain/outputcache/errors"
	"github.com/bsv-blockchain/outputcache/stores/outputcache"
	"github.com/bsv-blockchain/outputcache/stores/outputcache/tests"
	"github.com/bsv-blockchain/outputcache/ulogger"
	"github.com/bsv-blockchain/outputcache/util"
	"github.com/bsv-blockchain/outputcache/util/test"
	"github.com/bsv-blockchain/outputcache/util/usql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ outputcache.Store = (*Store)(nil)

func setup(t *testing.T, storeURL string) *Store {
	t.Helper()

	tSettings := test.CreateBaseTestSettings()
	tSettings.DataFolder = t.TempDir()

	u, err := url.Parse(storeURL)
	require.NoError(t, err)

	store, err := New(context.Background(), ulogger.TestLogger{}, tSettings, u)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close(context.Background())
	})

	return store
}

func TestSqliteMemory(t *testing.T) {
	tests.Store(t, setup(t, "sqlitememory:///outputs"))
}

func TestSqliteFile(t *testing.T) {
	tests.Store(t, setup(t, "sqlite:///outputs"))
}

func TestSqliteMemoryStoresAreIndependent(t *testing.T) {
	ctx := context.Background()

	a := setup(t, "sqlitememory:///outputs")
	b := setup(t, "sqlitememory:///outputs")

	require.NoError(t, a.Put(ctx, tests.TxID, 1, tests.IssuanceOutput))
	require.NoError(t, a.Commit(ctx))

	_, found, err := b.Get(ctx, tests.TxID, 1)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSqliteDurability(t *testing.T) {
	tSettings := test.CreateBaseTestSettings()
	location := outputcache.Durable(filepath.Join(t.TempDir(), "cache", "outputs.db"))

	tests.Durability(t, func(t *testing.T) outputcache.Store {
		store, err := NewWithLocation(context.Background(), ulogger.TestLogger{}, tSettings, location)
		require.NoError(t, err)

		return store
	})
}

func TestSqliteEphemeralLocation(t *testing.T) {
	store, err := NewWithLocation(context.Background(), ulogger.TestLogger{}, test.CreateBaseTestSettings(), outputcache.Ephemeral())
	require.NoError(t, err)

	defer func() {
		_ = store.Close(context.Background())
	}()

	assert.Equal(t, util.SqliteMemory, store.engine)

	tests.Store(t, store)
}

func TestClose(t *testing.T) {
	tests.Close(t, setup(t, "sqlitememory:///outputs"))
}

func TestOpenFailsOnForeignTable(t *testing.T) {
	ctx := context.Background()
	filename := filepath.Join(t.TempDir(), "foreign.db")

	db, err := util.OpenSQLiteFile(ulogger.TestLogger{}, filename)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `CREATE TABLE cached_outputs (id INTEGER PRIMARY KEY, payload TEXT)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = NewWithLocation(ctx, ulogger.TestLogger{}, test.CreateBaseTestSettings(), outputcache.Durable(filename))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStorageUnavailable))
}

func TestOpenFailsOnUnusableLocation(t *testing.T) {
	dir := t.TempDir()

	// a regular file where the parent directory should be
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	_, err := NewWithLocation(context.Background(), ulogger.TestLogger{}, test.CreateBaseTestSettings(),
		outputcache.Durable(filepath.Join(blocker, "outputs.db")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStorageUnavailable))
}

func TestUnknownScheme(t *testing.T) {
	u, err := url.Parse("mysql:///outputs")
	require.NoError(t, err)

	_, err = New(context.Background(), ulogger.TestLogger{}, test.CreateBaseTestSettings(), u)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))
}

func TestCorruptOutputTypeIsEncodingError(t *testing.T) {
	ctx := context.Background()
	store := setup(t, "sqlitememory:///outputs")

	_, err := store.db.ExecContext(ctx, `
		INSERT INTO cached_outputs (transaction_id, output_index, value, locking_script, asset_address, asset_quantity, output_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, tests.TxID, 3, 1, []byte{0x51}, nil, 0, 42)
	require.NoError(t, err)

	output, found, err := store.Get(ctx, tests.TxID, 3)
	require.Error(t, err)
	assert.True(t, errors.IsEncodingError(err))
	tests.RequireOutputData(t, err, tests.TxID, 3)
	assert.False(t, found)
	assert.Nil(t, output)
}

func TestEmptyAssetAddressStoredAsEmptyBlob(t *testing.T) {
	ctx := context.Background()
	store := setup(t, "sqlitememory:///outputs")

	output := &outputcache.CachedOutput{
		Value:         1,
		LockingScript: bscript.NewFromBytes([]byte{0x51}),
		AssetAddress:  []byte{},
		AssetQuantity: 2,
		OutputType:    outputcache.OutputTypeTransfer,
	}

	require.NoError(t, store.Put(ctx, tests.TxID, 0, output))
	require.NoError(t, store.Commit(ctx))

	var isNull int

	err := store.db.QueryRowContext(ctx,
		`SELECT CASE WHEN asset_address IS NULL THEN 1 ELSE 0 END FROM cached_outputs WHERE transaction_id = $1 AND output_index = $2`,
		tests.TxID, 0,
	).Scan(&isNull)
	require.NoError(t, err)
	assert.Equal(t, 0, isNull)

	got, found, err := store.Get(ctx, tests.TxID, 0)
	require.NoError(t, err)
	require.True(t, found)
	assert.NotNil(t, got.AssetAddress)
	assert.Empty(t, got.AssetAddress)
}

func TestCancelledContextKeepsPendingWrites(t *testing.T) {
	store := setup(t, "sqlitememory:///outputs")

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, store.Put(ctx, tests.TxID, 1, tests.IssuanceOutput))
	cancel()

	ctx = context.Background()
	require.NoError(t, store.Commit(ctx))

	_, found, err := store.Get(ctx, tests.TxID, 1)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestPostgres(t *testing.T) {
	storeURL := os.Getenv("OUTPUTCACHE_TEST_POSTGRES")
	if storeURL == "" {
		t.Skip("OUTPUTCACHE_TEST_POSTGRES not set")
	}

	store := setup(t, storeURL)

	_, err := store.db.ExecContext(context.Background(), `DELETE FROM cached_outputs`)
	require.NoError(t, err)

	tests.Store(t, store)
}

func createMockSQL(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	initPrometheusMetrics()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	s := &Store{
		logger:    ulogger.TestLogger{},
		db:        &usql.DB{DB: db},
		engine:    util.Postgres,
		dbTimeout: test.CreateBaseTestSettings().OutputCache.DBTimeout,
	}

	return s, mock
}

func TestMockBeginFailure(t *testing.T) {
	s, mock := createMockSQL(t)

	mock.ExpectBegin().WillReturnError(stderrors.New("too many connections"))

	err := s.Put(context.Background(), tests.TxID, 0, tests.IssuanceOutput)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStorageUnavailable))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMockWriteFailure(t *testing.T) {
	s, mock := createMockSQL(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SAVEPOINT put_output`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO cached_outputs(.+)ON CONFLICT`).
		WithArgs(tests.TxID, int64(0), int64(150), []byte("abcd"), []byte("1234"), int64(75), int64(2)).
		WillReturnError(stderrors.New("disk I/O error"))
	mock.ExpectExec(`ROLLBACK TO SAVEPOINT put_output`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Put(context.Background(), tests.TxID, 0, tests.IssuanceOutput)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStorageUnavailable))
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMockWriteFailureKeepsEarlierWrites(t *testing.T) {
	s, mock := createMockSQL(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SAVEPOINT put_output`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO cached_outputs`).WithArgs(tests.TxID, int64(7), int64(100), []byte("abcd"), nil, int64(0), int64(0)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`RELEASE SAVEPOINT put_output`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`SAVEPOINT put_output`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO cached_outputs`).WithArgs(tests.TxID, int64(0), int64(150), []byte("abcd"), []byte("1234"), int64(75), int64(2)).
		WillReturnError(stderrors.New("value too long"))
	mock.ExpectExec(`ROLLBACK TO SAVEPOINT put_output`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	ctx := context.Background()
	require.NoError(t, s.Put(ctx, tests.TxID, 7, tests.UncoloredOutput))
	require.Error(t, s.Put(ctx, tests.TxID, 0, tests.IssuanceOutput))
	require.NoError(t, s.Commit(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMockAbsentAddressBindsNull(t *testing.T) {
	s, mock := createMockSQL(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SAVEPOINT put_output`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO cached_outputs`).
		WithArgs(tests.TxID, int64(7), int64(100), []byte("abcd"), nil, int64(0), int64(0)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`RELEASE SAVEPOINT put_output`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	ctx := context.Background()
	require.NoError(t, s.Put(ctx, tests.TxID, 7, tests.UncoloredOutput))
	require.NoError(t, s.Commit(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMockCommitFailure(t *testing.T) {
	s, mock := createMockSQL(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SAVEPOINT put_output`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO cached_outputs`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`RELEASE SAVEPOINT put_output`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit().WillReturnError(stderrors.New("database is locked"))

	ctx := context.Background()
	require.NoError(t, s.Put(ctx, tests.TxID, 0, tests.IssuanceOutput))

	err := s.Commit(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStorageUnavailable))

	// the failed transaction is gone, nothing is pending any more
	require.NoError(t, s.Commit(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMockReadFailure(t *testing.T) {
	s, mock := createMockSQL(t)

	mock.ExpectQuery(`SELECT(.+)FROM cached_outputs`).WillReturnError(sql.ErrConnDone)

	_, found, err := s.Get(context.Background(), tests.TxID, 0)
	require.Error(t, err)
	assert.False(t, found)
	assert.True(t, errors.Is(err, errors.ErrStorageUnavailable))
	tests.RequireOutputData(t, err, tests.TxID, 0)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMockUndecodableRow(t *testing.T) {
	s, mock := createMockSQL(t)

	rows := sqlmock.NewRows([]string{"value", "locking_script", "asset_address", "has_asset_address", "asset_quantity", "output_type"}).
		AddRow("not a number", []byte{0x51}, nil, 0, 0, 0)

	mock.ExpectQuery(`SELECT(.+)FROM cached_outputs`).WillReturnRows(rows)

	_, found, err := s.Get(context.Background(), tests.TxID, 0)
	require.Error(t, err)
	assert.False(t, found)
	assert.True(t, errors.IsEncodingError(err))
	tests.RequireOutputData(t, err, tests.TxID, 0)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMockCloseRollsBack(t *testing.T) {
	s, mock := createMockSQL(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SAVEPOINT put_output`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO cached_outputs`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`RELEASE SAVEPOINT put_output`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()
	mock.ExpectClose()

	ctx := context.Background()
	require.NoError(t, s.Put(ctx, tests.TxID, 0, tests.IssuanceOutput))
	require.NoError(t, s.Close(ctx))
	require.NoError(t, s.Close(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMockHealth(t *testing.T) {
	s, mock := createMockSQL(t)

	mock.ExpectQuery(`SELECT 1`).WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery(`SELECT 1`).WillReturnError(stderrors.New("connection refused"))

	status, details, err := s.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 200, status)
	assert.Contains(t, details, "postgres")

	status, _, err = s.Health(context.Background())
	require.Error(t, err)
	assert.Equal(t, 503, status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
