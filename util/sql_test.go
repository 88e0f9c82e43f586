package util

import (
	"context"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/bsv-blockchain/outputcache/errors"
	"github.com/bsv-blockchain/outputcache/ulogger"
	"github.com/bsv-blockchain/outputcache/util/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteFilename(t *testing.T) {
	dataFolder := t.TempDir()

	u, err := url.Parse("sqlite:///outputcache")
	require.NoError(t, err)

	filename, err := SQLiteFilename(u, dataFolder)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dataFolder, "outputcache.db"), filename)

	u, err = url.Parse("sqlite:///outputcache.db")
	require.NoError(t, err)

	filename, err = SQLiteFilename(u, dataFolder)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dataFolder, "outputcache.db"), filename)

	u, err = url.Parse("sqlite:////var/lib/outputs.sqlite")
	require.NoError(t, err)

	filename, err = SQLiteFilename(u, dataFolder)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/outputs.sqlite", filename)

	u, err = url.Parse("sqlite:///")
	require.NoError(t, err)

	_, err = SQLiteFilename(u, dataFolder)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))
}

func TestInitSQLDBUnknownScheme(t *testing.T) {
	u, err := url.Parse("mysql://localhost/outputs")
	require.NoError(t, err)

	_, err = InitSQLDB(ulogger.TestLogger{}, u, test.CreateBaseTestSettings())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))
}

func TestInitSQLiteDBFile(t *testing.T) {
	tSettings := test.CreateBaseTestSettings()
	tSettings.DataFolder = filepath.Join(t.TempDir(), "nested", "data")

	u, err := url.Parse("sqlite:///outputcache")
	require.NoError(t, err)

	db, err := InitSQLDB(ulogger.TestLogger{}, u, tSettings)
	require.NoError(t, err)

	defer db.Close()

	_, err = db.ExecContext(context.Background(), "CREATE TABLE t (id INTEGER)")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(tSettings.DataFolder, "outputcache.db"))
}

func TestOpenSQLiteMemoryIsPrivate(t *testing.T) {
	ctx := context.Background()

	first, err := OpenSQLiteMemory(ulogger.TestLogger{})
	require.NoError(t, err)

	defer first.Close()

	second, err := OpenSQLiteMemory(ulogger.TestLogger{})
	require.NoError(t, err)

	defer second.Close()

	_, err = first.ExecContext(ctx, "CREATE TABLE only_here (id INTEGER)")
	require.NoError(t, err)

	_, err = first.ExecContext(ctx, "INSERT INTO only_here (id) VALUES (1)")
	require.NoError(t, err)

	_, err = second.ExecContext(ctx, "SELECT id FROM only_here")
	require.Error(t, err)
}
