package util

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bsv-blockchain/outputcache/errors"
	"github.com/bsv-blockchain/outputcache/settings"
	"github.com/bsv-blockchain/outputcache/ulogger"
	"github.com/bsv-blockchain/outputcache/util/usql"
	"github.com/labstack/gommon/random"
	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver
)

type SQLEngine string

const (
	Postgres     SQLEngine = "postgres"
	Sqlite       SQLEngine = "sqlite"
	SqliteMemory SQLEngine = "sqlitememory"
)

func InitSQLDB(logger ulogger.Logger, storeURL *url.URL, tSettings *settings.Settings) (*usql.DB, error) {
	switch SQLEngine(storeURL.Scheme) {
	case Postgres:
		return InitPostgresDB(logger, storeURL, tSettings)
	case Sqlite, SqliteMemory:
		return InitSQLiteDB(logger, storeURL, tSettings)
	}

	return nil, errors.NewConfigurationError("db: unknown scheme: %s", storeURL.Scheme)
}

func InitPostgresDB(logger ulogger.Logger, storeURL *url.URL, tSettings *settings.Settings) (*usql.DB, error) {
	dbHost := storeURL.Hostname()
	port := storeURL.Port()
	dbPort, _ := strconv.Atoi(port)
	dbName := strings.TrimPrefix(storeURL.Path, "/")
	dbUser := ""
	dbPassword := ""

	if storeURL.User != nil {
		dbUser = storeURL.User.Username()
		dbPassword, _ = storeURL.User.Password()
	}

	// Default sslmode to "disable"
	sslMode := "disable"

	// Check if "sslmode" is present in the query parameters
	queryParams := storeURL.Query()
	if val, ok := queryParams["sslmode"]; ok && len(val) > 0 {
		sslMode = val[0] // Use the first value if multiple are provided
	}

	dbInfo := fmt.Sprintf("user=%s password=%s dbname=%s sslmode=%s host=%s port=%d", dbUser, dbPassword, dbName, sslMode, dbHost, dbPort)

	db, err := usql.Open(storeURL.Scheme, dbInfo)
	if err != nil {
		return nil, errors.NewStorageUnavailableError("failed to open postgres DB", err)
	}

	logger.Infof("Using postgres DB: %s@%s:%d/%s", dbUser, dbHost, dbPort, dbName)

	db.SetMaxIdleConns(tSettings.OutputCache.PostgresMaxIdleConns)
	db.SetMaxOpenConns(tSettings.OutputCache.PostgresMaxOpenConns)

	return db, nil
}

// SQLiteFilename resolves the database file for a sqlite:// store URL. Relative names
// live in the data folder and get a .db extension; absolute names are used verbatim.
func SQLiteFilename(storeURL *url.URL, dataFolder string) (string, error) {
	dbName := strings.TrimPrefix(storeURL.Path, "/")
	if dbName == "" {
		return "", errors.NewConfigurationError("sqlite store URL %q has no database name", storeURL.String())
	}

	if filepath.IsAbs(dbName) {
		return dbName, nil
	}

	if filepath.Ext(dbName) != ".db" {
		dbName += ".db"
	}

	filename, err := filepath.Abs(filepath.Join(dataFolder, dbName))
	if err != nil {
		return "", errors.NewConfigurationError("failed to get absolute path for sqlite DB", err)
	}

	return filename, nil
}

func InitSQLiteDB(logger ulogger.Logger, storeURL *url.URL, tSettings *settings.Settings) (*usql.DB, error) {
	if SQLEngine(storeURL.Scheme) == SqliteMemory {
		return OpenSQLiteMemory(logger)
	}

	filename, err := SQLiteFilename(storeURL, tSettings.DataFolder)
	if err != nil {
		return nil, err
	}

	return OpenSQLiteFile(logger, filename)
}

// OpenSQLiteFile opens (creating if needed) a file backed sqlite database.
func OpenSQLiteFile(logger ulogger.Logger, filename string) (*usql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return nil, errors.NewStorageUnavailableError("failed to create folder for %s", filename, err)
	}

	/* Don't be tempted by a large busy_timeout. Just masks a bigger problem.
	Fail fast. This is a single writer cache after all */
	dsn := fmt.Sprintf("%s?cache=shared&_pragma=busy_timeout=5000&_pragma=journal_mode=WAL", filename)

	logger.Infof("Using sqlite DB: %s", dsn)

	return openSQLite(dsn)
}

// OpenSQLiteMemory opens a private in-memory database. The random name keeps separate
// caches in one process apart while letting the pool's connections share it.
func OpenSQLiteMemory(logger ulogger.Logger) (*usql.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", random.String(16))

	logger.Infof("Using sqlite DB: %s", dsn)

	db, err := openSQLite(dsn)
	if err != nil {
		return nil, err
	}

	// the database disappears with its last connection
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(0)
	db.SetConnMaxLifetime(0)

	return db, nil
}

func openSQLite(dsn string) (*usql.DB, error) {
	db, err := usql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.NewStorageUnavailableError("failed to open sqlite DB", err)
	}

	// sql.Open is lazy, make sure the file can actually be opened
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.NewStorageUnavailableError("failed to open sqlite DB %s", dsn, err)
	}

	return db, nil
}
