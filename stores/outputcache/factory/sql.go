package factory

import (
	"context"
	"net/url"

	"github.com/bsv-blockchain/outputcache/settings"
	"github.com/bsv-blockchain/outputcache/stores/outputcache"
	"github.com/bsv-blockchain/outputcache/stores/outputcache/sql"
	"github.com/bsv-blockchain/outputcache/ulogger"
)

func init() {
	newSQL := func(ctx context.Context, logger ulogger.Logger, tSettings *settings.Settings, storeURL *url.URL) (outputcache.Store, error) {
		store, err := sql.New(ctx, logger, tSettings, storeURL)
		if err != nil {
			return nil, err
		}

		return store, nil
	}

	availableDatabases["postgres"] = newSQL
	availableDatabases["sqlite"] = newSQL
	availableDatabases["sqlitememory"] = newSQL

	availableBackends["sqlite"] = func(ctx context.Context, logger ulogger.Logger, tSettings *settings.Settings, location outputcache.Location) (outputcache.Store, error) {
		store, err := sql.NewWithLocation(ctx, logger, tSettings, location)
		if err != nil {
			return nil, err
		}

		return store, nil
	}
}
