package factory

import (
	"context"
	"net/url"

	"github.com/bsv-blockchain/outputcache/settings"
	"github.com/bsv-blockchain/outputcache/stores/outputcache"
	"github.com/bsv-blockchain/outputcache/stores/outputcache/badger"
	"github.com/bsv-blockchain/outputcache/ulogger"
)

func init() {
	newBadger := func(ctx context.Context, logger ulogger.Logger, tSettings *settings.Settings, storeURL *url.URL) (outputcache.Store, error) {
		location, err := outputcache.LocationFromURL(storeURL, tSettings.DataFolder)
		if err != nil {
			return nil, err
		}

		store, err := badger.New(ctx, logger, tSettings, location)
		if err != nil {
			return nil, err
		}

		return store, nil
	}

	availableDatabases["badger"] = newBadger
	availableDatabases["badgermemory"] = newBadger

	availableBackends["badger"] = func(ctx context.Context, logger ulogger.Logger, tSettings *settings.Settings, location outputcache.Location) (outputcache.Store, error) {
		store, err := badger.New(ctx, logger, tSettings, location)
		if err != nil {
			return nil, err
		}

		return store, nil
	}
}
