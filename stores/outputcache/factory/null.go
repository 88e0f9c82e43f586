package factory

import (
	"context"
	"net/url"

	"github.com/bsv-blockchain/outputcache/settings"
	"github.com/bsv-blockchain/outputcache/stores/outputcache"
	"github.com/bsv-blockchain/outputcache/stores/outputcache/nullstore"
	"github.com/bsv-blockchain/outputcache/ulogger"
)

func init() {
	availableDatabases["null"] = func(_ context.Context, logger ulogger.Logger, _ *settings.Settings, _ *url.URL) (outputcache.Store, error) {
		return nullstore.New(logger), nil
	}

	availableBackends["null"] = func(_ context.Context, logger ulogger.Logger, _ *settings.Settings, _ outputcache.Location) (outputcache.Store, error) {
		return nullstore.New(logger), nil
	}
}
