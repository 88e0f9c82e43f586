package factory

import (
	"context"
	"net/url"

	"github.com/bsv-blockchain/outputcache/errors"
	"github.com/bsv-blockchain/outputcache/settings"
	"github.com/bsv-blockchain/outputcache/stores/outputcache"
	"github.com/bsv-blockchain/outputcache/stores/outputcache/memory"
	"github.com/bsv-blockchain/outputcache/ulogger"
)

func init() {
	availableDatabases["memory"] = func(_ context.Context, logger ulogger.Logger, _ *settings.Settings, _ *url.URL) (outputcache.Store, error) {
		return memory.New(logger), nil
	}

	availableBackends["memory"] = func(_ context.Context, logger ulogger.Logger, _ *settings.Settings, location outputcache.Location) (outputcache.Store, error) {
		if location.IsDurable() {
			return nil, errors.NewConfigurationError("the memory backend cannot persist to %s", location)
		}

		return memory.New(logger), nil
	}
}
