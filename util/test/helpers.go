package test

import (
	"time"

	"github.com/bsv-blockchain/outputcache/settings"
)

// CreateBaseTestSettings returns the default settings tuned for tests: generous
// timeouts and no fsync on the badger backend.
func CreateBaseTestSettings() *settings.Settings {
	tSettings := settings.NewSettings()
	tSettings.LogLevel = "DEBUG"
	tSettings.OutputCache.DBTimeout = 30 * time.Second
	tSettings.OutputCache.BadgerSyncWrites = false
	tSettings.OutputCache.BadgerNumMemtables = 2

	return tSettings
}
