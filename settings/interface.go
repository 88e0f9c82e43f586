package settings

import (
	"net/url"
	"time"
)

type OutputCacheSettings struct {
	// StoreURL selects the backend by scheme, e.g. sqlite:///outputcache or badgermemory:///
	StoreURL *url.URL
	// Backend is used when the cache is opened from a Location rather than a URL.
	Backend              string
	DBTimeout            time.Duration
	PostgresMaxIdleConns int
	PostgresMaxOpenConns int
	BadgerSyncWrites     bool
	BadgerNumMemtables   int
	LevelDBBlockCacheMB  int
}

type Settings struct {
	ClientName  string
	DataFolder  string
	LogLevel    string
	LoggerType  string
	OutputCache OutputCacheSettings
}
