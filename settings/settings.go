// Package settings loads the output cache configuration from gocore's settings.conf,
// settings_local.conf and the environment.
package settings

func NewSettings() *Settings {
	return &Settings{
		ClientName: getString("clientName", "outputcache"),
		DataFolder: getString("dataFolder", "data"),
		LogLevel:   getString("logLevel", "INFO"),
		LoggerType: getString("logger", "zerolog"),
		OutputCache: OutputCacheSettings{
			StoreURL:             getURL("outputcache_store", "sqlite:///outputcache"),
			Backend:              getString("outputcache_backend", "sqlite"),
			DBTimeout:            getMillis("outputcache_dbTimeoutMillis", 5000),
			PostgresMaxIdleConns: getInt("outputcache_postgresMaxIdleConns", 10),
			PostgresMaxOpenConns: getInt("outputcache_postgresMaxOpenConns", 80),
			BadgerSyncWrites:     getBool("outputcache_badgerSyncWrites", true),
			BadgerNumMemtables:   getInt("outputcache_badgerNumMemtables", 5),
			LevelDBBlockCacheMB:  getInt("outputcache_leveldbBlockCacheMB", 8),
		},
	}
}
