package settings

import (
	"net/url"
	"time"

	"github.com/ordishs/gocore"
)

// Each helper falls back to defaultValue when the key is absent from settings.conf,
// settings_local.conf and the environment.

func getString(key, defaultValue string) string {
	if value, found := gocore.Config().Get(key); found {
		return value
	}

	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value, found := gocore.Config().GetInt(key); found {
		return value
	}

	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	return gocore.Config().GetBool(key, defaultValue)
}

// getMillis reads a whole number of milliseconds.
func getMillis(key string, defaultMillis int) time.Duration {
	return time.Duration(getInt(key, defaultMillis)) * time.Millisecond
}

// getURL returns nil when the configured value does not parse.
func getURL(key, defaultValue string) *url.URL {
	value, err, _ := gocore.Config().GetURL(key, defaultValue)
	if err != nil {
		return nil
	}

	return value
}
