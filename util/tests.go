package util

import (
	"os"
	"testing"
)

// SkipLongTests skips tests that write large amounts of data unless LONG_TESTS is set.
func SkipLongTests(t *testing.T) {
	t.Helper()

	if os.Getenv("LONG_TESTS") == "" {
		t.Skip("Skipping long running tests. Set LONG_TESTS=1 to run them.")
	}
}
