package health

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/bsv-blockchain/outputcache/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func check(status int, message string, err error) func(context.Context) (int, string, error) {
	return func(context.Context) (int, string, error) {
		return status, message, err
	}
}

func TestCheckAllHealthy(t *testing.T) {
	status, details, err := CheckAll(context.Background(), []Check{
		{Name: "OutputCache", Check: check(http.StatusOK, "Badger Store available", nil)},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)

	var r report
	require.NoError(t, json.Unmarshal([]byte(details), &r))
	assert.Equal(t, http.StatusOK, r.Status)
	require.Len(t, r.Dependencies, 1)
	assert.Equal(t, "OutputCache", r.Dependencies[0].Resource)
	assert.Equal(t, "Badger Store available", r.Dependencies[0].Message)
	assert.Empty(t, r.Dependencies[0].Error)
}

func TestCheckAllUnhealthy(t *testing.T) {
	status, details, err := CheckAll(context.Background(), []Check{
		{Name: "first", Check: check(http.StatusOK, "ok", nil)},
		{Name: "second", Check: check(http.StatusServiceUnavailable, "closed", errors.NewStorageUnavailableError("store is closed"))},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, status)

	var r report
	require.NoError(t, json.Unmarshal([]byte(details), &r))
	require.Len(t, r.Dependencies, 2)
	assert.Contains(t, r.Dependencies[1].Error, "store is closed")
}

func TestCheckAllNoChecks(t *testing.T) {
	status, details, err := CheckAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":200,"dependencies":[]}`, details)
}
