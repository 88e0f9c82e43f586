// Package nullstore is an output cache that remembers nothing. Every Get is a miss,
// which makes callers recompute every classification.
package nullstore

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/bsv-blockchain/outputcache/errors"
	"github.com/bsv-blockchain/outputcache/stores/outputcache"
	"github.com/bsv-blockchain/outputcache/ulogger"
)

type NullStore struct {
	logger ulogger.Logger
	closed atomic.Bool
}

func New(logger ulogger.Logger) *NullStore {
	return &NullStore{
		logger: logger,
	}
}

func (n *NullStore) Health(_ context.Context) (int, string, error) {
	if n.closed.Load() {
		return http.StatusServiceUnavailable, "Null store closed", errors.NewStorageUnavailableError("null store is closed")
	}

	return http.StatusOK, "Null store", nil
}

func (n *NullStore) Put(_ context.Context, txID []byte, index uint32, output *outputcache.CachedOutput) error {
	if err := output.Validate(); err != nil {
		return errors.NewInvalidArgumentError("[Put] cannot store output %x:%d", txID, index, err)
	}

	if n.closed.Load() {
		return errors.NewStorageUnavailableError("[Put] store is closed")
	}

	return nil
}

func (n *NullStore) Get(_ context.Context, _ []byte, _ uint32) (*outputcache.CachedOutput, bool, error) {
	if n.closed.Load() {
		return nil, false, errors.NewStorageUnavailableError("[Get] store is closed")
	}

	return nil, false, nil
}

func (n *NullStore) Commit(_ context.Context) error {
	if n.closed.Load() {
		return errors.NewStorageUnavailableError("[Commit] store is closed")
	}

	return nil
}

func (n *NullStore) Close(_ context.Context) error {
	n.closed.Store(true)

	return nil
}
