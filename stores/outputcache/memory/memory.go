// Package memory is a map backed output cache for tests and short lived tools.
// Everything is lost when the process exits, so Commit has nothing to do.
package memory

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/bsv-blockchain/outputcache/errors"
	"github.com/bsv-blockchain/outputcache/stores/outputcache"
	"github.com/bsv-blockchain/outputcache/ulogger"
)

type Memory struct {
	mu      sync.Mutex
	logger  ulogger.Logger
	outputs map[string]*outputcache.CachedOutput
	closed  bool
}

func New(logger ulogger.Logger) *Memory {
	return &Memory{
		logger:  logger,
		outputs: make(map[string]*outputcache.CachedOutput),
	}
}

func (m *Memory) Health(_ context.Context) (int, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return http.StatusServiceUnavailable, "Memory store closed", errors.NewStorageUnavailableError("memory store is closed")
	}

	return http.StatusOK, fmt.Sprintf("Memory store holding %d outputs", len(m.outputs)), nil
}

func (m *Memory) Put(_ context.Context, txID []byte, index uint32, output *outputcache.CachedOutput) error {
	if err := output.Validate(); err != nil {
		return errors.NewInvalidArgumentError("[Put] cannot store output %x:%d", txID, index, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.NewStorageUnavailableError("[Put] store is closed")
	}

	m.outputs[outputcache.NewOutputKey(txID, index).String()] = output.Clone()

	return nil
}

func (m *Memory) Get(_ context.Context, txID []byte, index uint32) (*outputcache.CachedOutput, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, false, errors.NewStorageUnavailableError("[Get] store is closed")
	}

	output, ok := m.outputs[outputcache.NewOutputKey(txID, index).String()]
	if !ok {
		return nil, false, nil
	}

	return output.Clone(), true, nil
}

func (m *Memory) Commit(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.NewStorageUnavailableError("[Commit] store is closed")
	}

	return nil
}

func (m *Memory) Close(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.outputs = nil

	return nil
}
