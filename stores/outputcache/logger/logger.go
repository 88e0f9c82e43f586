// Package logger wraps an output cache and logs every call, with its result and the
// call site, at INFO level. The factory enables it with logging=true on the store URL.
package logger

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/bsv-blockchain/outputcache/stores/outputcache"
	"github.com/bsv-blockchain/outputcache/ulogger"
)

const modulePath = "github.com/bsv-blockchain/outputcache/"

type Store struct {
	logger ulogger.Logger
	store  outputcache.Store
}

func New(logger ulogger.Logger, store outputcache.Store) outputcache.Store {
	return &Store{
		logger: logger,
		store:  store,
	}
}

func caller() string {
	var callers []string

	depth := 3

	for i := 0; i < depth; i++ {
		pc, file, line, ok := runtime.Caller(2 + i)
		if !ok {
			break
		}

		if idx := strings.Index(file, modulePath); idx >= 0 {
			file = file[idx+len(modulePath):]
		} else {
			file = filepath.Base(file)
		}

		funcName := runtime.FuncForPC(pc).Name()
		funcPaths := strings.Split(funcName, "/")
		funcName = funcPaths[len(funcPaths)-1]

		callers = append(callers, fmt.Sprintf("called from %s: %s:%d", funcName, file, line))
	}

	return strings.Join(callers, ",")
}

func (s *Store) Health(ctx context.Context) (int, string, error) {
	status, details, err := s.store.Health(ctx)
	s.logger.Infof("[OutputCache][logger][Health] status %d details %s err %v : %s", status, details, err, caller())

	return status, details, err
}

func (s *Store) Put(ctx context.Context, txID []byte, index uint32, output *outputcache.CachedOutput) error {
	err := s.store.Put(ctx, txID, index, output)
	s.logger.Infof("[OutputCache][logger][Put] key %s output %s err %v : %s", outputcache.NewOutputKey(txID, index), output, err, caller())

	return err
}

func (s *Store) Get(ctx context.Context, txID []byte, index uint32) (*outputcache.CachedOutput, bool, error) {
	output, found, err := s.store.Get(ctx, txID, index)
	s.logger.Infof("[OutputCache][logger][Get] key %s found %t output %s err %v : %s", outputcache.NewOutputKey(txID, index), found, output, err, caller())

	return output, found, err
}

func (s *Store) Commit(ctx context.Context) error {
	err := s.store.Commit(ctx)
	s.logger.Infof("[OutputCache][logger][Commit] err %v : %s", err, caller())

	return err
}

func (s *Store) Close(ctx context.Context) error {
	err := s.store.Close(ctx)
	s.logger.Infof("[OutputCache][logger][Close] err %v : %s", err, caller())

	return err
}
