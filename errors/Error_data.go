package errors

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Keys of the data attached by WithOutput.
const (
	DataTxID        = "txid"
	DataOutputIndex = "output_index"
)

type ErrDataI interface {
	Error() string
	GetData(key string) interface{}
	SetData(key string, value interface{})
}

// ErrData holds key-value context for an *Error.
type ErrData map[string]interface{}

// Error prints the pairs sorted by key so messages are stable.
func (e *ErrData) Error() string {
	if e == nil || len(*e) == 0 {
		return ""
	}

	keys := make([]string, 0, len(*e))
	for k := range *e {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, (*e)[k]))
	}

	return strings.Join(pairs, " ")
}

func (e *ErrData) SetData(key string, value interface{}) {
	if e == nil {
		return
	}

	(*e)[key] = value
}

func (e *ErrData) GetData(key string) interface{} {
	if e == nil {
		return nil
	}

	return (*e)[key]
}

// WithOutput records the output an error is about. The txid is stored hex encoded in
// stored byte order. Errors that are not an *Error are returned as they are.
func WithOutput(err error, txID []byte, index uint32) error {
	var tErr *Error
	if !errors.As(err, &tErr) {
		return err
	}

	tErr.SetData(DataTxID, hex.EncodeToString(txID))
	tErr.SetData(DataOutputIndex, index)

	return err
}
