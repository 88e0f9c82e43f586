package outputcache

import (
	"encoding/binary"
	"fmt"

	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/ordishs/go-utils"
)

// KeyPrefix marks record keys in the key-value stores so they never collide with
// store metadata.
const KeyPrefix byte = 'O'

// OutputKey identifies an output by the id of its transaction and its position in it.
// The transaction id is opaque and may be any length.
type OutputKey struct {
	TxID  []byte
	Index uint32
}

func NewOutputKey(txID []byte, index uint32) OutputKey {
	return OutputKey{TxID: txID, Index: index}
}

// Bytes is the key-value store encoding: prefix | varint txid len | txid | index (BE).
// The length prefix keeps keys for txids of different lengths from overlapping.
func (k OutputKey) Bytes() []byte {
	l := bt.VarInt(uint64(len(k.TxID)))

	buf := make([]byte, 0, 1+l.Length()+len(k.TxID)+4)
	buf = append(buf, KeyPrefix)
	buf = append(buf, l.Bytes()...)
	buf = append(buf, k.TxID...)
	buf = binary.BigEndian.AppendUint32(buf, k.Index)

	return buf
}

// String is used as the map key by the in-memory store and in log lines.
func (k OutputKey) String() string {
	return fmt.Sprintf("%x:%d", k.TxID, k.Index)
}

// DisplayString prints a 32 byte transaction hash the way block explorers do, byte
// reversed.
func (k OutputKey) DisplayString() string {
	return fmt.Sprintf("%s:%d", utils.ReverseAndHexEncodeSlice(k.TxID), k.Index)
}
