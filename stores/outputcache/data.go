package outputcache

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/go-bt/v2/bscript"
	"github.com/bsv-blockchain/outputcache/errors"
)

// OutputType is the classification of an output under the colored coin protocol.
// The numeric values are persisted and must never be renumbered.
type OutputType uint8

const (
	OutputTypeUncolored    OutputType = 0
	OutputTypeMarkerOutput OutputType = 1
	OutputTypeIssuance     OutputType = 2
	OutputTypeTransfer     OutputType = 3
)

func (t OutputType) String() string {
	switch t {
	case OutputTypeUncolored:
		return "uncolored"
	case OutputTypeMarkerOutput:
		return "marker_output"
	case OutputTypeIssuance:
		return "issuance"
	case OutputTypeTransfer:
		return "transfer"
	default:
		return fmt.Sprintf("OutputType(%d)", uint8(t))
	}
}

func (t OutputType) IsValid() bool {
	return t <= OutputTypeTransfer
}

// ParseOutputType converts a stored discriminator into an OutputType.
func ParseOutputType(v int64) (OutputType, error) {
	if v < 0 || v > int64(OutputTypeTransfer) {
		return 0, errors.NewEncodingError("unknown output type %d", v)
	}

	return OutputType(v), nil
}

// OutputTypeFromString parses the name printed by OutputType.String.
func OutputTypeFromString(name string) (OutputType, error) {
	for t := OutputTypeUncolored; t <= OutputTypeTransfer; t++ {
		if t.String() == name {
			return t, nil
		}
	}

	return 0, errors.NewInvalidArgumentError("unknown output type %q", name)
}

// CachedOutput is the classification result for a single transaction output.
//
// AssetAddress distinguishes nil (no asset) from an empty slice (an asset whose
// address is zero bytes long); both survive a round trip through every store.
type CachedOutput struct {
	Value         uint64
	LockingScript *bscript.Script
	AssetAddress  []byte
	AssetQuantity uint64
	OutputType    OutputType
}

const (
	encodingVersion byte = 0x01

	flagAssetAddress byte = 0x01

	// version, output type, flags, value, asset quantity
	headerSize = 1 + 1 + 1 + 8 + 8
)

// NewUncoloredOutput builds the cached form of a plain output.
func NewUncoloredOutput(output *bt.Output) *CachedOutput {
	return &CachedOutput{
		Value:         output.Satoshis,
		LockingScript: cloneScript(output.LockingScript),
		OutputType:    OutputTypeUncolored,
	}
}

// NewColoredOutput builds the cached form of an output carrying an asset.
func NewColoredOutput(output *bt.Output, assetAddress []byte, assetQuantity uint64, outputType OutputType) *CachedOutput {
	address := make([]byte, len(assetAddress))
	copy(address, assetAddress)

	return &CachedOutput{
		Value:         output.Satoshis,
		LockingScript: cloneScript(output.LockingScript),
		AssetAddress:  address,
		AssetQuantity: assetQuantity,
		OutputType:    outputType,
	}
}

// HasAssetAddress reports whether the output carries an asset address, which may be empty.
func (o *CachedOutput) HasAssetAddress() bool {
	return o.AssetAddress != nil
}

// ScriptBytes returns the raw locking script, never nil.
func (o *CachedOutput) ScriptBytes() []byte {
	if o.LockingScript == nil {
		return []byte{}
	}

	return *o.LockingScript
}

// Validate reports whether o can be stored. The cache does not judge the
// classification itself, only that the record can be persisted and read back.
func (o *CachedOutput) Validate() error {
	if o == nil {
		return errors.NewInvalidArgumentError("nil output")
	}

	if !o.OutputType.IsValid() {
		return errors.NewInvalidArgumentError("unknown output type %d", uint8(o.OutputType))
	}

	return nil
}

// Clone returns a deep copy. A nil script comes back as an empty script.
func (o *CachedOutput) Clone() *CachedOutput {
	if o == nil {
		return nil
	}

	c := &CachedOutput{
		Value:         o.Value,
		LockingScript: cloneScript(o.LockingScript),
		AssetQuantity: o.AssetQuantity,
		OutputType:    o.OutputType,
	}

	if o.AssetAddress != nil {
		c.AssetAddress = make([]byte, len(o.AssetAddress))
		copy(c.AssetAddress, o.AssetAddress)
	}

	return c
}

func (o *CachedOutput) Equal(other *CachedOutput) bool {
	if o == nil || other == nil {
		return o == other
	}

	return o.Value == other.Value &&
		o.AssetQuantity == other.AssetQuantity &&
		o.OutputType == other.OutputType &&
		o.HasAssetAddress() == other.HasAssetAddress() &&
		bytes.Equal(o.AssetAddress, other.AssetAddress) &&
		bytes.Equal(o.ScriptBytes(), other.ScriptBytes())
}

func (o *CachedOutput) String() string {
	if o == nil {
		return "<nil>"
	}

	address := "none"
	if o.HasAssetAddress() {
		address = fmt.Sprintf("%x", o.AssetAddress)
	}

	return fmt.Sprintf("{Value %d, LockingScript %d bytes, AssetAddress %s, AssetQuantity %d, OutputType %s}",
		o.Value, len(o.ScriptBytes()), address, o.AssetQuantity, o.OutputType)
}

// Bytes serializes the output for the key-value stores:
//
//	version | output type | flags | value (LE) | asset quantity (LE) | varint script len | script | [varint address len | address]
func (o *CachedOutput) Bytes() []byte {
	script := o.ScriptBytes()

	size := headerSize + bt.VarInt(uint64(len(script))).Length() + len(script)
	if o.HasAssetAddress() {
		size += bt.VarInt(uint64(len(o.AssetAddress))).Length() + len(o.AssetAddress)
	}

	buf := make([]byte, headerSize, size)

	buf[0] = encodingVersion
	buf[1] = byte(o.OutputType)

	if o.HasAssetAddress() {
		buf[2] = flagAssetAddress
	}

	binary.LittleEndian.PutUint64(buf[3:11], o.Value)
	binary.LittleEndian.PutUint64(buf[11:19], o.AssetQuantity)

	buf = append(buf, bt.VarInt(uint64(len(script))).Bytes()...)
	buf = append(buf, script...)

	if o.HasAssetAddress() {
		buf = append(buf, bt.VarInt(uint64(len(o.AssetAddress))).Bytes()...)
		buf = append(buf, o.AssetAddress...)
	}

	return buf
}

// NewCachedOutputFromBytes decodes the output written by Bytes. The result never
// aliases b. Anything that does not decode exactly is an encoding error.
func NewCachedOutputFromBytes(b []byte) (*CachedOutput, error) {
	if len(b) < headerSize {
		return nil, errors.NewEncodingError("cached output is %d bytes, need at least %d", len(b), headerSize)
	}

	if b[0] != encodingVersion {
		return nil, errors.NewEncodingError("unsupported cached output version %d", b[0])
	}

	outputType, err := ParseOutputType(int64(b[1]))
	if err != nil {
		return nil, err
	}

	flags := b[2]
	if flags&^flagAssetAddress != 0 {
		return nil, errors.NewEncodingError("unknown cached output flags %#x", flags)
	}

	o := &CachedOutput{
		Value:         binary.LittleEndian.Uint64(b[3:11]),
		AssetQuantity: binary.LittleEndian.Uint64(b[11:19]),
		OutputType:    outputType,
	}

	pos := headerSize

	script, pos, err := readVarBytes(b, pos, "locking script")
	if err != nil {
		return nil, err
	}

	s := bscript.Script(script)
	o.LockingScript = &s

	if flags&flagAssetAddress != 0 {
		if o.AssetAddress, pos, err = readVarBytes(b, pos, "asset address"); err != nil {
			return nil, err
		}
	}

	if pos != len(b) {
		return nil, errors.NewEncodingError("%d trailing bytes after cached output", len(b)-pos)
	}

	return o, nil
}

// readVarBytes reads a varint length prefixed field starting at pos and returns a copy
// of it together with the position after it.
func readVarBytes(b []byte, pos int, field string) ([]byte, int, error) {
	if pos >= len(b) {
		return nil, pos, errors.NewEncodingError("missing %s length", field)
	}

	if len(b)-pos < varIntSize(b[pos]) {
		return nil, pos, errors.NewEncodingError("truncated %s length", field)
	}

	length, n := bt.NewVarIntFromBytes(b[pos:])
	pos += n

	if uint64(len(b)-pos) < uint64(length) {
		return nil, pos, errors.NewEncodingError("%s needs %d bytes, only %d left", field, uint64(length), len(b)-pos)
	}

	out := make([]byte, int(length))
	copy(out, b[pos:pos+int(length)])

	return out, pos + int(length), nil
}

func varIntSize(prefix byte) int {
	switch prefix {
	case 0xff:
		return 9
	case 0xfe:
		return 5
	case 0xfd:
		return 3
	default:
		return 1
	}
}

func cloneScript(script *bscript.Script) *bscript.Script {
	s := bscript.Script{}
	if script != nil {
		s = make(bscript.Script, len(*script))
		copy(s, *script)
	}

	return &s
}
