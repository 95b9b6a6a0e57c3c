package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
)

const (
	version    byte = 1
	kindRecord byte = 1
)

var (
	ErrCorrupt    = errors.New("beancache: corrupt passivated record")
	ErrKeyLen     = errors.New("beancache: invalid key length in record")
	ErrPayloadLen = errors.New("beancache: payload too large for record")
	magic4        = [...]byte{'B', 'E', 'A', 'N'}
)

// maxPayloadLen is what the u32 length field can describe.
var maxPayloadLen uint64 = math.MaxUint32

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Record is the passivated form of one bean.
type Record struct {
	Gen     uint64 // bean generation at passivation time
	Key     string // storage key; guards against records written under another key
	Payload []byte // codec output
}

// EncodeRecord:
//
//	magic(4) | ver(1) | kind(1) | gen(u64 be) | keyLen(u16 be) | key(keyLen) | vlen(u32 be) | payload(vlen)
func EncodeRecord(r Record) ([]byte, error) {
	if l := len(r.Key); l == 0 || l > 0xFFFF {
		return nil, ErrKeyLen
	}
	if uint64(len(r.Payload)) > maxPayloadLen {
		return nil, ErrPayloadLen
	}
	var buf bytes.Buffer
	buf.Grow(4 + 1 + 1 + 8 + 2 + len(r.Key) + 4 + len(r.Payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindRecord)

	var u8 [8]byte
	var u4 [4]byte
	var u2 [2]byte

	binary.BigEndian.PutUint64(u8[:], r.Gen)
	buf.Write(u8[:])

	binary.BigEndian.PutUint16(u2[:], uint16(len(r.Key)))
	buf.Write(u2[:])
	buf.WriteString(r.Key)

	binary.BigEndian.PutUint32(u4[:], uint32(len(r.Payload)))
	buf.Write(u4[:])
	buf.Write(r.Payload)
	return buf.Bytes(), nil
}

// DecodeRecord parses b. The returned payload aliases b.
func DecodeRecord(b []byte) (Record, error) {
	const hdr = 4 + 1 + 1 + 8 + 2
	if len(b) < hdr || !hasMagic(b) || b[4] != version || b[5] != kindRecord {
		return Record{}, ErrCorrupt
	}
	off := 6

	gen := binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	klen := int(binary.BigEndian.Uint16(b[off : off+2]))
	off += 2
	if klen == 0 || klen > len(b)-off {
		return Record{}, ErrCorrupt
	}
	key := string(b[off : off+klen])
	off += klen

	if off+4 > len(b) {
		return Record{}, ErrCorrupt
	}
	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen != len(b)-off { // exact: no trailing bytes
		return Record{}, ErrCorrupt
	}

	return Record{Gen: gen, Key: key, Payload: b[off : off+vlen]}, nil
}
