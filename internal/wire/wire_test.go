package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"
)

func mustEncode(t *testing.T, r Record) []byte {
	t.Helper()
	b, err := EncodeRecord(r)
	if err != nil {
		t.Fatalf("EncodeRecord error: %v", err)
	}
	return b
}

func TestRecordRoundTrip(t *testing.T) {
	cases := []Record{
		{Gen: 0, Key: "k", Payload: nil},
		{Gen: 42, Key: "bean:sfsb:42", Payload: []byte("hello")},
		{Gen: math.MaxUint64, Key: strings.Repeat("x", 0xFFFF), Payload: []byte{0, 1, 2, 3, 4}},
	}
	for _, tc := range cases {
		got, err := DecodeRecord(mustEncode(t, tc))
		if err != nil {
			t.Fatalf("DecodeRecord error: %v", err)
		}
		if got.Gen != tc.Gen || got.Key != tc.Key || !bytes.Equal(got.Payload, tc.Payload) {
			t.Fatalf("round trip mismatch: got gen=%d key=%d bytes payload=%x", got.Gen, len(got.Key), got.Payload)
		}
	}
}

func TestEncodeRejectsBadKeyLength(t *testing.T) {
	if _, err := EncodeRecord(Record{Key: ""}); !errors.Is(err, ErrKeyLen) {
		t.Fatalf("empty key: want ErrKeyLen, got %v", err)
	}
	if _, err := EncodeRecord(Record{Key: strings.Repeat("x", 0x10000)}); !errors.Is(err, ErrKeyLen) {
		t.Fatalf("oversized key: want ErrKeyLen, got %v", err)
	}
}

func TestEncodeRejectsOversizedPayload(t *testing.T) {
	if maxPayloadLen != math.MaxUint32 {
		t.Fatalf("limit should match the u32 length field, got %d", maxPayloadLen)
	}
	defer func(old uint64) { maxPayloadLen = old }(maxPayloadLen)
	maxPayloadLen = 4

	if _, err := EncodeRecord(Record{Key: "k", Payload: []byte("12345")}); !errors.Is(err, ErrPayloadLen) {
		t.Fatalf("want ErrPayloadLen, got %v", err)
	}
	b := mustEncode(t, Record{Key: "k", Payload: []byte("1234")})
	if r, err := DecodeRecord(b); err != nil || string(r.Payload) != "1234" {
		t.Fatalf("payload at the limit: %q %v", r.Payload, err)
	}
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	enc := mustEncode(t, Record{Gen: 7, Key: "k", Payload: []byte("x")})
	enc = append(enc, 0xDE, 0xAD)
	if _, err := DecodeRecord(enc); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt on trailing bytes, got %v", err)
	}
}

func TestDecodeCorruptHeadersAndLengths(t *testing.T) {
	enc := mustEncode(t, Record{Gen: 1, Key: "key", Payload: []byte("abc")})

	mutate := func(f func([]byte)) []byte {
		b := append([]byte(nil), enc...)
		f(b)
		return b
	}
	cases := map[string][]byte{
		"bad magic":     mutate(func(b []byte) { b[0] = 'X' }),
		"bad version":   mutate(func(b []byte) { b[4] = version + 1 }),
		"bad kind":      mutate(func(b []byte) { b[5] = kindRecord + 1 }),
		"zero key len":  mutate(func(b []byte) { binary.BigEndian.PutUint16(b[14:16], 0) }),
		"huge key len":  mutate(func(b []byte) { binary.BigEndian.PutUint16(b[14:16], 0xFFFF) }),
		"short payload": mutate(func(b []byte) { binary.BigEndian.PutUint32(b[19:23], 100) }),
		"truncated":     enc[:len(enc)-1],
		"header only":   enc[:10],
		"empty":         nil,
	}
	for name, b := range cases {
		if _, err := DecodeRecord(b); !errors.Is(err, ErrCorrupt) {
			t.Fatalf("%s: expected ErrCorrupt, got %v", name, err)
		}
	}
}
