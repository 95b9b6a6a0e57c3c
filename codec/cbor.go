package codec

import (
	"github.com/fxamacker/cbor/v2"
)

// CBOR encodes with fxamacker/cbor. Build it with NewCBOR or MustCBOR; the
// zero value has no modes and panics on use.
//
// Decoding rejects duplicate map keys and caps nesting and container sizes,
// so a damaged record fails Decode and the bean is dropped as lost instead of
// coming back half-populated.
type CBOR[V any] struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var _ Codec[struct{}] = CBOR[struct{}]{}

var recordDecOptions = cbor.DecOptions{
	DupMapKey:        cbor.DupMapKeyEnforcedAPF,
	MaxNestedLevels:  64,
	MaxArrayElements: 1 << 20,
	MaxMapPairs:      1 << 20,
}

// NewCBOR returns a CBOR codec. Deterministic selects RFC 8949 core
// deterministic encoding, which makes equal beans produce equal records.
func NewCBOR[V any](deterministic bool) (CBOR[V], error) {
	eo := cbor.PreferredUnsortedEncOptions()
	if deterministic {
		eo = cbor.CoreDetEncOptions()
	}
	eo.Time = cbor.TimeRFC3339Nano

	var c CBOR[V]
	var err error
	if c.enc, err = eo.EncMode(); err != nil {
		return CBOR[V]{}, err
	}
	if c.dec, err = recordDecOptions.DecMode(); err != nil {
		return CBOR[V]{}, err
	}
	return c, nil
}

// MustCBOR is NewCBOR for package-level vars and tests.
func MustCBOR[V any](deterministic bool) CBOR[V] {
	c, err := NewCBOR[V](deterministic)
	if err != nil {
		panic(err)
	}
	return c
}

func (c CBOR[V]) Encode(v V) ([]byte, error) { return c.enc.Marshal(v) }
func (c CBOR[V]) Decode(b []byte) (V, error) {
	var v V
	if err := c.dec.Unmarshal(b, &v); err != nil {
		var zero V
		return zero, err
	}
	return v, nil
}
