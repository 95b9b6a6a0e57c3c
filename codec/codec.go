// Package codec turns bean instances into bytes for passivation and back.
//
// Only exported state survives passivation: the batch a value carries while
// pinned is in-process and never encoded (every codec here skips unexported
// fields). Passivation only happens to unpinned beans, which carry no batch.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
