package codec

// Adapt encodes V through a Codec of its state type S.
// to extracts the state to store; from rebuilds a V from decoded state.
func Adapt[V, S any](inner Codec[S], to func(V) S, from func(S) V) Codec[V] {
	return adapted[V, S]{inner: inner, to: to, from: from}
}

type adapted[V, S any] struct {
	inner Codec[S]
	to    func(V) S
	from  func(S) V
}

func (a adapted[V, S]) Encode(v V) ([]byte, error) { return a.inner.Encode(a.to(v)) }
func (a adapted[V, S]) Decode(b []byte) (V, error) {
	s, err := a.inner.Decode(b)
	if err != nil {
		var zero V
		return zero, err
	}
	return a.from(s), nil
}
