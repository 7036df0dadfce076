package playback

import "iter"

// Source yields the frames of one stream. *framestore.Reader satisfies it.
type Source interface {
	Len() int
	All() iter.Seq2[int, []byte]
	Err() error
}

// SliceSource is an in-memory Source.
type SliceSource [][]byte

// Len implements Source.
func (s SliceSource) Len() int { return len(s) }

// All implements Source.
func (s SliceSource) All() iter.Seq2[int, []byte] {
	return func(yield func(int, []byte) bool) {
		for i, f := range s {
			if !yield(i, f) {
				return
			}
		}
	}
}

// Err implements Source. It is always nil.
func (SliceSource) Err() error { return nil }
