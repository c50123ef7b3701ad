package analyzer

import "sync/atomic"

// Sequence hands out increasing integer ids.
// A Sequence belongs to one build and is safe for concurrent use.
type Sequence struct {
	next atomic.Int64
}

// NewSequence creates a sequence whose first id is start
func NewSequence(start int) *Sequence {
	s := &Sequence{}
	s.next.Store(int64(start))
	return s
}

// Next returns the next id
func (s *Sequence) Next() int {
	return int(s.next.Add(1) - 1)
}
