package coverage

import (
	"sync"
	"sync/atomic"
)

// EntityKind is the kind of model entity a counter belongs to
type EntityKind uint8

const (
	EntityMethod EntityKind = iota + 1
	EntitySection
	EntitySequencePoint
	EntityCondition
)

// String returns the string representation of EntityKind
func (k EntityKind) String() string {
	switch k {
	case EntityMethod:
		return "method"
	case EntitySection:
		return "section"
	case EntitySequencePoint:
		return "sequence_point"
	case EntityCondition:
		return "condition"
	default:
		return "unknown"
	}
}

// HitKey addresses one visit counter. EntityID is the section id, the
// sequence point id, or the index of a condition in its method; it is 0
// for method counters.
type HitKey struct {
	AssemblyID int
	MethodID   int
	Kind       EntityKind
	EntityID   int
}

// MethodKey returns the counter key of a method
func MethodKey(assemblyID, methodID int) HitKey {
	return HitKey{AssemblyID: assemblyID, MethodID: methodID, Kind: EntityMethod}
}

// SectionKey returns the counter key of a code section
func SectionKey(assemblyID, methodID, sectionID int) HitKey {
	return HitKey{AssemblyID: assemblyID, MethodID: methodID, Kind: EntitySection, EntityID: sectionID}
}

// SequencePointKey returns the counter key of a sequence point
func SequencePointKey(assemblyID, methodID, pointID int) HitKey {
	return HitKey{AssemblyID: assemblyID, MethodID: methodID, Kind: EntitySequencePoint, EntityID: pointID}
}

// ConditionKey returns the counter key of the condition at index in its method
func ConditionKey(assemblyID, methodID, index int) HitKey {
	return HitKey{AssemblyID: assemblyID, MethodID: methodID, Kind: EntityCondition, EntityID: index}
}

// HitTable holds visit counters apart from the immutable model.
// All methods are safe for concurrent use; increments are never lost.
type HitTable struct {
	mu       sync.RWMutex
	counters map[HitKey]*atomic.Int64
}

// NewHitTable creates an empty table
func NewHitTable() *HitTable {
	return &HitTable{counters: make(map[HitKey]*atomic.Int64)}
}

func (h *HitTable) counter(key HitKey) *atomic.Int64 {
	h.mu.RLock()
	c, ok := h.counters[key]
	h.mu.RUnlock()
	if ok {
		return c
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok = h.counters[key]; ok {
		return c
	}
	c = &atomic.Int64{}
	h.counters[key] = c
	return c
}

// Visit increments the counter at key by one
func (h *HitTable) Visit(key HitKey) {
	h.counter(key).Add(1)
}

// Add increments the counter at key by n
func (h *HitTable) Add(key HitKey, n int64) {
	if n == 0 {
		return
	}
	h.counter(key).Add(n)
}

// Count returns the counter at key, 0 when never visited
func (h *HitTable) Count(key HitKey) int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.counters[key]; ok {
		return c.Load()
	}
	return 0
}

// Len returns the number of counters
func (h *HitTable) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.counters)
}

// Snapshot copies every non-zero counter
func (h *HitTable) Snapshot() map[HitKey]int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[HitKey]int64, len(h.counters))
	for k, c := range h.counters {
		if v := c.Load(); v != 0 {
			out[k] = v
		}
	}
	return out
}

// Replace overwrites the table with counts
func (h *HitTable) Replace(counts map[HitKey]int64) {
	fresh := make(map[HitKey]*atomic.Int64, len(counts))
	for k, v := range counts {
		c := &atomic.Int64{}
		c.Store(v)
		fresh[k] = c
	}
	h.mu.Lock()
	h.counters = fresh
	h.mu.Unlock()
}
