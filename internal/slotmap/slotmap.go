// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package slotmap provides an insertion-ordered arena addressed by
// generation-tagged keys.
//
// Insert, Get and Remove are O(1). Iteration visits live values in
// insertion order. A key whose slot has been reused never resolves,
// because every reuse bumps the slot generation.
//
// Map is not safe for concurrent use.
package slotmap

// Key addresses a value in a Map. The zero Key is never valid.
type Key uint64

func makeKey(index, gen uint32) Key { return Key(uint64(gen)<<32 | uint64(index)) }

func (k Key) index() uint32 { return uint32(k) }
func (k Key) gen() uint32   { return uint32(k >> 32) }

// IsZero reports whether k is the zero key.
func (k Key) IsZero() bool { return k == 0 }

const nilIndex = -1

type slot[V any] struct {
	value V
	gen   uint32
	used  bool

	// Links of the insertion-order list, as slot indices.
	prev, next int32
}

// Map is an insertion-ordered arena of values.
type Map[V any] struct {
	slots []slot[V]
	free  []uint32

	head, tail int32
	len        int
}

// New creates an empty map.
func New[V any]() *Map[V] {
	return &Map[V]{head: nilIndex, tail: nilIndex}
}

// Len returns the number of live values.
func (m *Map[V]) Len() int { return m.len }

// Insert appends v and returns its key.
func (m *Map[V]) Insert(v V) Key {
	var idx uint32
	if n := len(m.free); n > 0 {
		idx = m.free[n-1]
		m.free = m.free[:n-1]
	} else {
		//nolint:gosec // G115: slot count is bounded by memory long before 2^32
		idx = uint32(len(m.slots))
		m.slots = append(m.slots, slot[V]{})
	}

	s := &m.slots[idx]
	s.gen++
	if s.gen == 0 {
		// Generation zero is reserved for the zero Key.
		s.gen = 1
	}
	s.value = v
	s.used = true
	s.next = nilIndex
	s.prev = m.tail
	if m.tail != nilIndex {
		m.slots[m.tail].next = int32(idx)
	} else {
		m.head = int32(idx)
	}
	m.tail = int32(idx)
	m.len++

	return makeKey(idx, s.gen)
}

// lookup returns the slot index for k, or nilIndex.
func (m *Map[V]) lookup(k Key) int32 {
	idx := k.index()
	if k.IsZero() || int(idx) >= len(m.slots) {
		return nilIndex
	}
	s := &m.slots[idx]
	if !s.used || s.gen != k.gen() {
		return nilIndex
	}
	return int32(idx)
}

// Get returns the value for k.
func (m *Map[V]) Get(k Key) (V, bool) {
	idx := m.lookup(k)
	if idx == nilIndex {
		var zero V
		return zero, false
	}
	return m.slots[idx].value, true
}

// Contains reports whether k addresses a live value.
func (m *Map[V]) Contains(k Key) bool { return m.lookup(k) != nilIndex }

// Remove deletes the value for k and returns it.
func (m *Map[V]) Remove(k Key) (V, bool) {
	idx := m.lookup(k)
	if idx == nilIndex {
		var zero V
		return zero, false
	}
	return m.removeAt(idx), true
}

func (m *Map[V]) removeAt(idx int32) V {
	s := &m.slots[idx]
	if s.prev != nilIndex {
		m.slots[s.prev].next = s.next
	} else {
		m.head = s.next
	}
	if s.next != nilIndex {
		m.slots[s.next].prev = s.prev
	} else {
		m.tail = s.prev
	}

	v := s.value
	var zero V
	s.value = zero
	s.used = false
	s.prev, s.next = nilIndex, nilIndex
	m.free = append(m.free, uint32(idx))
	m.len--
	return v
}

// Each calls fn for every live value in insertion order until fn
// returns false. fn must not modify the map.
func (m *Map[V]) Each(fn func(Key, V) bool) {
	for i := m.head; i != nilIndex; i = m.slots[i].next {
		s := &m.slots[i]
		if !fn(makeKey(uint32(i), s.gen), s.value) {
			return
		}
	}
}

// Values returns the live values in insertion order.
func (m *Map[V]) Values() []V {
	out := make([]V, 0, m.len)
	m.Each(func(_ Key, v V) bool {
		out = append(out, v)
		return true
	})
	return out
}

// RemoveFunc removes every value for which pred returns true and
// returns the removed values in insertion order. Survivors keep their
// keys and relative order.
func (m *Map[V]) RemoveFunc(pred func(V) bool) []V {
	var removed []V
	for i := m.head; i != nilIndex; {
		next := m.slots[i].next
		if pred(m.slots[i].value) {
			removed = append(removed, m.removeAt(i))
		}
		i = next
	}
	return removed
}

// Clear removes every value and returns them in insertion order.
func (m *Map[V]) Clear() []V {
	return m.RemoveFunc(func(V) bool { return true })
}
