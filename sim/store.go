package sim

import "fmt"

// ID identifies an item held by a Store. IDs are dense indices handed out
// in insertion order and never reused.
type ID int

// A Store is an append-only collection with exclusive checkout semantics.
// An item either rests in its slot or is checked out by exactly one owner;
// while it is out, the slot reads as empty.
type Store[T any] struct {
	slots []storeSlot[T]
}

type storeSlot[T any] struct {
	item    T
	present bool
}

// NewStore creates an empty Store.
func NewStore[T any]() *Store[T] {
	return &Store[T]{}
}

// Add appends an item and returns the ID of the slot that now holds it.
// Adding never invalidates previously returned IDs.
func (s *Store[T]) Add(item T) ID {
	s.slots = append(s.slots, storeSlot[T]{item: item, present: true})
	return ID(len(s.slots) - 1)
}

// Len returns the number of slots ever allocated, whether or not their
// items are currently checked out. IDs 0 through Len()-1 enumerate every
// slot.
func (s *Store[T]) Len() int {
	return len(s.slots)
}

// Inspect reads an item without taking ownership. It reports false if the
// ID is out of range or the item is checked out.
func (s *Store[T]) Inspect(id ID) (T, bool) {
	if !s.inRange(id) || !s.slots[id].present {
		var zero T
		return zero, false
	}

	return s.slots[id].item, true
}

// Checkout takes exclusive ownership of an item, leaving its slot empty
// until the item is checked back in. It reports false if the ID is out of
// range or the item is already out.
func (s *Store[T]) Checkout(id ID) (T, bool) {
	if !s.inRange(id) || !s.slots[id].present {
		var zero T
		return zero, false
	}

	item := s.slots[id].item
	s.slots[id] = storeSlot[T]{}

	return item, true
}

// Checkin returns ownership of an item to an empty slot.
func (s *Store[T]) Checkin(id ID, item T) error {
	if !s.inRange(id) {
		return fmt.Errorf("%w: id %d out of range", ErrInvalidCheckin, id)
	}

	if s.slots[id].present {
		return fmt.Errorf("%w: slot %d is occupied", ErrInvalidCheckin, id)
	}

	s.slots[id] = storeSlot[T]{item: item, present: true}

	return nil
}

// Audit verifies that every slot holds its item. An empty store audits
// clean.
func (s *Store[T]) Audit() error {
	for id := range s.slots {
		if !s.slots[id].present {
			return fmt.Errorf("%w: id %d", ErrIncompleteAudit, id)
		}
	}

	return nil
}

func (s *Store[T]) inRange(id ID) bool {
	return id >= 0 && int(id) < len(s.slots)
}
