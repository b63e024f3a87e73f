package dn2id

import (
	"sort"

	"github.com/KilimcininKorOglu/obakv/internal/storage"
)

// Hole is a placeholder node created for a missing ancestor.
type Hole struct {
	ID storage.ID
	DN string
}

// Holes is the pending list of placeholders of a load session, kept sorted
// by ID. It is not safe for concurrent use.
type Holes struct {
	list []Hole
}

// Add records a new placeholder.
func (h *Holes) Add(id storage.ID, dn string) {
	n := len(h.list)
	if n == 0 || h.list[n-1].ID < id {
		h.list = append(h.list, Hole{ID: id, DN: dn})
		return
	}
	i := sort.Search(n, func(i int) bool { return h.list[i].ID >= id })
	if i < n && h.list[i].ID == id {
		return
	}
	h.list = append(h.list, Hole{})
	copy(h.list[i+1:], h.list[i:])
	h.list[i] = Hole{ID: id, DN: dn}
}

// Fill removes the placeholder with the given ID and reports whether it was
// pending. The scan stops at the first larger ID.
func (h *Holes) Fill(id storage.ID) bool {
	for i, hole := range h.list {
		if hole.ID > id {
			break
		}
		if hole.ID == id {
			h.list = append(h.list[:i], h.list[i+1:]...)
			return true
		}
	}
	return false
}

// Contains reports whether id is a pending placeholder.
func (h *Holes) Contains(id storage.ID) bool {
	for _, hole := range h.list {
		if hole.ID > id {
			break
		}
		if hole.ID == id {
			return true
		}
	}
	return false
}

// Len returns the number of pending placeholders.
func (h *Holes) Len() int {
	return len(h.list)
}

// List returns a copy of the pending placeholders in ID order.
func (h *Holes) List() []Hole {
	return append([]Hole(nil), h.list...)
}

// Snapshot captures the list so a failed transaction can roll it back.
func (h *Holes) Snapshot() []Hole {
	return h.List()
}

// Restore replaces the list with a snapshot.
func (h *Holes) Restore(snap []Hole) {
	h.list = append(h.list[:0], snap...)
}
