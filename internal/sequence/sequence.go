// Package sequence projects a course hierarchy into the single linear list a
// learner walks through.
package sequence

import (
	"math"

	"github.com/mind-engage/mindengage-courseware/internal/course"
	"github.com/mind-engage/mindengage-courseware/internal/ordering"
)

// Entry is a read-only projection of one content item.
type Entry struct {
	Item     course.ContentItem
	ModuleID string
	Position int
}

// Sequence is immutable once built; rebuild it on every hierarchy load.
type Sequence struct {
	entries []Entry
	index   map[string]int
}

// Flatten walks modules by ascending orderIndex and, inside each, items by
// ascending orderIndex (ties broken by id). The input is not modified.
func Flatten(modules []course.Module) Sequence {
	mods := ordering.Normalize(modules)
	s := Sequence{index: map[string]int{}}
	for _, m := range mods {
		for _, it := range ordering.Normalize(m.Items) {
			if _, dup := s.index[it.ID]; dup {
				continue
			}
			if it.ModuleID == "" {
				it.ModuleID = m.ID
			}
			s.index[it.ID] = len(s.entries)
			s.entries = append(s.entries, Entry{Item: it, ModuleID: m.ID, Position: len(s.entries)})
		}
	}
	return s
}

func (s Sequence) Len() int { return len(s.entries) }

func (s Sequence) Empty() bool { return len(s.entries) == 0 }

// Entries returns a copy of the flattened list.
func (s Sequence) Entries() []Entry {
	return append([]Entry(nil), s.entries...)
}

func (s Sequence) At(pos int) (Entry, bool) {
	if pos < 0 || pos >= len(s.entries) {
		return Entry{}, false
	}
	return s.entries[pos], true
}

// IndexOf returns the absolute position of id, or -1.
func (s Sequence) IndexOf(id string) int {
	if i, ok := s.index[id]; ok {
		return i
	}
	return -1
}

func (s Sequence) Lookup(id string) (Entry, bool) {
	return s.At(s.IndexOf(id))
}

func (s Sequence) First() (Entry, bool) { return s.At(0) }

// Next returns the entry after current. ok is false at the last entry; an
// unknown current starts from the beginning.
func (s Sequence) Next(current string) (Entry, bool) {
	return s.At(s.IndexOf(current) + 1)
}

// Previous returns the entry before current; ok is false at the first entry
// or when current is unknown.
func (s Sequence) Previous(current string) (Entry, bool) {
	i := s.IndexOf(current)
	if i <= 0 {
		return Entry{}, false
	}
	return s.At(i - 1)
}

// ProgressPercent is (position+1)/total*100 rounded half up; 0 for an empty
// sequence or an unknown item.
func (s Sequence) ProgressPercent(current string) int {
	n := len(s.entries)
	if n == 0 {
		return 0
	}
	i := s.IndexOf(current)
	return int(math.Floor(float64(i+1)/float64(n)*100 + 0.5))
}
