// Package ordering keeps sequences of positioned entities dense and
// zero-based. It is shared by modules-within-course and items-within-module.
package ordering

import (
	"fmt"
	"sort"

	"github.com/mind-engage/mindengage-courseware/internal/course"
)

// Indexed is an entity with a persisted position.
type Indexed[T any] interface {
	Key() string
	Index() int
	WithIndex(i int) T
}

// MoveTo removes the element at from and reinserts it at to. The returned
// slice is a fresh copy with OrderIndex rewritten to the array index. When
// from == to the input is returned unchanged.
func MoveTo[T Indexed[T]](items []T, from, to int) ([]T, error) {
	n := len(items)
	if from < 0 || from >= n {
		return nil, course.Invalid("from", fmt.Sprintf("index %d out of range [0,%d)", from, n))
	}
	if to < 0 || to >= n {
		return nil, course.Invalid("to", fmt.Sprintf("index %d out of range [0,%d)", to, n))
	}
	if from == to {
		return items, nil
	}
	out := make([]T, 0, n)
	moved := items[from]
	for i, it := range items {
		if i != from {
			out = append(out, it)
		}
	}
	out = append(out, moved)             // grow by one
	copy(out[to+1:], out[to:len(out)-1]) // shift right
	out[to] = moved
	return Reindex(out), nil
}

// Arrange reorders items to follow keys exactly. keys must be a permutation
// of the items' keys: an unknown key is a NotFoundError, a missing or
// duplicated key is a ValidationError.
func Arrange[T Indexed[T]](items []T, keys []string, resource string) ([]T, error) {
	byKey := make(map[string]T, len(items))
	for _, it := range items {
		byKey[it.Key()] = it
	}
	out := make([]T, 0, len(keys))
	used := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		it, ok := byKey[k]
		if !ok {
			return nil, course.NotFound(resource, k)
		}
		if _, dup := used[k]; dup {
			return nil, course.Invalid("order", "duplicate id "+k)
		}
		used[k] = struct{}{}
		out = append(out, it)
	}
	if len(out) != len(items) {
		return nil, course.Invalid("order", fmt.Sprintf("expected %d ids, got %d", len(items), len(out)))
	}
	return Reindex(out), nil
}

// Normalize sorts by stored index, breaking ties by key, and rewrites the
// indices to 0..n-1. It repairs payloads with duplicate or gapped positions
// without failing.
func Normalize[T Indexed[T]](items []T) []T {
	out := append([]T(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Index() != out[j].Index() {
			return out[i].Index() < out[j].Index()
		}
		return out[i].Key() < out[j].Key()
	})
	return Reindex(out)
}

// Reindex rewrites positions in place to match array order.
func Reindex[T Indexed[T]](items []T) []T {
	for i := range items {
		items[i] = items[i].WithIndex(i)
	}
	return items
}

// Dense reports whether positions are exactly 0..n-1 in array order.
func Dense[T Indexed[T]](items []T) bool {
	for i, it := range items {
		if it.Index() != i {
			return false
		}
	}
	return true
}

func Keys[T Indexed[T]](items []T) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Key()
	}
	return out
}

// Entries builds the kind-tagged payload for a module's mixed item list.
func Entries(items []course.ContentItem) []course.OrderEntry {
	out := make([]course.OrderEntry, len(items))
	for i, it := range items {
		kind := it.Kind
		if kind == "" {
			kind = course.KindMaterial
		}
		out[i] = course.OrderEntry{ID: it.ID, Kind: kind}
	}
	return out
}

// EntryKeys extracts ids from a kind-tagged payload.
func EntryKeys(entries []course.OrderEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}
