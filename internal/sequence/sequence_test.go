package sequence_test

import (
	"reflect"
	"testing"

	"github.com/mind-engage/mindengage-courseware/internal/course"
	"github.com/mind-engage/mindengage-courseware/internal/sequence"
)

func scenario() []course.Module {
	return []course.Module{
		{ID: "empty", Title: "Later", OrderIndex: 1},
		{ID: "m1", Title: "Basics", OrderIndex: 0, Items: []course.ContentItem{
			{ID: "exam", Kind: course.KindEvaluation, OrderIndex: 2},
			{ID: "video", Kind: course.KindMaterial, MediaType: course.MediaVideo, OrderIndex: 0},
			{ID: "pdf", Kind: course.KindMaterial, MediaType: course.MediaPDF, OrderIndex: 1},
		}},
	}
}

func ids(s sequence.Sequence) []string {
	var out []string
	for _, e := range s.Entries() {
		out = append(out, e.Item.ID)
	}
	return out
}

func TestFlattenScenario(t *testing.T) {
	s := sequence.Flatten(scenario())
	if got := ids(s); !reflect.DeepEqual(got, []string{"video", "pdf", "exam"}) {
		t.Fatalf("flatten = %v", got)
	}
	for i, e := range s.Entries() {
		if e.Position != i || e.ModuleID != "m1" {
			t.Fatalf("entry %d = %+v", i, e)
		}
	}
	if got := s.ProgressPercent("pdf"); got != 67 {
		t.Fatalf("progress at pdf = %d, want 67", got)
	}
	if _, ok := s.Next("exam"); ok {
		t.Fatalf("next from last entry moved")
	}
	if _, ok := s.Previous("video"); ok {
		t.Fatalf("previous from first entry moved")
	}
	if e, ok := s.Next("video"); !ok || e.Item.ID != "pdf" {
		t.Fatalf("next(video) = %+v, %v", e, ok)
	}
	if e, ok := s.Previous("exam"); !ok || e.Item.ID != "pdf" {
		t.Fatalf("previous(exam) = %+v, %v", e, ok)
	}
}

func TestFlattenIdempotent(t *testing.T) {
	mods := scenario()
	a := sequence.Flatten(mods)
	b := sequence.Flatten(mods)
	if !reflect.DeepEqual(a.Entries(), b.Entries()) {
		t.Fatalf("flatten not idempotent")
	}
	if mods[0].ID != "empty" || mods[1].Items[0].ID != "exam" {
		t.Fatalf("input mutated: %+v", mods)
	}
}

func TestFlattenModuleOrderAndTies(t *testing.T) {
	mods := []course.Module{
		{ID: "b", OrderIndex: 0, Items: []course.ContentItem{{ID: "b2", OrderIndex: 0}, {ID: "b1", OrderIndex: 0}}},
		{ID: "a", OrderIndex: 0, Items: []course.ContentItem{{ID: "a1", OrderIndex: 5}}},
	}
	s := sequence.Flatten(mods)
	if got := ids(s); !reflect.DeepEqual(got, []string{"a1", "b1", "b2"}) {
		t.Fatalf("flatten = %v", got)
	}
}

func TestEmptySequence(t *testing.T) {
	s := sequence.Flatten(nil)
	if !s.Empty() || s.ProgressPercent("x") != 0 {
		t.Fatalf("empty sequence misbehaves")
	}
	if _, ok := s.First(); ok {
		t.Fatalf("first on empty")
	}
	if _, ok := s.Next("x"); ok {
		t.Fatalf("next on empty")
	}
}

func TestProgressPercent(t *testing.T) {
	mods := []course.Module{{ID: "m", Items: []course.ContentItem{
		{ID: "1", OrderIndex: 0}, {ID: "2", OrderIndex: 1}, {ID: "3", OrderIndex: 2}, {ID: "4", OrderIndex: 3},
		{ID: "5", OrderIndex: 4}, {ID: "6", OrderIndex: 5}, {ID: "7", OrderIndex: 6}, {ID: "8", OrderIndex: 7},
	}}}
	s := sequence.Flatten(mods)
	cases := map[string]int{"1": 13, "4": 50, "8": 100, "missing": 0}
	for id, want := range cases {
		if got := s.ProgressPercent(id); got != want {
			t.Errorf("ProgressPercent(%s) = %d, want %d", id, got, want)
		}
	}
}
