package position_test

import (
	"context"
	"testing"

	"github.com/mind-engage/mindengage-courseware/internal/position"
)

func TestKeyStringIsUnambiguous(t *testing.T) {
	a := position.Key{LearnerID: "a:b", CourseID: "c"}
	b := position.Key{LearnerID: "a", CourseID: "b:c"}
	if a.String() == b.String() {
		t.Fatalf("keys collide: %s", a)
	}
	if got := (position.Key{LearnerID: "u1", CourseID: "c9"}).String(); got != "course_progress:u1:c9" {
		t.Fatalf("plain key = %s", got)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := position.NewMemoryStore()
	k := position.Key{LearnerID: "u1", CourseID: "c1"}
	if _, ok, err := s.Get(ctx, k); ok || err != nil {
		t.Fatalf("empty get: %v %v", ok, err)
	}
	_ = s.Put(ctx, k, "i1")
	_ = s.Put(ctx, k, "i2")
	if id, ok, _ := s.Get(ctx, k); !ok || id != "i2" {
		t.Fatalf("get = %q %v", id, ok)
	}
}
