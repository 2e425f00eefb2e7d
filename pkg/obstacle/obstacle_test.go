package obstacle

import (
	"testing"

	"github.com/teslashibe/go-vss/pkg/geometry"
)

func TestNearest_Empty(t *testing.T) {
	if _, ok := Nearest(geometry.Point{}, nil); ok {
		t.Error("Expected no obstacle for an empty list")
	}
}

func TestNearest_PicksClosest(t *testing.T) {
	obs := []Obstacle{
		At(geometry.Point{X: 1, Y: 0}),
		At(geometry.Point{X: 0.2, Y: 0.1}),
		At(geometry.Point{X: -0.5, Y: 0}),
	}

	got, ok := Nearest(geometry.Point{}, obs)
	if !ok {
		t.Fatal("Expected an obstacle")
	}
	if got.Position != (geometry.Point{X: 0.2, Y: 0.1}) {
		t.Errorf("Nearest: got %v, want (0.2, 0.1)", got.Position)
	}
}

func TestNearest_TieGoesToLater(t *testing.T) {
	first := Moving(geometry.Point{X: 1, Y: 0}, geometry.Velocity{X: 1})
	second := Moving(geometry.Point{X: -1, Y: 0}, geometry.Velocity{X: -1})

	got, _ := Nearest(geometry.Point{}, []Obstacle{first, second})
	if got != second {
		t.Errorf("Tie: got %+v, want the later obstacle %+v", got, second)
	}

	// Reversing the order flips the winner
	got, _ = Nearest(geometry.Point{}, []Obstacle{second, first})
	if got != first {
		t.Errorf("Tie reversed: got %+v, want %+v", got, first)
	}
}

func TestGoalPosts(t *testing.T) {
	posts := GoalPosts(1.5, 0.4)
	if len(posts) != 4 {
		t.Fatalf("Expected 4 goal posts, got %d", len(posts))
	}

	want := map[geometry.Point]bool{
		{X: 0.75, Y: 0.2}:   true,
		{X: 0.75, Y: -0.2}:  true,
		{X: -0.75, Y: 0.2}:  true,
		{X: -0.75, Y: -0.2}: true,
	}
	for _, p := range posts {
		if !want[p.Position] {
			t.Errorf("Unexpected goal post at %v", p.Position)
		}
		if p.Velocity != (geometry.Velocity{}) {
			t.Errorf("Goal post should be static, got %v", p.Velocity)
		}
	}
}

func TestAppend_DoesNotMutate(t *testing.T) {
	base := make([]Obstacle, 1, 4)
	base[0] = At(geometry.Point{X: 1})

	out := Append(base, At(geometry.Point{X: 2}))
	if len(out) != 2 {
		t.Fatalf("Expected 2 obstacles, got %d", len(out))
	}

	// The spare capacity of base must not have been written
	if extended := base[:2]; extended[1] != (Obstacle{}) {
		t.Errorf("Append wrote into the caller's backing array: %+v", extended[1])
	}
}
