package geometry

import (
	"math"
	"testing"
)

const floatTolerance = 1e-9

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

func TestWrapToPi_Range(t *testing.T) {
	for a := -3*math.Pi + 1e-6; a < 3*math.Pi-1e-6; a += 0.01 {
		got := WrapToPi(a)
		if got <= -math.Pi || got > math.Pi {
			t.Fatalf("WrapToPi(%v) = %v, outside (-π, π]", a, got)
		}
		if WrapToPi(got) != got {
			t.Fatalf("WrapToPi not idempotent at %v: %v -> %v", a, got, WrapToPi(got))
		}
	}
}

func TestWrapToPi_Boundaries(t *testing.T) {
	if got := WrapToPi(math.Pi); got != math.Pi {
		t.Errorf("WrapToPi(π) = %v, want π", got)
	}
	if got := WrapToPi(-math.Pi); got != math.Pi {
		t.Errorf("WrapToPi(-π) = %v, want π", got)
	}
	if got := WrapToPi(1.5 * math.Pi); !floatEquals(got, -0.5*math.Pi) {
		t.Errorf("WrapToPi(1.5π) = %v, want -π/2", got)
	}
	if got := WrapToPi(-1.5 * math.Pi); !floatEquals(got, 0.5*math.Pi) {
		t.Errorf("WrapToPi(-1.5π) = %v, want π/2", got)
	}
}

func TestNormalizeAngle(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{math.Pi, math.Pi},
		{-math.Pi, math.Pi},
		{20, 20 - 6*math.Pi},
		{-20, -20 + 6*math.Pi},
		{100 * math.Pi, 0},
		{7, 7 - 2*math.Pi},
	}
	for _, tt := range tests {
		if got := NormalizeAngle(tt.in); !floatEquals(got, tt.want) {
			t.Errorf("NormalizeAngle(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for a := -1000.0; a < 1000; a += 0.37 {
		got := NormalizeAngle(a)
		if got <= -math.Pi || got > math.Pi {
			t.Fatalf("NormalizeAngle(%v) = %v, outside (-π, π]", a, got)
		}
		if !floatEquals(math.Sin(got), math.Sin(a)) || !floatEquals(math.Cos(got), math.Cos(a)) {
			t.Fatalf("NormalizeAngle(%v) = %v changes the direction", a, got)
		}
	}
}

func TestSmallestAngleDifference(t *testing.T) {
	cases := []struct {
		a, b, want float64
	}{
		{0, 0.5, 0.5},
		{0.5, 0, -0.5},
		// 170° to -170° is a +20° rotation, not -340°
		{Radians(170), Radians(-170), Radians(20)},
		{Radians(-170), Radians(170), Radians(-20)},
		{0, math.Pi, math.Pi},
	}

	for _, tc := range cases {
		got := SmallestAngleDifference(tc.a, tc.b)
		if !floatEquals(got, tc.want) {
			t.Errorf("SmallestAngleDifference(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestBearingAndDistance(t *testing.T) {
	origin := Point{}

	if got := Bearing(origin, Point{X: 0, Y: 1}); !floatEquals(got, math.Pi/2) {
		t.Errorf("Bearing up: got %v, want π/2", got)
	}
	if got := Bearing(origin, Point{X: -1, Y: 0}); !floatEquals(got, math.Pi) {
		t.Errorf("Bearing behind: got %v, want π", got)
	}
	if got := Distance(Point{X: 1, Y: 1}, Point{X: 4, Y: 5}); !floatEquals(got, 5) {
		t.Errorf("Distance: got %v, want 5", got)
	}
}

func TestPointArithmetic(t *testing.T) {
	p := Point{X: 1, Y: 2}
	q := Point{X: 0.5, Y: -1}

	if got := p.Add(q); got != (Point{X: 1.5, Y: 1}) {
		t.Errorf("Add: got %v", got)
	}
	if got := p.Sub(q); got != (Point{X: 0.5, Y: 3}) {
		t.Errorf("Sub: got %v", got)
	}
	if got := (Point{X: 3, Y: 4}).Norm(); got != 5 {
		t.Errorf("Norm: got %v, want 5", got)
	}
	if got := (Pose{X: 1, Y: 2, Theta: 3}).Point(); got != p {
		t.Errorf("Pose.Point: got %v", got)
	}
}

func TestDegreesRadians(t *testing.T) {
	if !floatEquals(Degrees(math.Pi), 180) {
		t.Errorf("Degrees(π) = %v", Degrees(math.Pi))
	}
	if !floatEquals(Radians(90), math.Pi/2) {
		t.Errorf("Radians(90) = %v", Radians(90))
	}
}

func TestClamp(t *testing.T) {
	if Clamp(5, -1, 1) != 1 || Clamp(-5, -1, 1) != -1 || Clamp(0.3, -1, 1) != 0.3 {
		t.Error("Clamp returned a value outside the range")
	}
}
