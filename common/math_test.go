package common

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

func approx(a, b []float32, tol float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math32.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

func TestComposeTRS(t *testing.T) {
	rot := mgl32.QuatRotate(math32.Pi/2, mgl32.Vec3{0, 0, 1})
	m := ComposeTRS(mgl32.Vec3{1, 2, 3}, rot, mgl32.Vec3{2, 2, 2})

	// (1,0,0) -> scale (2,0,0) -> rotate 90deg about z (0,2,0) -> translate (1,4,3)
	got := TransformPoint(m, mgl32.Vec3{1, 0, 0})
	want := mgl32.Vec3{1, 4, 3}
	if !approx(got[:], want[:], 1e-5) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestEulerToQuatMatchesAxisAngle(t *testing.T) {
	tests := []struct {
		euler mgl32.Vec3
		axis  mgl32.Vec3
		angle float32
	}{
		{mgl32.Vec3{math32.Pi / 2, 0, 0}, mgl32.Vec3{1, 0, 0}, math32.Pi / 2},
		{mgl32.Vec3{0, math32.Pi / 3, 0}, mgl32.Vec3{0, 1, 0}, math32.Pi / 3},
		{mgl32.Vec3{0, 0, -math32.Pi / 4}, mgl32.Vec3{0, 0, 1}, -math32.Pi / 4},
	}
	for _, tt := range tests {
		got := EulerToQuat(tt.euler)
		want := mgl32.QuatRotate(tt.angle, tt.axis)
		g := []float32{got.W, got.V[0], got.V[1], got.V[2]}
		w := []float32{want.W, want.V[0], want.V[1], want.V[2]}
		if !approx(g, w, 1e-5) {
			t.Errorf("EulerToQuat(%v) = %v, want %v", tt.euler, got, want)
		}
	}
}

func TestRadians(t *testing.T) {
	got := Radians(mgl32.Vec3{180, 90, 0})
	want := mgl32.Vec3{math32.Pi, math32.Pi / 2, 0}
	if !approx(got[:], want[:], 1e-6) {
		t.Errorf("expected %v, got %v", want, got)
	}

	a := mgl32.Vec4{0.1, -3.3, 17.17, 0.3}
	b := mgl32.Vec4{0.7, 2.9, 123.456, 0}
	if got := LerpVec4(a, b, 0); got != a {
		t.Errorf("expected exactly %v at u=0, got %v", a, got)
	}
	if got := LerpVec4(a, b, 1); got != b {
		t.Errorf("expected exactly %v at u=1, got %v", b, got)
	}
}

func TestScaleX(t *testing.T) {
	m := ComposeTRS(mgl32.Vec3{5, 5, 5}, mgl32.QuatRotate(1, mgl32.Vec3{0, 1, 0}), mgl32.Vec3{3, 1, 1})
	if got := ScaleX(m); math32.Abs(got-3) > 1e-5 {
		t.Errorf("expected x scale 3, got %f", got)
	}
}

func TestLerpVec4(t *testing.T) {
	a := mgl32.Vec4{0, 0, 0, 0}
	b := mgl32.Vec4{2, 4, 6, 8}
	got := LerpVec4(a, b, 0.5)
	want := mgl32.Vec4{1, 2, 3, 4}
	if !approx(got[:], want[:], 1e-6) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestPerspectiveDepthRange(t *testing.T) {
	p := Perspective(math32.Pi/2, 1, 1, 10)

	nearClip := p.Mul4x1(mgl32.Vec4{0, 0, -1, 1})
	farClip := p.Mul4x1(mgl32.Vec4{0, 0, -10, 1})
	if z := nearClip[2] / nearClip[3]; math32.Abs(z) > 1e-6 {
		t.Errorf("near plane should map to depth 0, got %f", z)
	}
	if z := farClip[2] / farClip[3]; math32.Abs(z-1) > 1e-6 {
		t.Errorf("far plane should map to depth 1, got %f", z)
	}
}

func TestSliceToBytes(t *testing.T) {
	if SliceToBytes([]float32{}) != nil {
		t.Error("expected nil for empty slice")
	}
	b := SliceToBytes([]uint32{1, 2})
	if len(b) != 8 {
		t.Errorf("expected 8 bytes, got %d", len(b))
	}
}

func TestClampAndCoalesce(t *testing.T) {
	if Clamp(5, 0, 3) != 3 || Clamp(-1, 0, 3) != 0 || Clamp(2, 0, 3) != 2 {
		t.Error("Clamp returned wrong value")
	}
	if Coalesce("", "", "x", "y") != "x" {
		t.Error("Coalesce did not return first non-zero value")
	}
	if Coalesce(0, 0) != 0 {
		t.Error("Coalesce of zeros should be zero")
	}
}
