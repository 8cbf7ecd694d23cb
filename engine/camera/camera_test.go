package camera

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

func nearSlice(a, b []float32) bool {
	for i := range a {
		if math32.Abs(a[i]-b[i]) > 1e-4 {
			return false
		}
	}
	return true
}

func near(a, b mgl32.Vec3) bool { return nearSlice(a[:], b[:]) }

func nearMat(a, b mgl32.Mat4) bool { return nearSlice(a[:], b[:]) }

func newTestCamera() Camera {
	return NewCamera(
		WithAspect(16.0/9.0),
		WithNear(0.1),
		WithFar(100),
		WithController(NewCameraController(WithRadius(10))),
	)
}

func TestDefaultControllerAttached(t *testing.T) {
	c := NewCamera()
	if c.Controller() == nil {
		t.Fatal("expected default controller")
	}
	if !near(c.Position(), mgl32.Vec3{0, 0, 10}) {
		t.Errorf("expected eye at (0,0,10), got %v", c.Position())
	}
}

func TestFocalPointNeverCulled(t *testing.T) {
	c := newTestCamera()

	for _, angle := range []float32{0, 0.7, 1.9, -2.4} {
		c.Rotate(angle, angle/4)
		if !c.SphereInFrustum(c.Target(), 0) {
			t.Errorf("target culled after rotating by %f", angle)
		}
	}
}

func TestFarSphereCulled(t *testing.T) {
	c := newTestCamera()

	cases := []mgl32.Vec3{
		{0, 0, 50},   // behind the eye
		{0, 0, -500}, // beyond far plane
		{500, 0, 0},  // far to the right
		{0, -500, 0}, // far below
	}
	for _, p := range cases {
		if c.SphereInFrustum(p, 1) {
			t.Errorf("sphere at %v should be culled", p)
		}
	}
}

func TestLargeSphereStraddlingPlaneVisible(t *testing.T) {
	c := newTestCamera()
	// Center behind the eye, radius reaches into the view volume.
	if !c.SphereInFrustum(mgl32.Vec3{0, 0, 12}, 5) {
		t.Error("sphere intersecting the near plane should be visible")
	}
}

func TestMoveTranslatesEyeAndTarget(t *testing.T) {
	c := newTestCamera()
	eye := c.Position()

	c.Move(mgl32.Vec3{2, 0, 0}, 3)
	if !near(c.Position(), eye.Add(mgl32.Vec3{3, 0, 0})) {
		t.Errorf("expected eye moved by 3 on x, got %v", c.Position())
	}
	if !near(c.Target(), mgl32.Vec3{3, 0, 0}) {
		t.Errorf("expected target at (3,0,0), got %v", c.Target())
	}

	c.Move(mgl32.Vec3{}, 10)
	if !near(c.Target(), mgl32.Vec3{3, 0, 0}) {
		t.Error("zero direction must not move the camera")
	}

	// Frustum follows the move.
	if !c.SphereInFrustum(mgl32.Vec3{3, 0, 0}, 0) {
		t.Error("new target should be visible")
	}
}

func TestRotateClampsElevation(t *testing.T) {
	c := newTestCamera()
	c.Rotate(0, 10)
	if e := c.Controller().Elevation(); e >= math32.Pi/2 {
		t.Errorf("elevation %f not clamped", e)
	}
}

func TestSetAspectUpdatesProjection(t *testing.T) {
	c := newTestCamera()
	before := c.ProjectionMatrix()
	c.SetAspect(1)
	after := c.ProjectionMatrix()
	if nearMat(before, after) {
		t.Error("projection did not change with aspect")
	}
	if !nearMat(c.ViewProjectionMatrix(), after.Mul4(c.ViewMatrix())) {
		t.Error("view-projection is not projection * view")
	}
}

func TestControllerZoomClamps(t *testing.T) {
	cc := NewCameraController(WithRadius(5), WithRadiusBounds(1, 20), WithZoomSpeed(2))
	cc.Zoom(10)
	if cc.Radius() != 1 {
		t.Errorf("expected radius clamped to 1, got %f", cc.Radius())
	}
	cc.SetRadius(100)
	if cc.Radius() != 20 {
		t.Errorf("expected radius clamped to 20, got %f", cc.Radius())
	}
}

func TestControllerPanPreservesOrbit(t *testing.T) {
	cc := NewCameraController(WithRadius(5), WithTarget(mgl32.Vec3{1, 1, 1}))
	before := cc.Position().Sub(cc.Target())

	cc.PanRight(2)
	cc.PanUp(-1)
	cc.PanForward(0.5)

	after := cc.Position().Sub(cc.Target())
	if !near(before, after) {
		t.Errorf("pan changed orbit offset from %v to %v", before, after)
	}
}
