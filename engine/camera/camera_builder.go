package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraBuilderOption configures a camera during NewCamera.
type CameraBuilderOption func(*cameraImpl)

// WithUp overrides the world up vector used to build the view matrix.
//
// Parameters:
//   - up: world up direction, does not need to be normalized
//
// Returns:
//   - CameraBuilderOption: the option
func WithUp(up mgl32.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.up = up
	}
}

// WithFov sets the vertical field of view in radians.
//
// Parameters:
//   - fov: vertical field of view in radians
//
// Returns:
//   - CameraBuilderOption: the option
func WithFov(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fov = fov
	}
}

// WithAspect sets the viewport width divided by its height.
//
// Parameters:
//   - aspect: viewport aspect ratio
//
// Returns:
//   - CameraBuilderOption: the option
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.aspect = aspect
	}
}

// WithNear moves the near clip plane. Bounding spheres closer than this are culled.
//
// Parameters:
//   - near: distance to the near plane
//
// Returns:
//   - CameraBuilderOption: the option
func WithNear(near float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.near = near
	}
}

// WithFar moves the far clip plane. Bounding spheres beyond this are culled.
//
// Parameters:
//   - far: distance to the far plane
//
// Returns:
//   - CameraBuilderOption: the option
func WithFar(far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.far = far
	}
}

// WithPerspective sets all projection parameters at once.
//
// Parameters:
//   - fov: vertical field of view in radians
//   - aspect: viewport aspect ratio
//   - near: distance to the near plane
//   - far: distance to the far plane
//
// Returns:
//   - CameraBuilderOption: the option
func WithPerspective(fov, aspect, near, far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fov, c.aspect, c.near, c.far = fov, aspect, near, far
	}
}

// WithController drives the camera's eye and target from an orbit controller.
// The view, projection and frustum are computed once every option has been applied.
//
// Parameters:
//   - ctrl: the controller
//
// Returns:
//   - CameraBuilderOption: the option
func WithController(ctrl CameraController) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.controller = ctrl
	}
}
