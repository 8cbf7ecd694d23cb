package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraController owns the camera's positional state. The camera reads position and target from it each
// Update. The controller orbits the target on a sphere (radius, azimuth, elevation) and can also translate
// both eye and target together, which preserves the orbit.
type CameraController interface {
	// Position returns the camera's world-space position.
	//
	// Returns:
	//   - mgl32.Vec3: the eye position
	Position() mgl32.Vec3

	// Target returns the look-at point.
	//
	// Returns:
	//   - mgl32.Vec3: the target position
	Target() mgl32.Vec3

	// SetTarget sets the pivot point and recomputes the position from the orbit parameters.
	//
	// Parameters:
	//   - target: world-space pivot
	SetTarget(target mgl32.Vec3)

	// Translate moves both position and target by offset.
	//
	// Parameters:
	//   - offset: world-space displacement
	Translate(offset mgl32.Vec3)

	// Zoom moves the camera toward the target by delta * ZoomSpeed, clamped to the radius bounds.
	//
	// Parameters:
	//   - delta: zoom amount; positive zooms in
	Zoom(delta float32)

	// Radius returns the distance from the target.
	//
	// Returns:
	//   - float32: the orbit radius
	Radius() float32

	// SetRadius sets the orbit radius, clamped to the radius bounds.
	//
	// Parameters:
	//   - radius: distance from target
	SetRadius(radius float32)

	// Azimuth returns the horizontal angle around the Y axis in radians.
	//
	// Returns:
	//   - float32: the azimuth
	Azimuth() float32

	// SetAzimuth sets the horizontal angle and recomputes the position.
	//
	// Parameters:
	//   - azimuth: angle in radians
	SetAzimuth(azimuth float32)

	// Elevation returns the vertical angle from the horizontal plane in radians.
	//
	// Returns:
	//   - float32: the elevation
	Elevation() float32

	// SetElevation sets the vertical angle, clamped to the elevation bounds.
	//
	// Parameters:
	//   - elevation: angle in radians
	SetElevation(elevation float32)

	// PanRight translates along the camera's local right axis by delta * PanSpeed.
	PanRight(delta float32)

	// PanUp translates along the camera's local up axis by delta * PanSpeed.
	PanUp(delta float32)

	// PanForward translates along the viewing direction by delta * PanSpeed.
	PanForward(delta float32)
}
