package common

import (
	"unsafe"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// StructToBytes reinterprets a pointer to a struct as a raw byte slice using unsafe.
// The returned slice has length equal to the struct's size in memory.
//
// Parameters:
//   - v: pointer to the struct to reinterpret
//
// Returns:
//   - []byte: byte slice view of the struct's memory
func StructToBytes[T any](v *T) []byte {
	size := unsafe.Sizeof(*v)
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), int(size))
}

// Perspective creates a right-handed perspective projection matrix with a [0, 1]
// clip-space depth range, as expected by WebGPU.
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
//
// Returns:
//   - mgl32.Mat4: the projection matrix (column-major)
func Perspective(fovY, aspect, near, far float32) mgl32.Mat4 {
	f := 1.0 / math32.Tan(fovY/2.0)
	var out mgl32.Mat4
	out[0] = f / aspect
	out[5] = f
	out[10] = far / (near - far)
	out[11] = -1.0
	out[14] = (near * far) / (near - far)
	return out
}

// ComposeTRS builds the local matrix T * R * S from a translation, rotation quaternion and scale.
//
// Parameters:
//   - t: translation
//   - r: rotation quaternion
//   - s: scale
//
// Returns:
//   - mgl32.Mat4: the composed matrix (column-major)
func ComposeTRS(t mgl32.Vec3, r mgl32.Quat, s mgl32.Vec3) mgl32.Mat4 {
	return mgl32.Translate3D(t[0], t[1], t[2]).
		Mul4(r.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
}

// EulerToQuat converts Euler angles in radians (pitch around X, yaw around Y, roll around Z)
// into a quaternion using the same convention as glm::quat(vec3).
//
// Parameters:
//   - euler: rotation angles in radians
//
// Returns:
//   - mgl32.Quat: the rotation quaternion
func EulerToQuat(euler mgl32.Vec3) mgl32.Quat {
	sx, cx := math32.Sincos(euler[0] * 0.5)
	sy, cy := math32.Sincos(euler[1] * 0.5)
	sz, cz := math32.Sincos(euler[2] * 0.5)

	return mgl32.Quat{
		W: cx*cy*cz + sx*sy*sz,
		V: mgl32.Vec3{
			sx*cy*cz - cx*sy*sz,
			cx*sy*cz + sx*cy*sz,
			cx*cy*sz - sx*sy*cz,
		},
	}
}

// Radians converts a vector of angles in degrees into radians.
func Radians(deg mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{mgl32.DegToRad(deg[0]), mgl32.DegToRad(deg[1]), mgl32.DegToRad(deg[2])}
}

// ScaleX returns the length of the first basis column of m, i.e. the scale applied along the local x axis.
//
// Parameters:
//   - m: the transform matrix
//
// Returns:
//   - float32: the absolute x-axis scale factor
func ScaleX(m mgl32.Mat4) float32 {
	return math32.Sqrt(m[0]*m[0] + m[1]*m[1] + m[2]*m[2])
}

// TransformPoint transforms a position (w = 1) by m and drops the w component.
func TransformPoint(m mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

// LerpVec4 linearly interpolates each component of a and b by u. Weighting both ends keeps u=0 and u=1
// exact, which a + (b-a)*u does not.
func LerpVec4(a, b mgl32.Vec4, u float32) mgl32.Vec4 {
	return a.Mul(1 - u).Add(b.Mul(u))
}
