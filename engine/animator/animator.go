// Package animator evaluates keyframe animations on the CPU and writes the sampled values into a pose arena.
package animator

import (
	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/model"
	"github.com/Carmen-Shannon/oxy-scene/engine/node"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Advance moves an animation timer forward by delta and wraps it into [0, end] by subtracting whole
// periods, so the fractional overshoot is kept. A non-finite delta leaves the timer where it was and a
// non-finite timer restarts at 0.
//
// Parameters:
//   - timer: the current playback position in seconds
//   - delta: the elapsed frame time in seconds
//   - end: the animation end time; a non-positive end disables wrapping
//
// Returns:
//   - float32: the new playback position
func Advance(timer, delta, end float32) float32 {
	if !finite(timer) {
		timer = 0
	}
	if !finite(delta) {
		return timer
	}
	if timer += delta; !finite(timer) {
		return 0
	}
	if end <= 0 || !finite(end) || timer <= end {
		return timer
	}

	// Anything left past one period is reduced with Mod. An exact multiple lands on end, not 0.
	timer -= end
	if timer > end {
		if timer = math32.Mod(timer, end); timer == 0 {
			timer = end
		}
	}
	return timer
}

func finite(f float32) bool {
	return !math32.IsNaN(f) && !math32.IsInf(f, 0)
}

// Apply samples every channel of anim at t and writes the result into the matching nodes of pose. Channels
// whose sampler has too few outputs, whose node is missing, or whose inputs do not bracket t are skipped.
//
// Parameters:
//   - pose: the pose arena to write into
//   - anim: the animation to evaluate
//   - t: the playback position in seconds
//
// Returns:
//   - int: the number of channels written
func Apply(pose *node.Arena, anim *model.Animation, t float32) int {
	applied := 0
	for _, ch := range anim.Channels {
		if ch.Sampler < 0 || ch.Sampler >= len(anim.Samplers) {
			continue
		}
		n := pose.Node(ch.Node)
		if n == nil {
			continue
		}
		v, ok := Sample(&anim.Samplers[ch.Sampler], ch.Path, t)
		if !ok {
			continue
		}

		switch ch.Path {
		case model.PathTranslation:
			n.Translation = v.Vec3()
		case model.PathScale:
			n.Scale = v.Vec3()
		case model.PathRotation:
			n.Rotation = vecToQuat(v)
		default:
			continue
		}
		if n.Mode != node.TransformMatrix {
			n.Mode = node.TransformTRS
		}
		applied++
	}
	return applied
}

// Sample evaluates a sampler at t. Translation and scale are interpolated component-wise, rotations are
// spherically interpolated and normalized. When neighbouring keyframes share t, the later one wins.
//
// Parameters:
//   - s: the sampler
//   - path: the property the sampler drives
//   - t: the time in seconds
//
// Returns:
//   - mgl32.Vec4: the sampled value; rotations are stored as x, y, z, w
//   - bool: false if the sampler has too few outputs or t lies outside its inputs
func Sample(s *model.AnimationSampler, path model.Path, t float32) (mgl32.Vec4, bool) {
	stride := 1
	if s.Interpolation == model.InterpolationCubicSpline {
		stride = 3
	}
	if len(s.Inputs) == 0 || len(s.Outputs) < len(s.Inputs)*stride {
		return mgl32.Vec4{}, false
	}
	if len(s.Inputs) == 1 {
		if t != s.Inputs[0] {
			return mgl32.Vec4{}, false
		}
		return s.Outputs[stride/2], true
	}

	i := -1
	for k := 0; k < len(s.Inputs)-1; k++ {
		if t >= s.Inputs[k] && t <= s.Inputs[k+1] {
			i = k
		}
	}
	if i < 0 {
		return mgl32.Vec4{}, false
	}
	span := s.Inputs[i+1] - s.Inputs[i]
	var u float32
	if span > 0 {
		u = max(0, t-s.Inputs[i]) / span
	}

	switch s.Interpolation {
	case model.InterpolationStep:
		if u >= 1 {
			return s.Outputs[i+1], true
		}
		return s.Outputs[i], true
	case model.InterpolationCubicSpline:
		v := hermite(s.Outputs, i, u, span)
		if path == model.PathRotation {
			v = v.Normalize()
		}
		return v, true
	default:
		a, b := s.Outputs[i], s.Outputs[i+1]
		if path == model.PathRotation {
			q := mgl32.QuatSlerp(vecToQuat(a), vecToQuat(b), u).Normalize()
			return quatToVec(q), true
		}
		return common.LerpVec4(a, b, u), true
	}
}

// hermite evaluates a cubic spline segment over outputs laid out as (in-tangent, value, out-tangent)
// triplets per keyframe.
func hermite(out []mgl32.Vec4, i int, u, span float32) mgl32.Vec4 {
	p0 := out[3*i+1]
	m0 := out[3*i+2].Mul(span)
	p1 := out[3*(i+1)+1]
	m1 := out[3*(i+1)].Mul(span)

	u2 := u * u
	u3 := u2 * u
	return p0.Mul(2*u3 - 3*u2 + 1).
		Add(m0.Mul(u3 - 2*u2 + u)).
		Add(p1.Mul(-2*u3 + 3*u2)).
		Add(m1.Mul(u3 - u2))
}

func vecToQuat(v mgl32.Vec4) mgl32.Quat {
	return mgl32.Quat{W: v[3], V: mgl32.Vec3{v[0], v[1], v[2]}}
}

func quatToVec(q mgl32.Quat) mgl32.Vec4 {
	return mgl32.Vec4{q.V[0], q.V[1], q.V[2], q.W}
}
