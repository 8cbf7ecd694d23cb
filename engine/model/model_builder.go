package model

import (
	"github.com/Carmen-Shannon/oxy-scene/engine/script"
	"github.com/go-gl/mathgl/mgl32"
)

// ModelBuilderOption is a functional option for configuring a Model via NewModel.
type ModelBuilderOption func(*modelImpl)

// WithName is an option builder that overrides the model name, which defaults to the asset name.
//
// Parameters:
//   - name: the model identifier
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a model
func WithName(name string) ModelBuilderOption {
	return func(m *modelImpl) {
		m.name = name
	}
}

// WithCopy is an option builder that marks the Model as an instance of an already loaded asset.
//
// Parameters:
//   - isCopy: true for instances
//
// Returns:
//   - ModelBuilderOption: a function that applies the copy option to a model
func WithCopy(isCopy bool) ModelBuilderOption {
	return func(m *modelImpl) {
		m.isCopy = isCopy
	}
}

// WithPosition is an option builder that sets the initial translation of the Model.
//
// Parameters:
//   - p: the translation
//
// Returns:
//   - ModelBuilderOption: a function that applies the position option to a model
func WithPosition(p mgl32.Vec3) ModelBuilderOption {
	return func(m *modelImpl) {
		m.position = p
	}
}

// WithRotation is an option builder that sets the initial rotation of the Model in Euler degrees.
//
// Parameters:
//   - r: the rotation in degrees
//
// Returns:
//   - ModelBuilderOption: a function that applies the rotation option to a model
func WithRotation(r mgl32.Vec3) ModelBuilderOption {
	return func(m *modelImpl) {
		m.rotation = r
	}
}

// WithScale is an option builder that sets the initial scale of the Model.
//
// Parameters:
//   - s: the scale
//
// Returns:
//   - ModelBuilderOption: a function that applies the scale option to a model
func WithScale(s mgl32.Vec3) ModelBuilderOption {
	return func(m *modelImpl) {
		m.scale = s
	}
}

// WithTransform is an option builder that sets the base transform of the Model.
//
// Parameters:
//   - t: the base transform
//
// Returns:
//   - ModelBuilderOption: a function that applies the transform option to a model
func WithTransform(t mgl32.Mat4) ModelBuilderOption {
	return func(m *modelImpl) {
		m.transform = t
	}
}

// WithScript is an option builder that binds a script to the Model.
//
// Parameters:
//   - s: the script
//
// Returns:
//   - ModelBuilderOption: a function that applies the script option to a model
func WithScript(s script.Script) ModelBuilderOption {
	return func(m *modelImpl) {
		m.script = s
	}
}

// WithRender is an option builder that sets whether the Model is updated and drawn.
//
// Parameters:
//   - render: false to hide the model
//
// Returns:
//   - ModelBuilderOption: a function that applies the render option to a model
func WithRender(render bool) ModelBuilderOption {
	return func(m *modelImpl) {
		m.render = render
	}
}

// WithAnimationIndex is an option builder that selects the initial animation of the Model.
//
// Parameters:
//   - i: the animation index
//
// Returns:
//   - ModelBuilderOption: a function that applies the animation option to a model
func WithAnimationIndex(i int) ModelBuilderOption {
	return func(m *modelImpl) {
		m.animationIndex = i
	}
}
