package loader

import (
	"fmt"
	"strconv"

	"github.com/Carmen-Shannon/oxy-scene/engine/model"
	"github.com/Carmen-Shannon/oxy-scene/engine/node"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// gltfAnimationExtractorImpl is the implementation of the gltfAnimationExtractor interface.
type gltfAnimationExtractorImpl struct {
	parser gltfParser
	logger *zap.Logger
}

// gltfAnimationExtractor converts glTF animations into engine animations whose channels target handles of
// the asset's node arena. Morph target weight channels are logged and skipped.
type gltfAnimationExtractor interface {
	// ExtractAnimation extracts a single animation by index.
	//
	// Parameters:
	//   - animIndex: the index of the animation in the document
	//   - nodes: the built node arena channel targets are resolved against
	//
	// Returns:
	//   - *model.Animation: the animation with its time range computed
	//   - error: ErrUnsupportedComponentType for non-float inputs, ErrUnsupportedAccessorType for outputs
	//     that are not VEC3 or VEC4
	ExtractAnimation(animIndex int, nodes *node.Arena) (*model.Animation, error)

	// ExtractAllAnimations extracts every animation in document order.
	ExtractAllAnimations(nodes *node.Arena) ([]*model.Animation, error)
}

var _ gltfAnimationExtractor = &gltfAnimationExtractorImpl{}

// newGLTFAnimationExtractor creates a new animation extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//   - logger: receives warnings for skipped channels
//
// Returns:
//   - gltfAnimationExtractor: the animation extractor
func newGLTFAnimationExtractor(parser gltfParser, logger *zap.Logger) gltfAnimationExtractor {
	return &gltfAnimationExtractorImpl{parser: parser, logger: logger}
}

func (e *gltfAnimationExtractorImpl) ExtractAllAnimations(nodes *node.Arena) ([]*model.Animation, error) {
	doc := e.parser.Document()
	animations := make([]*model.Animation, 0, len(doc.Animations))
	for i := range doc.Animations {
		anim, err := e.ExtractAnimation(i, nodes)
		if err != nil {
			return nil, fmt.Errorf("animation %d: %w", i, err)
		}
		animations = append(animations, anim)
	}
	return animations, nil
}

func (e *gltfAnimationExtractorImpl) ExtractAnimation(animIndex int, nodes *node.Arena) (*model.Animation, error) {
	doc := e.parser.Document()
	if animIndex < 0 || animIndex >= len(doc.Animations) {
		return nil, fmt.Errorf("%w: animation %d out of range", ErrMalformedDocument, animIndex)
	}
	src := &doc.Animations[animIndex]

	anim := &model.Animation{Name: src.Name}
	if anim.Name == "" {
		anim.Name = strconv.Itoa(animIndex)
	}

	// Samplers driven only by weight channels have scalar outputs and stay empty.
	needed := make([]bool, len(src.Samplers))
	for ci, ch := range src.Channels {
		if ch.Sampler < 0 || ch.Sampler >= len(src.Samplers) {
			return nil, fmt.Errorf("%w: channel %d references sampler %d", ErrMalformedDocument, ci, ch.Sampler)
		}
		if ch.Target.Path != gltfAnimPathWeights {
			needed[ch.Sampler] = true
		}
	}

	anim.Samplers = make([]model.AnimationSampler, len(src.Samplers))
	for si := range src.Samplers {
		if !needed[si] {
			continue
		}
		sampler, err := e.extractSampler(&src.Samplers[si])
		if err != nil {
			return nil, fmt.Errorf("sampler %d: %w", si, err)
		}
		anim.Samplers[si] = sampler
	}

	for ci, ch := range src.Channels {
		var path model.Path
		switch ch.Target.Path {
		case gltfAnimPathTranslation:
			path = model.PathTranslation
		case gltfAnimPathRotation:
			path = model.PathRotation
		case gltfAnimPathScale:
			path = model.PathScale
		case gltfAnimPathWeights:
			e.logger.Warn("skipping morph target weights channel",
				zap.String("animation", anim.Name), zap.Int("channel", ci))
			continue
		default:
			return nil, fmt.Errorf("%w: channel %d has unknown path %q", ErrMalformedDocument, ci, ch.Target.Path)
		}

		if ch.Target.Node == nil {
			continue
		}
		h := nodes.FindByIndex(*ch.Target.Node)
		if h == node.NoHandle {
			e.logger.Debug("dropping channel with unresolved target",
				zap.String("animation", anim.Name), zap.Int("channel", ci), zap.Int("node", *ch.Target.Node))
			continue
		}
		anim.Channels = append(anim.Channels, model.AnimationChannel{Path: path, Sampler: ch.Sampler, Node: h})
	}

	anim.UpdateRange()
	return anim, nil
}

func (e *gltfAnimationExtractorImpl) extractSampler(src *gltfAnimSampler) (model.AnimationSampler, error) {
	var sampler model.AnimationSampler
	switch src.Interpolation {
	case "", gltfAnimInterpolationLinear:
		sampler.Interpolation = model.InterpolationLinear
	case gltfAnimInterpolationStep:
		sampler.Interpolation = model.InterpolationStep
	case gltfAnimInterpolationCubicSpline:
		sampler.Interpolation = model.InterpolationCubicSpline
	default:
		return sampler, fmt.Errorf("%w: unknown interpolation %q", ErrMalformedDocument, src.Interpolation)
	}

	inputs, err := e.parser.ReadScalarAccessor(src.Input)
	if err != nil {
		return sampler, fmt.Errorf("failed to read input: %w", err)
	}
	sampler.Inputs = inputs

	acc, err := e.parser.Accessor(src.Output)
	if err != nil {
		return sampler, err
	}
	if acc.Type != gltfAccessorTypeVec3 && acc.Type != gltfAccessorTypeVec4 {
		return sampler, fmt.Errorf("%w: output is %s, want VEC3 or VEC4", ErrUnsupportedAccessorType, acc.Type)
	}
	outputs, err := e.parser.ReadFloatAccessor(src.Output, acc.Type)
	if err != nil {
		return sampler, fmt.Errorf("failed to read output: %w", err)
	}
	sampler.Outputs = make([]mgl32.Vec4, len(outputs))
	for i, o := range outputs {
		sampler.Outputs[i] = o
	}
	return sampler, nil
}
