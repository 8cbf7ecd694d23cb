package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-scene/engine/model"
	"github.com/Carmen-Shannon/oxy-scene/engine/node"
	"github.com/go-gl/mathgl/mgl32"
)

// gltfSkeletonExtractorImpl is the implementation of the gltfSkeletonExtractor interface.
type gltfSkeletonExtractorImpl struct {
	parser gltfParser
}

// gltfSkeletonExtractor converts glTF skins into engine skins whose joints are handles into the asset's
// node arena. It runs after the node graph is built.
type gltfSkeletonExtractor interface {
	// ExtractSkin extracts a single skin by index.
	//
	// Parameters:
	//   - skinIndex: the index of the skin in the document
	//   - nodes: the built node arena joints are resolved against
	//
	// Returns:
	//   - *model.Skin: the skin; joints that do not resolve to a node are skipped
	//   - error: error if the inverse bind accessor is malformed
	ExtractSkin(skinIndex int, nodes *node.Arena) (*model.Skin, error)

	// ExtractAllSkins extracts every skin in document order, so node skin indices stay valid.
	//
	// Parameters:
	//   - nodes: the built node arena
	//
	// Returns:
	//   - []*model.Skin: the skins
	//   - error: error if any skin fails
	ExtractAllSkins(nodes *node.Arena) ([]*model.Skin, error)
}

var _ gltfSkeletonExtractor = &gltfSkeletonExtractorImpl{}

// newGLTFSkeletonExtractor creates a new skeleton extractor for a parsed document.
func newGLTFSkeletonExtractor(parser gltfParser) gltfSkeletonExtractor {
	return &gltfSkeletonExtractorImpl{parser: parser}
}

func (e *gltfSkeletonExtractorImpl) ExtractAllSkins(nodes *node.Arena) ([]*model.Skin, error) {
	doc := e.parser.Document()
	skins := make([]*model.Skin, 0, len(doc.Skins))
	for i := range doc.Skins {
		skin, err := e.ExtractSkin(i, nodes)
		if err != nil {
			return nil, fmt.Errorf("skin %d: %w", i, err)
		}
		skins = append(skins, skin)
	}
	return skins, nil
}

func (e *gltfSkeletonExtractorImpl) ExtractSkin(skinIndex int, nodes *node.Arena) (*model.Skin, error) {
	doc := e.parser.Document()
	if skinIndex < 0 || skinIndex >= len(doc.Skins) {
		return nil, fmt.Errorf("%w: skin %d out of range", ErrMalformedDocument, skinIndex)
	}
	src := &doc.Skins[skinIndex]

	skin := &model.Skin{Name: src.Name, SkeletonRoot: node.NoHandle}
	if skin.Name == "" {
		skin.Name = fmt.Sprintf("skin_%d", skinIndex)
	}
	if src.Skeleton != nil {
		skin.SkeletonRoot = nodes.FindByIndex(*src.Skeleton)
	}

	var inverseBind []mgl32.Mat4
	if src.InverseBindMatrices != nil {
		var err error
		if inverseBind, err = e.parser.ReadMat4Accessor(*src.InverseBindMatrices); err != nil {
			return nil, fmt.Errorf("failed to read inverse bind matrices: %w", err)
		}
	}

	for i, jointIndex := range src.Joints {
		h := nodes.FindByIndex(jointIndex)
		if h == node.NoHandle {
			continue
		}
		ibm := mgl32.Ident4()
		if i < len(inverseBind) {
			ibm = inverseBind[i]
		}
		skin.Joints = append(skin.Joints, h)
		skin.InverseBindMatrices = append(skin.InverseBindMatrices, ibm)
	}
	return skin, nil
}
