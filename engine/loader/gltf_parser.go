package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	errInvalidGLTFVersion = errors.New("invalid glTF version: must be 2.0")
	errInvalidGLBMagic    = errors.New("invalid GLB magic number")
	errInvalidGLBVersion  = errors.New("invalid GLB version: must be 2")
	errMissingJSONChunk   = errors.New("GLB file missing JSON chunk")
	errInvalidBufferURI   = errors.New("invalid buffer URI")
	errBufferSizeMismatch = errors.New("buffer size mismatch")
)

// gltfParserImpl is the implementation of the gltfParser interface.
type gltfParserImpl struct {
	baseDir        string
	document       *gltfDocument
	glbBinaryChunk []byte
}

// gltfParser loads a glTF or GLB document and decodes its accessors into engine types. Integer attribute
// data is widened to float32 and index data to uint32.
type gltfParser interface {
	// Parse loads and parses a glTF/GLB file from the given path. The format is chosen by the GLB magic
	// number, so a mislabelled binary file still parses.
	//
	// Parameters:
	//   - path: path to the glTF or GLB file
	//
	// Returns:
	//   - error: error if parsing fails
	Parse(path string) error

	// ParseReader parses a document from a reader. External URIs resolve against baseDir.
	//
	// Parameters:
	//   - r: reader containing glTF JSON or GLB data
	//   - isGLB: true if the data is in GLB format
	//   - baseDir: directory external buffers and images are resolved against
	//
	// Returns:
	//   - error: error if parsing fails
	ParseReader(r io.Reader, isGLB bool, baseDir string) error

	// Document returns the parsed document, or nil before a successful parse.
	Document() *gltfDocument

	// BaseDir returns the directory external resources resolve against.
	BaseDir() string

	// Accessor returns the accessor at index.
	//
	// Parameters:
	//   - index: the accessor index
	//
	// Returns:
	//   - *gltfAccessor: the accessor
	//   - error: ErrMalformedDocument if the index is out of range
	Accessor(index int) (*gltfAccessor, error)

	// ReadFloatAccessor reads a float, normalized byte or normalized short accessor of the given type.
	//
	// Parameters:
	//   - index: the accessor index
	//   - accessorType: the expected element type, e.g. VEC3
	//
	// Returns:
	//   - [][4]float32: one entry per element; unused components are zero
	//   - error: ErrUnsupportedAccessorType or ErrUnsupportedComponentType on a type mismatch
	ReadFloatAccessor(index int, accessorType string) ([][4]float32, error)

	// ReadScalarAccessor reads a SCALAR FLOAT accessor.
	ReadScalarAccessor(index int) ([]float32, error)

	// ReadMat4Accessor reads a MAT4 FLOAT accessor.
	ReadMat4Accessor(index int) ([]mgl32.Mat4, error)

	// ReadIndicesAccessor reads a SCALAR integer accessor widened to uint32. Signed bytes and shorts are
	// accepted; float indices are rejected with ErrUnsupportedComponentType.
	ReadIndicesAccessor(index int) ([]uint32, error)

	// ReadJointsAccessor reads a VEC4 unsigned byte or short accessor widened to uint32.
	ReadJointsAccessor(index int) ([][4]uint32, error)

	// ReadImage returns the encoded bytes of an image.
	//
	// Parameters:
	//   - index: the image index
	//
	// Returns:
	//   - []byte: the encoded image
	//   - error: error if the image cannot be read
	ReadImage(index int) ([]byte, error)
}

var _ gltfParser = &gltfParserImpl{}

// newGLTFParser creates a new glTF parser instance.
func newGLTFParser() gltfParser {
	return &gltfParserImpl{}
}

func (p *gltfParserImpl) Document() *gltfDocument {
	return p.document
}

func (p *gltfParserImpl) BaseDir() string {
	return p.baseDir
}

func (p *gltfParserImpl) Parse(path string) error {
	p.baseDir = filepath.Dir(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == gltfGLBMagic {
		return p.parseGLB(data)
	}
	return p.parseGLTF(data)
}

func (p *gltfParserImpl) ParseReader(r io.Reader, isGLB bool, baseDir string) error {
	p.baseDir = baseDir

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read data: %w", err)
	}
	if isGLB {
		return p.parseGLB(data)
	}
	return p.parseGLTF(data)
}

func (p *gltfParserImpl) parseGLTF(data []byte) error {
	var doc gltfDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	return p.finish(&doc)
}

// parseGLB parses a GLB container.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
func (p *gltfParserImpl) parseGLB(data []byte) error {
	if len(data) < 12 {
		return fmt.Errorf("%w: GLB file too small", ErrMalformedDocument)
	}

	r := bytes.NewReader(data)
	var header gltfGLBHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to read GLB header: %w", err)
	}
	if header.Magic != gltfGLBMagic {
		return errInvalidGLBMagic
	}
	if header.Version != gltfGLBVersion {
		return errInvalidGLBVersion
	}

	var jsonData, binData []byte
	for {
		var chunk gltfGLBChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("%w: failed to read chunk header: %w", ErrMalformedDocument, err)
		}
		if int64(chunk.ChunkLength) > int64(r.Len()) {
			return fmt.Errorf("%w: chunk of %d bytes exceeds file", ErrMalformedDocument, chunk.ChunkLength)
		}
		payload := make([]byte, chunk.ChunkLength)
		if _, err := io.ReadFull(r, payload); err != nil {
			return fmt.Errorf("%w: failed to read chunk data: %w", ErrMalformedDocument, err)
		}

		switch chunk.ChunkType {
		case gltfGLBChunkJSON:
			jsonData = payload
		case gltfGLBChunkBIN:
			binData = payload
		}
	}
	if jsonData == nil {
		return errMissingJSONChunk
	}
	p.glbBinaryChunk = binData

	var doc gltfDocument
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	return p.finish(&doc)
}

func (p *gltfParserImpl) finish(doc *gltfDocument) error {
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return errInvalidGLTFVersion
	}
	if err := p.loadBuffers(doc); err != nil {
		return fmt.Errorf("failed to load buffers: %w", err)
	}
	p.document = doc
	return nil
}

// loadBuffers loads all buffer data from URIs, data URIs or the GLB binary chunk.
func (p *gltfParserImpl) loadBuffers(doc *gltfDocument) error {
	for i := range doc.Buffers {
		buf := &doc.Buffers[i]

		if buf.URI == "" {
			if i != 0 || p.glbBinaryChunk == nil {
				return fmt.Errorf("buffer %d has no URI and no GLB binary chunk", i)
			}
			buf.Data = p.glbBinaryChunk
		} else {
			data, err := p.loadURI(buf.URI)
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			buf.Data = data
		}

		if len(buf.Data) < buf.ByteLength {
			return fmt.Errorf("buffer %d: %w", i, errBufferSizeMismatch)
		}
	}
	return nil
}

// loadURI loads bytes from a data URI or a file relative to the base directory.
func (p *gltfParserImpl) loadURI(uri string) ([]byte, error) {
	if strings.HasPrefix(uri, "data:") {
		return decodeDataURI(uri)
	}
	data, err := os.ReadFile(filepath.Join(p.baseDir, filepath.FromSlash(uri)))
	if err != nil {
		return nil, fmt.Errorf("failed to load %q: %w", uri, err)
	}
	return data, nil
}

// decodeDataURI decodes data:[<mediatype>][;base64],<data>.
func decodeDataURI(uri string) ([]byte, error) {
	comma := strings.Index(uri, ",")
	if comma < 0 {
		return nil, errInvalidBufferURI
	}
	header := uri[len("data:"):comma]
	if !strings.Contains(header, "base64") {
		return nil, fmt.Errorf("unsupported data URI encoding: %s", header)
	}
	data, err := base64.StdEncoding.DecodeString(uri[comma+1:])
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	return data, nil
}

func (p *gltfParserImpl) Accessor(index int) (*gltfAccessor, error) {
	if p.document == nil {
		return nil, errors.New("no document loaded")
	}
	if index < 0 || index >= len(p.document.Accessors) {
		return nil, fmt.Errorf("%w: accessor %d out of range", ErrMalformedDocument, index)
	}
	return &p.document.Accessors[index], nil
}

// readElements returns the tightly packed element bytes of an accessor. An accessor without a bufferView
// reads as zeros.
func (p *gltfParserImpl) readElements(acc *gltfAccessor) ([]byte, int, error) {
	if acc.Sparse != nil {
		return nil, 0, fmt.Errorf("%w: sparse accessors", ErrUnsupportedAccessorType)
	}

	componentSize := gltfComponentTypeSize(acc.ComponentType)
	componentCount := gltfAccessorTypeComponentCount(acc.Type)
	if componentSize == 0 {
		return nil, 0, fmt.Errorf("%w: %d", ErrUnsupportedComponentType, acc.ComponentType)
	}
	if componentCount == 0 {
		return nil, 0, fmt.Errorf("%w: %s", ErrUnsupportedAccessorType, acc.Type)
	}
	elementSize := componentSize * componentCount
	if acc.Count < 0 {
		return nil, 0, fmt.Errorf("%w: negative accessor count", ErrMalformedDocument)
	}

	if acc.BufferView == nil {
		return make([]byte, acc.Count*elementSize), elementSize, nil
	}

	doc := p.document
	if *acc.BufferView < 0 || *acc.BufferView >= len(doc.BufferViews) {
		return nil, 0, fmt.Errorf("%w: bufferView %d out of range", ErrMalformedDocument, *acc.BufferView)
	}
	bv := &doc.BufferViews[*acc.BufferView]
	if bv.Buffer < 0 || bv.Buffer >= len(doc.Buffers) {
		return nil, 0, fmt.Errorf("%w: buffer %d out of range", ErrMalformedDocument, bv.Buffer)
	}
	data := doc.Buffers[bv.Buffer].Data

	stride := elementSize
	if bv.ByteStride != nil && *bv.ByteStride > 0 {
		stride = *bv.ByteStride
	}
	base := bv.ByteOffset + acc.ByteOffset
	if acc.Count > len(data) {
		return nil, 0, fmt.Errorf("%w: accessor count %d exceeds its buffer", ErrMalformedDocument, acc.Count)
	}
	if acc.Count > 0 {
		last := base + (acc.Count-1)*stride + elementSize
		if base < 0 || last > len(data) || last > bv.ByteOffset+bv.ByteLength {
			return nil, 0, fmt.Errorf("%w: accessor exceeds its bufferView", ErrMalformedDocument)
		}
	}

	result := make([]byte, acc.Count*elementSize)
	for i := 0; i < acc.Count; i++ {
		src := base + i*stride
		copy(result[i*elementSize:(i+1)*elementSize], data[src:src+elementSize])
	}
	return result, elementSize, nil
}

func (p *gltfParserImpl) ReadFloatAccessor(index int, accessorType string) ([][4]float32, error) {
	acc, err := p.Accessor(index)
	if err != nil {
		return nil, err
	}
	if acc.Type != accessorType {
		return nil, fmt.Errorf("%w: accessor %d is %s, want %s", ErrUnsupportedAccessorType, index, acc.Type, accessorType)
	}
	if acc.ComponentType != gltfComponentTypeFloat && !acc.Normalized {
		return nil, fmt.Errorf("%w: accessor %d has non-normalized component type %d", ErrUnsupportedComponentType, index, acc.ComponentType)
	}

	data, elementSize, err := p.readElements(acc)
	if err != nil {
		return nil, err
	}
	n := gltfAccessorTypeComponentCount(acc.Type)
	size := gltfComponentTypeSize(acc.ComponentType)

	result := make([][4]float32, acc.Count)
	for i := range result {
		for c := 0; c < n && c < 4; c++ {
			v, err := decodeComponent(data[i*elementSize+c*size:], acc.ComponentType)
			if err != nil {
				return nil, fmt.Errorf("accessor %d: %w", index, err)
			}
			result[i][c] = v
		}
	}
	return result, nil
}

// decodeComponent reads one component, normalizing integer types into [0, 1] or [-1, 1].
func decodeComponent(b []byte, componentType int) (float32, error) {
	switch componentType {
	case gltfComponentTypeFloat:
		return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
	case gltfComponentTypeUnsignedByte:
		return float32(b[0]) / 255, nil
	case gltfComponentTypeByte:
		return max(float32(int8(b[0]))/127, -1), nil
	case gltfComponentTypeUnsignedShort:
		return float32(binary.LittleEndian.Uint16(b)) / 65535, nil
	case gltfComponentTypeShort:
		return max(float32(int16(binary.LittleEndian.Uint16(b)))/32767, -1), nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedComponentType, componentType)
	}
}

func (p *gltfParserImpl) ReadScalarAccessor(index int) ([]float32, error) {
	acc, err := p.Accessor(index)
	if err != nil {
		return nil, err
	}
	if acc.ComponentType != gltfComponentTypeFloat {
		return nil, fmt.Errorf("%w: accessor %d must be FLOAT, got %d", ErrUnsupportedComponentType, index, acc.ComponentType)
	}
	values, err := p.ReadFloatAccessor(index, gltfAccessorTypeScalar)
	if err != nil {
		return nil, err
	}
	result := make([]float32, len(values))
	for i, v := range values {
		result[i] = v[0]
	}
	return result, nil
}

func (p *gltfParserImpl) ReadMat4Accessor(index int) ([]mgl32.Mat4, error) {
	acc, err := p.Accessor(index)
	if err != nil {
		return nil, err
	}
	if acc.Type != gltfAccessorTypeMat4 {
		return nil, fmt.Errorf("%w: accessor %d is %s, want MAT4", ErrUnsupportedAccessorType, index, acc.Type)
	}
	if acc.ComponentType != gltfComponentTypeFloat {
		return nil, fmt.Errorf("%w: accessor %d must be FLOAT, got %d", ErrUnsupportedComponentType, index, acc.ComponentType)
	}

	data, _, err := p.readElements(acc)
	if err != nil {
		return nil, err
	}
	result := make([]mgl32.Mat4, acc.Count)
	for i := range result {
		for c := 0; c < 16; c++ {
			result[i][c] = math.Float32frombits(binary.LittleEndian.Uint32(data[(i*16+c)*4:]))
		}
	}
	return result, nil
}

func (p *gltfParserImpl) ReadIndicesAccessor(index int) ([]uint32, error) {
	acc, err := p.Accessor(index)
	if err != nil {
		return nil, err
	}
	if acc.Type != gltfAccessorTypeScalar {
		return nil, fmt.Errorf("%w: index accessor %d is %s", ErrUnsupportedAccessorType, index, acc.Type)
	}
	if acc.ComponentType == gltfComponentTypeFloat {
		return nil, fmt.Errorf("%w: float indices", ErrUnsupportedComponentType)
	}

	data, size, err := p.readElements(acc)
	if err != nil {
		return nil, err
	}
	result := make([]uint32, acc.Count)
	for i := range result {
		b := data[i*size:]
		switch acc.ComponentType {
		case gltfComponentTypeUnsignedByte:
			result[i] = uint32(b[0])
		case gltfComponentTypeByte:
			result[i] = uint32(int8(b[0]))
		case gltfComponentTypeUnsignedShort:
			result[i] = uint32(binary.LittleEndian.Uint16(b))
		case gltfComponentTypeShort:
			result[i] = uint32(int16(binary.LittleEndian.Uint16(b)))
		case gltfComponentTypeUnsignedInt:
			result[i] = binary.LittleEndian.Uint32(b)
		}
	}
	return result, nil
}

func (p *gltfParserImpl) ReadJointsAccessor(index int) ([][4]uint32, error) {
	acc, err := p.Accessor(index)
	if err != nil {
		return nil, err
	}
	if acc.Type != gltfAccessorTypeVec4 {
		return nil, fmt.Errorf("%w: joints accessor %d is %s", ErrUnsupportedAccessorType, index, acc.Type)
	}

	data, elementSize, err := p.readElements(acc)
	if err != nil {
		return nil, err
	}
	result := make([][4]uint32, acc.Count)
	for i := range result {
		b := data[i*elementSize:]
		for c := 0; c < 4; c++ {
			switch acc.ComponentType {
			case gltfComponentTypeUnsignedByte:
				result[i][c] = uint32(b[c])
			case gltfComponentTypeUnsignedShort:
				result[i][c] = uint32(binary.LittleEndian.Uint16(b[c*2:]))
			default:
				return nil, fmt.Errorf("%w: joints component type %d", ErrUnsupportedComponentType, acc.ComponentType)
			}
		}
	}
	return result, nil
}

func (p *gltfParserImpl) ReadImage(index int) ([]byte, error) {
	doc := p.document
	if index < 0 || index >= len(doc.Images) {
		return nil, fmt.Errorf("%w: image %d out of range", ErrMalformedDocument, index)
	}
	img := &doc.Images[index]

	if img.BufferView != nil {
		if *img.BufferView < 0 || *img.BufferView >= len(doc.BufferViews) {
			return nil, fmt.Errorf("%w: bufferView %d out of range", ErrMalformedDocument, *img.BufferView)
		}
		bv := &doc.BufferViews[*img.BufferView]
		if bv.Buffer < 0 || bv.Buffer >= len(doc.Buffers) {
			return nil, fmt.Errorf("%w: buffer %d out of range", ErrMalformedDocument, bv.Buffer)
		}
		data := doc.Buffers[bv.Buffer].Data
		end := bv.ByteOffset + bv.ByteLength
		if bv.ByteOffset < 0 || end > len(data) {
			return nil, fmt.Errorf("%w: image bufferView exceeds buffer", ErrMalformedDocument)
		}
		return data[bv.ByteOffset:end], nil
	}
	if img.URI == "" {
		return nil, fmt.Errorf("%w: image %d has no source", ErrMalformedDocument, index)
	}
	return p.loadURI(img.URI)
}

// gltfComponentTypeSize returns the byte size of a component type.
func gltfComponentTypeSize(componentType int) int {
	switch componentType {
	case gltfComponentTypeByte, gltfComponentTypeUnsignedByte:
		return 1
	case gltfComponentTypeShort, gltfComponentTypeUnsignedShort:
		return 2
	case gltfComponentTypeUnsignedInt, gltfComponentTypeFloat:
		return 4
	default:
		return 0
	}
}

// gltfAccessorTypeComponentCount returns the number of components for an accessor type.
func gltfAccessorTypeComponentCount(accessorType string) int {
	switch accessorType {
	case gltfAccessorTypeScalar:
		return 1
	case gltfAccessorTypeVec2:
		return 2
	case gltfAccessorTypeVec3:
		return 3
	case gltfAccessorTypeVec4, gltfAccessorTypeMat2:
		return 4
	case gltfAccessorTypeMat3:
		return 9
	case gltfAccessorTypeMat4:
		return 16
	default:
		return 0
	}
}
