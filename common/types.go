// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/cogentcore/webgpu/wgpu"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// TextureStagingData holds RGBA pixel data for one mip level of a texture pending GPU upload.
type TextureStagingData struct {
	// Pixels is the byte slice representing the actual pixel data for the texture. It should be in RGBA format, with 4 bytes per pixel.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
}

// SamplerStagingData holds the configuration for a sampler pending GPU creation.
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range in each dimension (U, V, W).
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail (LOD) for mipmapping.
	LodMinClamp, LodMaxClamp float32
	// MaxAnisotropy specifies the maximum anisotropy level for anisotropic filtering.
	MaxAnisotropy uint16
}

// SolidTexture returns a 1x1 RGBA texture filled with a single pixel.
//
// Parameters:
//   - pixel: the RGBA value
//
// Returns:
//   - TextureStagingData: the 1x1 staging data
func SolidTexture(pixel [4]byte) TextureStagingData {
	return TextureStagingData{Pixels: pixel[:], Width: 1, Height: 1}
}

// DecodeRGBA decodes an encoded image (PNG, JPEG, BMP, TIFF or WebP) into 8-bit RGBA pixels.
//
// Parameters:
//   - r: reader providing the encoded image bytes
//
// Returns:
//   - TextureStagingData: the decoded RGBA pixels and dimensions
//   - error: error if the image format is unknown or the data is corrupt
func DecodeRGBA(r io.Reader) (TextureStagingData, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return TextureStagingData{}, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	return TextureStagingData{
		Pixels: rgba.Pix,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
	}, nil
}

// MipLevelCount returns floor(log2(max(width, height))) + 1.
func MipLevelCount(width, height uint32) uint32 {
	size := max(width, height)
	levels := uint32(1)
	for size > 1 {
		size >>= 1
		levels++
	}
	return levels
}

// BuildMipChain downsamples base into a full mip chain, halving each dimension per level
// until a 1x1 level is reached. Level 0 is base itself.
//
// Parameters:
//   - base: the full-resolution RGBA level
//
// Returns:
//   - []TextureStagingData: all mip levels, largest first
func BuildMipChain(base TextureStagingData) []TextureStagingData {
	levels := MipLevelCount(base.Width, base.Height)
	chain := make([]TextureStagingData, 0, levels)
	chain = append(chain, base)

	prev := &image.RGBA{
		Pix:    base.Pixels,
		Stride: int(base.Width) * 4,
		Rect:   image.Rect(0, 0, int(base.Width), int(base.Height)),
	}
	for level := uint32(1); level < levels; level++ {
		w := max(base.Width>>level, 1)
		h := max(base.Height>>level, 1)
		next := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
		draw.ApproxBiLinear.Scale(next, next.Bounds(), prev, prev.Bounds(), draw.Src, nil)
		chain = append(chain, TextureStagingData{Pixels: next.Pix, Width: w, Height: h})
		prev = next
	}
	return chain
}
