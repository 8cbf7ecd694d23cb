package common

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

func testFrustum() Frustum {
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	proj := Perspective(math32.Pi/3, 1, 0.5, 50)
	return ExtractFrustum(proj.Mul4(view))
}

func TestSphereInFrustum(t *testing.T) {
	f := testFrustum()

	tests := []struct {
		name   string
		center mgl32.Vec3
		radius float32
		want   bool
	}{
		{"origin", mgl32.Vec3{}, 0, true},
		{"behind eye", mgl32.Vec3{0, 0, 10}, 1, false},
		{"past far plane", mgl32.Vec3{0, 0, -100}, 1, false},
		{"far left", mgl32.Vec3{-100, 0, 0}, 1, false},
		{"far above", mgl32.Vec3{0, 100, 0}, 1, false},
		{"left but large", mgl32.Vec3{-100, 0, 0}, 200, true},
	}
	for _, tt := range tests {
		if got := f.SphereInFrustum(tt.center, tt.radius); got != tt.want {
			t.Errorf("%s: SphereInFrustum = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFrustumPlanesNormalized(t *testing.T) {
	f := testFrustum()
	for i, p := range f.Planes {
		if l := p.Normal.Len(); math32.Abs(l-1) > 1e-4 {
			t.Errorf("plane %d normal length %f", i, l)
		}
	}
}

func TestDecodeRGBA(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(1, 0, color.NRGBA{B: 255, A: 255})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	data, err := DecodeRGBA(&buf)
	if err != nil {
		t.Fatalf("DecodeRGBA failed: %v", err)
	}
	if data.Width != 2 || data.Height != 1 {
		t.Fatalf("unexpected size %dx%d", data.Width, data.Height)
	}
	if data.Pixels[0] != 255 || data.Pixels[6] != 255 {
		t.Errorf("unexpected pixels %v", data.Pixels)
	}

	if _, err := DecodeRGBA(bytes.NewReader([]byte("not an image"))); err == nil {
		t.Error("expected error for garbage input")
	}
}

func TestMipChain(t *testing.T) {
	if MipLevelCount(1, 1) != 1 || MipLevelCount(256, 16) != 9 || MipLevelCount(5, 3) != 3 {
		t.Error("MipLevelCount returned wrong level count")
	}

	base := TextureStagingData{Pixels: make([]byte, 8*2*4), Width: 8, Height: 2}
	chain := BuildMipChain(base)
	if len(chain) != 4 {
		t.Fatalf("expected 4 levels, got %d", len(chain))
	}
	last := chain[len(chain)-1]
	if last.Width != 1 || last.Height != 1 || len(last.Pixels) != 4 {
		t.Errorf("unexpected last level %dx%d (%d bytes)", last.Width, last.Height, len(last.Pixels))
	}
	if chain[1].Width != 4 || chain[1].Height != 1 {
		t.Errorf("unexpected level 1 size %dx%d", chain[1].Width, chain[1].Height)
	}
}
