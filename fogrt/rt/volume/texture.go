package volume

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/mrjoshuak/go-openexr/half"
)

// MaxBufferDimension caps each axis of a baked texture.
const MaxBufferDimension = 512

var ErrInvalidDimensions = errors.New("volume: invalid texture dimensions")

// Texture3D is an RGBA16F texture stored x fastest, then y, then z.
type Texture3D struct {
	Width  int
	Height int
	Depth  int
	Pix    []half.Half
}

func NewTexture3D(w, h, d int) (*Texture3D, error) {
	if w <= 0 || h <= 0 || d <= 0 || w > MaxBufferDimension || h > MaxBufferDimension || d > MaxBufferDimension {
		return nil, fmt.Errorf("%w: %dx%dx%d", ErrInvalidDimensions, w, h, d)
	}
	return &Texture3D{
		Width:  w,
		Height: h,
		Depth:  d,
		Pix:    make([]half.Half, w*h*d*4),
	}, nil
}

func (t *Texture3D) offset(x, y, z int) int {
	return ((z*t.Height+y)*t.Width + x) * 4
}

func (t *Texture3D) inBounds(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 && x < t.Width && y < t.Height && z < t.Depth
}

func (t *Texture3D) Set(x, y, z int, c mgl32.Vec4) {
	if !t.inBounds(x, y, z) {
		return
	}
	i := t.offset(x, y, z)
	for k := 0; k < 4; k++ {
		t.Pix[i+k] = half.FromFloat32(c[k])
	}
}

func (t *Texture3D) At(x, y, z int) mgl32.Vec4 {
	if !t.inBounds(x, y, z) {
		return mgl32.Vec4{}
	}
	i := t.offset(x, y, z)
	return mgl32.Vec4{
		t.Pix[i].Float32(),
		t.Pix[i+1].Float32(),
		t.Pix[i+2].Float32(),
		t.Pix[i+3].Float32(),
	}
}

// BytesPerRow is the upload row pitch of one x row.
func (t *Texture3D) BytesPerRow() uint32 {
	return uint32(t.Width * 8)
}

// Bytes returns the texels as little endian half floats, ready for upload.
func (t *Texture3D) Bytes() []byte {
	out := make([]byte, len(t.Pix)*2)
	for i, h := range t.Pix {
		b := h.Bits()
		out[i*2] = byte(b)
		out[i*2+1] = byte(b >> 8)
	}
	return out
}
