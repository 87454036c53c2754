package volume

import (
	"fmt"
	"image"
	"io"
	"path/filepath"

	"github.com/mrjoshuak/go-openexr/exr"
	"github.com/mrjoshuak/go-openexr/half"
)

// Baked textures are stored as half float OpenEXR slice atlases: a
// Width x (Height*Depth) image with slice z in rows [z*Height, (z+1)*Height).

// AssetPath is the file a volume's bake is saved to inside dir.
func AssetPath(dir string, v *BakedVolume) string {
	return filepath.Join(dir, v.ID+".exr")
}

func toAtlas(tex *Texture3D) *exr.RGBAImage {
	img := exr.NewRGBAImage(image.Rect(0, 0, tex.Width, tex.Height*tex.Depth))
	for z := 0; z < tex.Depth; z++ {
		for y := 0; y < tex.Height; y++ {
			for x := 0; x < tex.Width; x++ {
				c := tex.At(x, y, z)
				img.SetRGBA(x, z*tex.Height+y, c[0], c[1], c[2], c[3])
			}
		}
	}
	return img
}

func fromAtlas(img *exr.RGBAImage, w, h, d int) (*Texture3D, error) {
	b := img.Bounds()
	if b.Dx() != w || b.Dy() != h*d {
		return nil, fmt.Errorf("%w: atlas is %dx%d, want %dx%d", ErrInvalidDimensions, b.Dx(), b.Dy(), w, h*d)
	}
	tex, err := NewTexture3D(w, h, d)
	if err != nil {
		return nil, err
	}
	for z := 0; z < d; z++ {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, g, bl, a := img.RGBA(b.Min.X+x, b.Min.Y+z*h+y)
				i := tex.offset(x, y, z)
				tex.Pix[i] = half.FromFloat32(r)
				tex.Pix[i+1] = half.FromFloat32(g)
				tex.Pix[i+2] = half.FromFloat32(bl)
				tex.Pix[i+3] = half.FromFloat32(a)
			}
		}
	}
	return tex, nil
}

func EncodeEXR(w io.WriteSeeker, tex *Texture3D) error {
	if tex == nil {
		return ErrNoBuffer
	}
	if err := exr.Encode(w, toAtlas(tex)); err != nil {
		return fmt.Errorf("encode exr: %w", err)
	}
	return nil
}

func DecodeEXR(r io.ReaderAt, size int64, w, h, d int) (*Texture3D, error) {
	img, err := exr.Decode(r, size)
	if err != nil {
		return nil, fmt.Errorf("decode exr: %w", err)
	}
	return fromAtlas(img, w, h, d)
}

func SaveEXR(path string, tex *Texture3D) error {
	if tex == nil {
		return ErrNoBuffer
	}
	if err := exr.EncodeFile(path, toAtlas(tex)); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func LoadEXR(path string, w, h, d int) (*Texture3D, error) {
	img, err := exr.DecodeFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return fromAtlas(img, w, h, d)
}

// SaveVolume writes v's bake next to the other assets in dir.
func SaveVolume(dir string, v *BakedVolume) (string, error) {
	if !v.Baked() {
		return "", fmt.Errorf("save %s: %w", v, ErrNoBuffer)
	}
	path := AssetPath(dir, v)
	return path, SaveEXR(path, v.Buffer)
}

// LoadVolume restores v.Buffer from dir using v's configured dimensions.
func LoadVolume(dir string, v *BakedVolume) error {
	w, h, d := v.Dimensions()
	tex, err := LoadEXR(AssetPath(dir, v), w, h, d)
	if err != nil {
		return err
	}
	v.Buffer = tex
	return nil
}
