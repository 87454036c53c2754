package volume

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
)

// ContactSheet lays the texture's z slices out on a grid, tone mapped to
// 8 bit. Slice z sits at column z%cols, row z/cols.
func ContactSheet(tex *Texture3D) *image.RGBA {
	cols := int(math.Ceil(math.Sqrt(float64(tex.Depth))))
	rows := (tex.Depth + cols - 1) / cols
	img := image.NewRGBA(image.Rect(0, 0, cols*tex.Width, rows*tex.Height))
	for z := 0; z < tex.Depth; z++ {
		ox := (z % cols) * tex.Width
		oy := (z / cols) * tex.Height
		for y := 0; y < tex.Height; y++ {
			for x := 0; x < tex.Width; x++ {
				c := tex.At(x, y, z)
				img.SetRGBA(ox+x, oy+y, color.RGBA{
					R: toneMap(c[0]),
					G: toneMap(c[1]),
					B: toneMap(c[2]),
					A: 255,
				})
			}
		}
	}
	return img
}

// toneMap is a Reinhard curve to 8 bit.
func toneMap(v float32) uint8 {
	if v <= 0 || v != v {
		return 0
	}
	return uint8(math.Round(float64(v/(1+v)) * 255))
}

// WritePreview encodes the contact sheet scaled by scale in the named format
// (png, bmp or tiff).
func WritePreview(w io.Writer, tex *Texture3D, scale int, format string) error {
	if tex == nil {
		return ErrNoBuffer
	}
	sheet := ContactSheet(tex)
	var out image.Image = sheet
	if scale > 1 {
		b := sheet.Bounds()
		dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
		draw.NearestNeighbor.Scale(dst, dst.Bounds(), sheet, b, draw.Src, nil)
		out = dst
	}

	switch strings.ToLower(format) {
	case "", "png":
		return png.Encode(w, out)
	case "bmp":
		return bmp.Encode(w, out)
	case "tif", "tiff":
		return tiff.Encode(w, out, &tiff.Options{Compression: tiff.Deflate})
	}
	return fmt.Errorf("unknown preview format %q", format)
}

// WritePreviewPNG is WritePreview in PNG.
func WritePreviewPNG(w io.Writer, tex *Texture3D, scale int) error {
	return WritePreview(w, tex, scale, "png")
}
