package volumetrics

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateNoiseDeterministic(t *testing.T) {
	a := GenerateNoise(16)
	b := GenerateNoise(16)
	assert.Equal(t, a.Pix, b.Pix)
	assert.Equal(t, image.Rect(0, 0, 16, 16), a.Bounds())

	distinct := map[uint8]bool{}
	for i := 0; i < len(a.Pix); i += 4 {
		assert.Equal(t, a.Pix[i], a.Pix[i+1])
		assert.Equal(t, uint8(255), a.Pix[i+3])
		distinct[a.Pix[i]] = true
	}
	assert.Greater(t, len(distinct), 32)

	assert.Equal(t, image.Rect(0, 0, DefaultNoiseSize, DefaultNoiseSize), GenerateNoise(0).Bounds())
}

func writePNG(t *testing.T, w, h int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	path := filepath.Join(t.TempDir(), "noise.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func TestLoadNoiseResamples(t *testing.T) {
	path := writePNG(t, 4, 4, color.RGBA{200, 100, 50, 255})

	img, err := LoadNoise(path, 32)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 32, 32), img.Bounds())
	c := img.RGBAAt(16, 16)
	assert.InDelta(t, 200, int(c.R), 1)
	assert.InDelta(t, 100, int(c.G), 1)
	assert.InDelta(t, 50, int(c.B), 1)

	_, err = LoadNoise(filepath.Join(t.TempDir(), "none.png"), 32)
	assert.Error(t, err)

	junk := filepath.Join(t.TempDir(), "junk.png")
	require.NoError(t, os.WriteFile(junk, []byte("not an image"), 0o644))
	_, err = LoadNoise(junk, 32)
	assert.ErrorContains(t, err, "decode")
}

func TestLoadResourcesOverridesAndFallbacks(t *testing.T) {
	dir := t.TempDir()
	blend := filepath.Join(dir, "blend.wgsl")
	require.NoError(t, os.WriteFile(blend, []byte("// custom"), 0o644))

	log := &capturingLogger{}
	res := LoadResources(Settings{
		Shaders: ShaderPaths{
			Blend:    blend,
			Realtime: filepath.Join(dir, "missing.wgsl"),
		},
		NoiseSize: 8,
	}, log)

	assert.Equal(t, "// custom", res.Shaders.Blend)
	assert.Empty(t, res.Shaders.Realtime)
	assert.NotEmpty(t, res.Shaders.Compositor)
	require.NotNil(t, res.Noise)
	assert.Equal(t, 8, res.Noise.Bounds().Dx())
	assert.Len(t, log.errors, 1)

	res = LoadResources(Settings{NoiseTexture: filepath.Join(dir, "gone.png")}, log)
	assert.Nil(t, res.Noise)
	assert.Len(t, log.errors, 2)
}
