package volumetrics

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math/rand/v2"
	"os"

	"github.com/gekko3d/volumetrics/fogrt/rt/gpu"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// noiseSeed keeps generated noise identical across runs.
const noiseSeed = 0x5eed

// Resources are the loaded assets a backend needs.
type Resources struct {
	Shaders gpu.ShaderSources
	Noise   *image.RGBA
}

// LoadResources resolves every resource named in s. Failures are logged and
// leave the resource empty, so the pass reports it missing every frame
// instead of the host failing to start.
func LoadResources(s Settings, log Logger) Resources {
	if log == nil {
		log = NewNopLogger()
	}
	s = s.withDefaults()
	res := Resources{Shaders: gpu.DefaultShaderSources()}

	override := func(path string, dst *string) {
		if path == "" {
			return
		}
		data, err := os.ReadFile(path)
		if err != nil {
			log.Errorf("shader %s: %v", path, err)
			*dst = ""
			return
		}
		*dst = string(data)
	}
	override(s.Shaders.Compositor, &res.Shaders.Compositor)
	override(s.Shaders.Realtime, &res.Shaders.Realtime)
	override(s.Shaders.Baked, &res.Shaders.Baked)
	override(s.Shaders.Blend, &res.Shaders.Blend)

	if s.NoiseTexture == "" {
		res.Noise = GenerateNoise(s.NoiseSize)
		return res
	}
	noise, err := LoadNoise(s.NoiseTexture, s.NoiseSize)
	if err != nil {
		log.Errorf("noise texture: %v", err)
		return res
	}
	res.Noise = noise
	return res
}

// LoadNoise decodes a png, jpeg, bmp, tiff or webp image and resamples it to
// size x size.
func LoadNoise(path string, size int) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if size <= 0 {
		size = DefaultNoiseSize
	}
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst, nil
}

// GenerateNoise returns deterministic white noise, used when no noise
// texture is configured.
func GenerateNoise(size int) *image.RGBA {
	if size <= 0 {
		size = DefaultNoiseSize
	}
	rng := rand.New(rand.NewPCG(noiseSeed, noiseSeed))
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for i := 0; i < len(img.Pix); i += 4 {
		v := uint8(rng.UintN(256))
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = v, v, v, 255
	}
	return img
}

// Install hands the resources to a WebGPU backend.
func (r Resources) Install(b *gpu.WgpuBackend) error {
	if r.Noise == nil {
		return nil
	}
	size := r.Noise.Bounds().Size()
	return b.SetNoiseTexture(uint32(size.X), uint32(size.Y), r.Noise.Pix)
}
