package gpu

import (
	"errors"
	"fmt"

	"github.com/gekko3d/volumetrics/fogrt/rt/volume"

	"github.com/cogentcore/webgpu/wgpu"
)

// volumeTexture is the device copy of a baked volume's buffer. It is
// re-uploaded when the volume is rebaked, which always yields a new buffer.
type volumeTexture struct {
	source *volume.Texture3D
	tex    *wgpu.Texture
	view   *wgpu.TextureView
}

func (t *volumeTexture) release() {
	if t.view != nil {
		t.view.Release()
	}
	if t.tex != nil {
		t.tex.Release()
	}
}

func (b *WgpuBackend) uploadTexture3D(label string, src *volume.Texture3D) (*volumeTexture, error) {
	w, h, d := uint32(src.Width), uint32(src.Height), uint32(src.Depth)
	tex, err := b.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          wgpu.Extent3D{Width: w, Height: h, DepthOrArrayLayers: d},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension3D,
		Format:        wgpu.TextureFormatRGBA16Float,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	b.Queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		src.Bytes(),
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  src.BytesPerRow(),
			RowsPerImage: h,
		},
		&wgpu.Extent3D{Width: w, Height: h, DepthOrArrayLayers: d},
	)
	view, err := tex.CreateView(&wgpu.TextureViewDescriptor{
		Label:           label + " View",
		Format:          wgpu.TextureFormatRGBA16Float,
		Dimension:       wgpu.TextureViewDimension3D,
		BaseMipLevel:    0,
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: 1,
	})
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("create %s view: %w", label, err)
	}
	return &volumeTexture{source: src, tex: tex, view: view}, nil
}

func (b *WgpuBackend) volumeView(v *volume.BakedVolume) (*wgpu.TextureView, error) {
	if v == nil || v.Buffer == nil {
		return nil, volume.ErrNoBuffer
	}
	if t, ok := b.textures[v.ID]; ok {
		if t.source == v.Buffer {
			return t.view, nil
		}
		t.release()
		delete(b.textures, v.ID)
	}
	t, err := b.uploadTexture3D("Fog Volume "+v.Name, v.Buffer)
	if err != nil {
		return nil, err
	}
	b.textures[v.ID] = t
	b.log.Infof("uploaded baked volume %s (%dx%dx%d)", v.Name, v.Buffer.Width, v.Buffer.Height, v.Buffer.Depth)
	return t.view, nil
}

// bindVolume resolves the texture and a uniform buffer for a baked dispatch.
func (b *WgpuBackend) bindVolume(d Dispatch) (*wgpu.TextureView, *wgpu.Buffer, error) {
	view, err := b.volumeView(d.Volume)
	if err != nil {
		return nil, nil, err
	}
	if d.VolumeParams == nil {
		return nil, nil, errors.New("baked dispatch without volume params")
	}
	if b.volumeCursor == len(b.volumeBufs) {
		b.volumeBufs = append(b.volumeBufs, nil)
	}
	slot := &b.volumeBufs[b.volumeCursor]
	if err := b.ensureBuffer(fmt.Sprintf("Fog Volume Params %d", b.volumeCursor), slot, d.VolumeParams.Bytes(), wgpu.BufferUsageUniform); err != nil {
		return nil, nil, err
	}
	b.volumeCursor++
	return view, *slot, nil
}

// ForgetVolume drops the device copy of a volume that left the registry.
func (b *WgpuBackend) ForgetVolume(id string) {
	if t, ok := b.textures[id]; ok {
		t.release()
		delete(b.textures, id)
	}
}

// SetNoiseTexture uploads the RGBA8 jitter noise read by the realtime
// sampler.
func (b *WgpuBackend) SetNoiseTexture(width, height uint32, pix []byte) error {
	if width == 0 || height == 0 || len(pix) < int(width*height*4) {
		return fmt.Errorf("noise texture %dx%d with %d bytes", width, height, len(pix))
	}
	tex, err := b.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Fog Noise",
		Size:          wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create noise texture: %w", err)
	}
	b.Queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		pix[:width*height*4],
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  width * 4,
			RowsPerImage: height,
		},
		&wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
	)
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return fmt.Errorf("create noise view: %w", err)
	}
	b.releaseNoise()
	b.NoiseTexture, b.NoiseView = tex, view
	return nil
}

func (b *WgpuBackend) releaseNoise() {
	if b.NoiseView != nil {
		b.NoiseView.Release()
		b.NoiseView = nil
	}
	if b.NoiseTexture != nil {
		b.NoiseTexture.Release()
		b.NoiseTexture = nil
	}
}
