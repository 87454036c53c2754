package volume

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/go-gl/mathgl/mgl32"
)

// Logger is the subset of the host logger the bake path writes to.
type Logger interface {
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// bakeQueueSize bounds the tasks of one bake so submission never waits on a
// full queue.
const bakeQueueSize = 256

// Baker evaluates probe fields into volume textures. Its worker pool is
// reused across bakes.
type Baker struct {
	pool    worker.DynamicWorkerPool
	workers int
	log     Logger
}

type BakerOption func(*Baker)

func WithWorkers(n int) BakerOption {
	return func(b *Baker) {
		if n > 0 {
			b.workers = n
		}
	}
}

func WithLogger(l Logger) BakerOption {
	return func(b *Baker) {
		if l != nil {
			b.log = l
		}
	}
}

func NewBaker(opts ...BakerOption) *Baker {
	b := &Baker{
		workers: runtime.NumCPU(),
		log:     nopLogger{},
	}
	for _, opt := range opts {
		opt(b)
	}
	b.pool = worker.NewDynamicWorkerPool(b.workers, bakeQueueSize, 1*time.Second)
	return b
}

// Bake produces a new texture for v from the probe field. The result is
// deterministic for identical inputs. The volume is not modified.
func (b *Baker) Bake(v *BakedVolume, probes ProbeField) (*Texture3D, error) {
	if v == nil {
		return nil, fmt.Errorf("bake: nil volume")
	}
	w, h, d := v.Dimensions()
	tex, err := NewTexture3D(w, h, d)
	if err != nil {
		return nil, fmt.Errorf("bake %s: %w", v, err)
	}

	start := time.Now()
	if v.PassFlags.Has(PassIndirect) && probes != nil {
		b.bakeIndirect(v, probes, tex)
	}
	b.log.Infof("baked volume %s (%dx%dx%d) in %s", v, w, h, d, time.Since(start))
	return tex, nil
}

// BakeInto bakes v and stores the result in v.Buffer.
func (b *Baker) BakeInto(v *BakedVolume, probes ProbeField) error {
	tex, err := b.Bake(v, probes)
	if err != nil {
		return err
	}
	v.Buffer = tex
	return nil
}

func (b *Baker) bakeIndirect(v *BakedVolume, probes ProbeField, tex *Texture3D) {
	dirs := v.SampleDirections()
	scale := mgl32.Vec4{v.Filter[0], v.Filter[1], v.Filter[2], 1}.Mul(v.Density)

	// Each task owns a contiguous run of z slices.
	chunks := min(tex.Depth, max(b.workers*4, 1), bakeQueueSize)
	per := (tex.Depth + chunks - 1) / chunks

	var wg sync.WaitGroup
	id := 0
	for z0 := 0; z0 < tex.Depth; z0 += per {
		z1 := min(z0+per, tex.Depth)
		wg.Add(1)
		b.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				for z := z0; z < z1; z++ {
					bakeSlice(v, probes, dirs, scale, tex, z)
				}
				return nil, nil
			},
		})
		id++
	}
	wg.Wait()
}

func bakeSlice(v *BakedVolume, probes ProbeField, dirs []mgl32.Vec3, scale mgl32.Vec4, tex *Texture3D, z int) {
	for y := 0; y < tex.Height; y++ {
		for x := 0; x < tex.Width; x++ {
			tex.Set(x, y, z, sampleProbe(probes, v.PointInBounds(x, y, z), dirs, scale))
		}
	}
}

func sampleProbe(probes ProbeField, p mgl32.Vec3, dirs []mgl32.Vec3, scale mgl32.Vec4) mgl32.Vec4 {
	sh, ok := probes.Probe(p)
	if !ok || len(dirs) == 0 {
		return mgl32.Vec4{}
	}
	var sum mgl32.Vec4
	for _, d := range dirs {
		sum = sum.Add(sh.Evaluate(d).Vec4(1))
	}
	avg := sum.Mul(1 / float32(len(dirs)))
	return mgl32.Vec4{avg[0] * scale[0], avg[1] * scale[1], avg[2] * scale[2], avg[3] * scale[3]}
}
