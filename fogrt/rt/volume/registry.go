package volume

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Registry holds the active baked volumes in insertion order.
type Registry struct {
	mu      sync.RWMutex
	volumes []*BakedVolume
	log     Logger
}

func NewRegistry(log Logger) *Registry {
	if log == nil {
		log = nopLogger{}
	}
	return &Registry{log: log}
}

// Add registers v. Adding a volume twice is a no-op.
func (r *Registry) Add(v *BakedVolume) {
	if v == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.Contains(r.volumes, v) {
		return
	}
	r.volumes = append(r.volumes, v)
}

// Remove unregisters v and reports whether it was present.
func (r *Registry) Remove(v *BakedVolume) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.Index(r.volumes, v)
	if i < 0 {
		return false
	}
	r.volumes = slices.Delete(r.volumes, i, i+1)
	return true
}

func (r *Registry) Contains(v *BakedVolume) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Contains(r.volumes, v)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.volumes)
}

// Snapshot copies the current volume list. Later Add and Remove calls do not
// affect it.
func (r *Registry) Snapshot() []*BakedVolume {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.volumes)
}

// Each calls fn for every volume of a snapshot, stopping when fn returns false.
func (r *Registry) Each(fn func(v *BakedVolume) bool) {
	for _, v := range r.Snapshot() {
		if !fn(v) {
			return
		}
	}
}

// BakeAll bakes every registered volume. Failures are logged and joined;
// the remaining volumes are still baked.
func (r *Registry) BakeAll(b *Baker, probes ProbeField) error {
	return r.bakeWhere(b, probes, func(*BakedVolume) bool { return true })
}

// OnLightmapBakeCompleted rebakes the volumes that follow lightmap bakes.
func (r *Registry) OnLightmapBakeCompleted(b *Baker, probes ProbeField) error {
	return r.bakeWhere(b, probes, func(v *BakedVolume) bool { return v.BakeAfterLightmapBake })
}

func (r *Registry) bakeWhere(b *Baker, probes ProbeField, keep func(*BakedVolume) bool) error {
	if b == nil {
		return fmt.Errorf("bake: nil baker")
	}
	var errs []error
	for _, v := range r.Snapshot() {
		if !keep(v) {
			continue
		}
		if err := b.BakeInto(v, probes); err != nil {
			r.log.Errorf("bake %s failed: %v", v, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
