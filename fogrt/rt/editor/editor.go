package editor

import (
	"math"

	"github.com/gekko3d/volumetrics/fogrt/rt/core"
	"github.com/gekko3d/volumetrics/fogrt/rt/volume"

	"github.com/go-gl/mathgl/mgl32"
)

type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

// Rebaker bakes a volume again after an edit.
type Rebaker interface {
	BakeVolume(v *volume.BakedVolume) error
}

// Editor selects baked volumes in the viewer and scales their density.
type Editor struct {
	Selected *volume.BakedVolume

	// Debounced density scaling
	PendingDensityFactor  float32
	LastDensityInputTime  float64
	LastDensityUpdateTime float64
}

func NewEditor() *Editor {
	return &Editor{PendingDensityFactor: 1.0}
}

func (e *Editor) Select(volumes []*volume.BakedVolume, ray Ray) {
	hit := e.Pick(volumes, ray)
	if hit != nil {
		e.Selected = hit.Volume
	} else {
		e.Selected = nil
	}
	e.PendingDensityFactor = 1.0
}

func (e *Editor) ScaleDensity(factor float32, now float64) {
	if e.Selected == nil {
		return
	}
	e.PendingDensityFactor *= factor
	e.LastDensityInputTime = now
}

// Update applies pending density changes and rebakes. It reports whether a
// bake ran.
func (e *Editor) Update(b Rebaker, now float64) (bool, error) {
	if e.Selected == nil || e.PendingDensityFactor == 1.0 {
		return false, nil
	}

	// Apply after 200ms of silence, or every 100ms while keys repeat.
	idle := (now - e.LastDensityInputTime) > 0.2
	periodic := (now - e.LastDensityUpdateTime) > 0.1
	if !idle && !periodic {
		return false, nil
	}
	e.Selected.Density = max(e.Selected.Density*e.PendingDensityFactor, 0)
	e.PendingDensityFactor = 1.0
	e.LastDensityUpdateTime = now
	return true, b.BakeVolume(e.Selected)
}

// GetPickRay builds a world ray through the cursor from the eye's inverse
// view projection.
func (e *Editor) GetPickRay(mouseX, mouseY float64, width, height int, eye core.EyeMatrices) Ray {
	nx := (2.0*float32(mouseX))/float32(width) - 1.0
	ny := 1.0 - (2.0*float32(mouseY))/float32(height) // Flip Y for NDC

	far := eye.InverseViewProjection.Mul4x1(mgl32.Vec4{nx, ny, 1, 1})
	origin := eye.Position()
	dir := far.Vec3().Mul(1 / far.W()).Sub(origin).Normalize()
	return Ray{origin, dir}
}

type HitResult struct {
	Volume *volume.BakedVolume
	T      float32
}

// Pick returns the nearest volume whose oriented box the ray enters.
func (e *Editor) Pick(volumes []*volume.BakedVolume, ray Ray) *HitResult {
	closestT := float32(1e20)
	var bestHit *HitResult

	for _, v := range volumes {
		// 1. Broad phase: World AABB
		aabb := v.WorldAABB()
		tMin, tMax := intersectAABB(ray, aabb[0], aabb[1])
		if tMin > tMax || tMax < 0 || tMin > closestT {
			continue
		}

		// 2. Narrow phase: the bounds in object space
		o2w := v.Transform.ObjectToWorld()
		w2o := v.Transform.WorldToObject()
		ro := w2o.Mul4x1(ray.Origin.Vec4(1.0)).Vec3()
		rd := w2o.Mul4x1(ray.Direction.Vec4(0.0)).Vec3()
		tMin, tMax = intersectAABB(Ray{ro, rd}, v.Bounds.Min(), v.Bounds.Max())
		if tMin > tMax || tMax < 0 {
			continue
		}

		pHitWs := o2w.Mul4x1(ro.Add(rd.Mul(tMin)).Vec4(1.0)).Vec3()
		tWorld := pHitWs.Sub(ray.Origin).Len()
		if tWorld < closestT {
			closestT = tWorld
			bestHit = &HitResult{Volume: v, T: tWorld}
		}
	}

	return bestHit
}

func intersectAABB(ray Ray, minB, maxB mgl32.Vec3) (float32, float32) {
	invDir := mgl32.Vec3{1.0 / (ray.Direction.X() + 1e-8), 1.0 / (ray.Direction.Y() + 1e-8), 1.0 / (ray.Direction.Z() + 1e-8)}
	t1 := minB.Sub(ray.Origin)
	t1 = mgl32.Vec3{t1.X() * invDir.X(), t1.Y() * invDir.Y(), t1.Z() * invDir.Z()}
	t2 := maxB.Sub(ray.Origin)
	t2 = mgl32.Vec3{t2.X() * invDir.X(), t2.Y() * invDir.Y(), t2.Z() * invDir.Z()}

	tMinV := mgl32.Vec3{min(t1.X(), t2.X()), min(t1.Y(), t2.Y()), min(t1.Z(), t2.Z())}
	tMaxV := mgl32.Vec3{max(t1.X(), t2.X()), max(t1.Y(), t2.Y()), max(t1.Z(), t2.Z())}

	realMin := max(0, tMinV.X(), tMinV.Y(), tMinV.Z())
	realMax := min(math.MaxFloat32, tMaxV.X(), tMaxV.Y(), tMaxV.Z())
	return realMin, realMax
}
