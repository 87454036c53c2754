package core

import "github.com/go-gl/mathgl/mgl32"

// Bounds is an axis aligned box described by its center and half size.
type Bounds struct {
	Center  mgl32.Vec3
	Extents mgl32.Vec3
}

func NewBounds(center, size mgl32.Vec3) Bounds {
	return Bounds{Center: center, Extents: size.Mul(0.5)}
}

func (b Bounds) Size() mgl32.Vec3 {
	return b.Extents.Mul(2)
}

func (b Bounds) Min() mgl32.Vec3 {
	return b.Center.Sub(b.Extents)
}

func (b Bounds) Max() mgl32.Vec3 {
	return b.Center.Add(b.Extents)
}

func (b Bounds) Contains(p mgl32.Vec3) bool {
	mn, mx := b.Min(), b.Max()
	for i := 0; i < 3; i++ {
		if p[i] < mn[i] || p[i] > mx[i] {
			return false
		}
	}
	return true
}

// Corners returns the 8 box corners.
func (b Bounds) Corners() [8]mgl32.Vec3 {
	minB, maxB := b.Min(), b.Max()
	return [8]mgl32.Vec3{
		{minB.X(), minB.Y(), minB.Z()},
		{maxB.X(), minB.Y(), minB.Z()},
		{minB.X(), maxB.Y(), minB.Z()},
		{maxB.X(), maxB.Y(), minB.Z()},
		{minB.X(), minB.Y(), maxB.Z()},
		{maxB.X(), minB.Y(), maxB.Z()},
		{minB.X(), maxB.Y(), maxB.Z()},
		{maxB.X(), maxB.Y(), maxB.Z()},
	}
}

// WorldAABB transforms the box by m and returns the enclosing world
// space min/max pair.
func (b Bounds) WorldAABB(m mgl32.Mat4) [2]mgl32.Vec3 {
	inf := float32(1e20)
	wMin := mgl32.Vec3{inf, inf, inf}
	wMax := mgl32.Vec3{-inf, -inf, -inf}

	for _, c := range b.Corners() {
		wc := m.Mul4x1(c.Vec4(1.0)).Vec3()
		for i := 0; i < 3; i++ {
			wMin[i] = min(wMin[i], wc[i])
			wMax[i] = max(wMax[i], wc[i])
		}
	}
	return [2]mgl32.Vec3{wMin, wMax}
}

// AABBInFrustum checks if an AABB is visible within the frustum defined by 6 planes.
// Planes are expected to be in Ax+By+Cz+D=0 form, with the normal pointing INSIDE.
func AABBInFrustum(aabb [2]mgl32.Vec3, planes [6]mgl32.Vec4) bool {
	for i := 0; i < 6; i++ {
		plane := planes[i]

		// Most-inside corner; if even that one is behind the plane the box is out.
		var p mgl32.Vec3
		for axis := 0; axis < 3; axis++ {
			if plane[axis] > 0 {
				p[axis] = aabb[1][axis]
			} else {
				p[axis] = aabb[0][axis]
			}
		}

		dist := plane[0]*p[0] + plane[1]*p[1] + plane[2]*p[2] + plane[3]
		if dist < 0 {
			return false
		}
	}
	return true
}
