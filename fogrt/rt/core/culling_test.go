package core

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestFrustumCulling(t *testing.T) {
	// Camera at origin looking down -Z, 90 deg FOV, near 1, far 100.
	proj := GPUProjection(mgl32.Perspective(mgl32.DegToRad(90), 1.0, 1.0, 100.0))
	view := mgl32.LookAtV(
		mgl32.Vec3{0, 0, 0},
		mgl32.Vec3{0, 0, -1},
		mgl32.Vec3{0, 1, 0},
	)
	eye := NewEyeMatrices(view, proj)
	planes := eye.Frustum()

	tests := []struct {
		name     string
		bounds   Bounds
		expected bool
	}{
		{"Inside (center)", NewBounds(mgl32.Vec3{0, 0, -7.5}, mgl32.Vec3{2, 2, 5}), true},
		{"Outside (Left)", NewBounds(mgl32.Vec3{-17.5, 0, -7.5}, mgl32.Vec3{5, 2, 5}), false},
		{"Outside (Right)", NewBounds(mgl32.Vec3{17.5, 0, -7.5}, mgl32.Vec3{5, 2, 5}), false},
		{"Outside (Behind)", NewBounds(mgl32.Vec3{0, 0, 3.5}, mgl32.Vec3{2, 2, 3}), false},
		{"Outside (Far)", NewBounds(mgl32.Vec3{0, 0, -175}, mgl32.Vec3{2, 2, 50}), false},
		{"Intersecting (Left Plane)", NewBounds(mgl32.Vec3{-10, 0, -7.5}, mgl32.Vec3{10, 2, 5}), true},
		{"Encompassing (Huge box)", NewBounds(mgl32.Vec3{}, mgl32.Vec3{2000, 2000, 2000}), true},
	}

	for _, tc := range tests {
		aabb := tc.bounds.WorldAABB(mgl32.Ident4())
		visible := AABBInFrustum(aabb, planes)
		if visible != tc.expected {
			t.Errorf("Test %s failed: expected %v, got %v", tc.name, tc.expected, visible)
			for i, p := range planes {
				dist := p.Dot(tc.bounds.Center.Vec4(1.0))
				t.Logf("  P%d: %v, Dist(Center)=%f", i, p, dist)
			}
		}
	}
}

func TestWorldAABBRotated(t *testing.T) {
	b := NewBounds(mgl32.Vec3{}, mgl32.Vec3{2, 2, 2})
	tr := NewTransform()
	tr.Rotation = mgl32.QuatRotate(mgl32.DegToRad(45), mgl32.Vec3{0, 0, 1})
	tr.Position = mgl32.Vec3{10, 0, 0}

	aabb := b.WorldAABB(tr.ObjectToWorld())
	// A unit cube rotated 45 degrees about Z spans sqrt(2) in X and Y.
	if !mgl32.FloatEqualThreshold(aabb[1].X()-10, 1.41421, 1e-3) {
		t.Errorf("expected rotated max X ~ 11.414, got %f", aabb[1].X())
	}
	if !mgl32.FloatEqualThreshold(aabb[1].Z(), 1, 1e-5) {
		t.Errorf("expected Z untouched, got %f", aabb[1].Z())
	}
}

func TestBoundsContains(t *testing.T) {
	b := NewBounds(mgl32.Vec3{1, 1, 1}, mgl32.Vec3{2, 2, 2})
	if !b.Contains(mgl32.Vec3{0, 0, 0}) || !b.Contains(mgl32.Vec3{2, 2, 2}) {
		t.Error("box corners should be contained")
	}
	if b.Contains(mgl32.Vec3{2.01, 1, 1}) {
		t.Error("point outside +X should not be contained")
	}
}

func TestOrthoFrustum(t *testing.T) {
	proj := GPUProjection(mgl32.Ortho(-10, 10, -10, 10, 0, 20))
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
	planes := ExtractFrustum(proj.Mul4(view))

	if !AABBInFrustum([2]mgl32.Vec3{{-1, -1, -6}, {1, 1, -4}}, planes) {
		t.Error("Ortho: AABB should be inside")
	}
	// Far is 20 => Z=-20.
	if AABBInFrustum([2]mgl32.Vec3{{-1, -1, -26}, {1, 1, -24}}, planes) {
		t.Error("Ortho: AABB at -25 should be outside")
	}
}
