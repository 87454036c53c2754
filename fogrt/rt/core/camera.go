package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxEyes is the number of eye slots a frame carries (mono uses slot 0).
const MaxEyes = 2

// EyeMatrices holds one eye's camera transforms. Projection is expected in
// GPU clip conventions (depth 0..1), see GPUProjection.
type EyeMatrices struct {
	CameraToWorld         mgl32.Mat4
	WorldToCamera         mgl32.Mat4
	Projection            mgl32.Mat4
	InverseProjection     mgl32.Mat4
	InverseViewProjection mgl32.Mat4
}

func IdentityEye() EyeMatrices {
	id := mgl32.Ident4()
	return EyeMatrices{
		CameraToWorld:         id,
		WorldToCamera:         id,
		Projection:            id,
		InverseProjection:     id,
		InverseViewProjection: id,
	}
}

// NewEyeMatrices derives every per-eye matrix from a view and projection.
func NewEyeMatrices(view, proj mgl32.Mat4) EyeMatrices {
	return EyeMatrices{
		CameraToWorld:         view.Inv(),
		WorldToCamera:         view,
		Projection:            proj,
		InverseProjection:     proj.Inv(),
		InverseViewProjection: proj.Mul4(view).Inv(),
	}
}

func (e EyeMatrices) ViewProjection() mgl32.Mat4 {
	return e.Projection.Mul4(e.WorldToCamera)
}

func (e EyeMatrices) Position() mgl32.Vec3 {
	return e.CameraToWorld.Col(3).Vec3()
}

// Frustum returns the eye's clip planes, see ExtractFrustum.
func (e EyeMatrices) Frustum() [6]mgl32.Vec4 {
	return ExtractFrustum(e.ViewProjection())
}

// GPUProjection remaps an OpenGL style projection (depth -1..1) to the
// 0..1 depth range WebGPU uses.
func GPUProjection(glProj mgl32.Mat4) mgl32.Mat4 {
	remap := mgl32.Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 0.5, 0,
		0, 0, 0.5, 1,
	}
	return remap.Mul4(glProj)
}

// CameraFrame is the per-frame camera snapshot handed to the fog pass.
// It is captured once per frame and treated as immutable afterwards.
type CameraFrame struct {
	Name     string
	Eyes     [MaxEyes]EyeMatrices
	EyeCount int
	Width    uint32
	Height   uint32
}

func NewMonoFrame(name string, width, height uint32, view, proj mgl32.Mat4) CameraFrame {
	return CameraFrame{
		Name:     name,
		Eyes:     [MaxEyes]EyeMatrices{NewEyeMatrices(view, proj), IdentityEye()},
		EyeCount: 1,
		Width:    width,
		Height:   height,
	}
}

func NewStereoFrame(name string, width, height uint32, left, right EyeMatrices) CameraFrame {
	return CameraFrame{
		Name:     name,
		Eyes:     [MaxEyes]EyeMatrices{left, right},
		EyeCount: 2,
		Width:    width,
		Height:   height,
	}
}

func (f *CameraFrame) Stereo() bool {
	return f.EyeCount > 1
}

// Views returns how many eyes must be rendered, clamped to [1, MaxEyes].
func (f *CameraFrame) Views() int {
	if f.EyeCount < 1 {
		return 1
	}
	if f.EyeCount > MaxEyes {
		return MaxEyes
	}
	return f.EyeCount
}

func (f *CameraFrame) Eye(i int) EyeMatrices {
	if i < 0 || i >= MaxEyes {
		return IdentityEye()
	}
	return f.Eyes[i]
}

// FlyCamera is a Z-up yaw/pitch camera used by the viewer.
type FlyCamera struct {
	Position    mgl32.Vec3
	Yaw         float32
	Pitch       float32
	Speed       float32
	Sensitivity float32
	FovY        float32
	Near        float32
	Far         float32
}

func NewFlyCamera() *FlyCamera {
	return &FlyCamera{
		Position:    mgl32.Vec3{0, 2, 20},
		Speed:       10.0,
		Sensitivity: 0.003,
		FovY:        60,
		Near:        0.1,
		Far:         500,
	}
}

func (c *FlyCamera) GetForward() mgl32.Vec3 {
	// Z-up: Forward in XY plane, Z for pitch
	return mgl32.Vec3{
		float32(math.Cos(float64(c.Pitch)) * math.Sin(float64(c.Yaw))),
		float32(-math.Cos(float64(c.Pitch)) * math.Cos(float64(c.Yaw))),
		float32(math.Sin(float64(c.Pitch))),
	}
}

func (c *FlyCamera) GetRight() mgl32.Vec3 {
	return mgl32.Vec3{
		float32(-math.Sin(float64(c.Yaw))),
		float32(math.Cos(float64(c.Yaw))),
		0,
	}
}

func (c *FlyCamera) GetViewMatrix() mgl32.Mat4 {
	forward := c.GetForward()
	eye := c.Position
	target := eye.Add(forward)
	up := mgl32.Vec3{0, 0, 1} // Z-up
	return mgl32.LookAtV(eye, target, up)
}

func (c *FlyCamera) GetProjection(aspect float32) mgl32.Mat4 {
	return GPUProjection(mgl32.Perspective(mgl32.DegToRad(c.FovY), aspect, c.Near, c.Far))
}

// Frame captures a mono camera frame for the given viewport.
func (c *FlyCamera) Frame(name string, width, height uint32) CameraFrame {
	aspect := float32(1)
	if height > 0 {
		aspect = float32(width) / float32(height)
	}
	return NewMonoFrame(name, width, height, c.GetViewMatrix(), c.GetProjection(aspect))
}

// ExtractFrustum extracts the 6 planes of the frustum from the view-projection matrix.
// Returns planes in order: Left, Right, Bottom, Top, Near, Far.
// Plane is Ax + By + Cz + D = 0 with the normal pointing inside.
// The near plane uses the -1..1 depth convention, which is a superset of the
// 0..1 one, so culling against it stays conservative.
func ExtractFrustum(vp mgl32.Mat4) [6]mgl32.Vec4 {
	var planes [6]mgl32.Vec4

	row := func(r int) mgl32.Vec4 {
		return mgl32.Vec4{vp.At(r, 0), vp.At(r, 1), vp.At(r, 2), vp.At(r, 3)}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	planes[0] = r3.Add(r0) // Left
	planes[1] = r3.Sub(r0) // Right
	planes[2] = r3.Add(r1) // Bottom
	planes[3] = r3.Sub(r1) // Top
	planes[4] = r3.Add(r2) // Near
	planes[5] = r3.Sub(r2) // Far

	for i := 0; i < 6; i++ {
		length := float32(math.Sqrt(float64(planes[i][0]*planes[i][0] + planes[i][1]*planes[i][1] + planes[i][2]*planes[i][2])))
		if length > 0 {
			planes[i] = planes[i].Mul(1.0 / length)
		}
	}

	return planes
}
