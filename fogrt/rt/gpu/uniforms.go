package gpu

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// UniformBlock is the CPU copy of one parameter block, written through
// resolved handles and uploaded as a whole.
type UniformBlock struct {
	block  Block
	params *ParamTable
	data   []byte
}

func NewUniformBlock(params *ParamTable, b Block) *UniformBlock {
	return &UniformBlock{
		block:  b,
		params: params,
		data:   make([]byte, params.BlockSize(b)),
	}
}

func (u *UniformBlock) Block() Block {
	return u.block
}

// Bytes returns the backing storage. It is valid until the next write.
func (u *UniformBlock) Bytes() []byte {
	return u.data
}

func (u *UniformBlock) Reset() {
	clear(u.data)
}

// offset returns the byte offset of element i of id, or -1 when id does not
// belong to this block or i is out of range.
func (u *UniformBlock) offset(id ParamID, i int) int {
	h := u.params.Handle(id)
	if h.Block != u.block || i < 0 || i >= h.Count {
		return -1
	}
	return h.Offset + i*h.Stride()
}

func (u *UniformBlock) SetVec4(id ParamID, v mgl32.Vec4) {
	u.SetVec4At(id, 0, v)
}

func (u *UniformBlock) SetVec4At(id ParamID, i int, v mgl32.Vec4) {
	off := u.offset(id, i)
	if off < 0 {
		return
	}
	putFloats(u.data[off:], v[:])
}

func (u *UniformBlock) SetMat4(id ParamID, m mgl32.Mat4) {
	u.SetMat4At(id, 0, m)
}

func (u *UniformBlock) SetMat4At(id ParamID, i int, m mgl32.Mat4) {
	off := u.offset(id, i)
	if off < 0 {
		return
	}
	putFloats(u.data[off:], m[:])
}

func (u *UniformBlock) Vec4(id ParamID) mgl32.Vec4 {
	return u.Vec4At(id, 0)
}

func (u *UniformBlock) Vec4At(id ParamID, i int) mgl32.Vec4 {
	var v mgl32.Vec4
	if off := u.offset(id, i); off >= 0 {
		getFloats(u.data[off:], v[:])
	}
	return v
}

func (u *UniformBlock) Mat4(id ParamID) mgl32.Mat4 {
	return u.Mat4At(id, 0)
}

func (u *UniformBlock) Mat4At(id ParamID, i int) mgl32.Mat4 {
	var m mgl32.Mat4
	if off := u.offset(id, i); off >= 0 {
		getFloats(u.data[off:], m[:])
	}
	return m
}

func putFloats(dst []byte, src []float32) {
	for i, v := range src {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
}

func getFloats(src []byte, dst []float32) {
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
	}
}
