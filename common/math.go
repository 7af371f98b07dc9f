package common

import (
	"unsafe"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), int(size)*len(data))
}

// StructToBytes reinterprets a pointer to a struct as a raw byte slice.
//
// Parameters:
//   - v: pointer to the struct to reinterpret
//
// Returns:
//   - []byte: byte slice view of the struct's memory
func StructToBytes[T any](v *T) []byte {
	size := unsafe.Sizeof(*v)
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), int(size))
}

// Perspective creates a right-handed perspective projection mapping depth to the WebGPU clip range [0, 1].
// mgl32.Perspective targets the OpenGL [-1, 1] range and would clip half of the depth range here.
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
//
// Returns:
//   - mgl32.Mat4: the column-major projection matrix
func Perspective(fovY, aspect, near, far float32) mgl32.Mat4 {
	f := 1 / math32.Tan(fovY/2)
	var m mgl32.Mat4
	m[0] = f / aspect
	m[5] = f
	m[10] = far / (near - far)
	m[11] = -1
	m[14] = (near * far) / (near - far)
	return m
}

// TRS builds a model matrix from translation, Euler rotation in degrees (applied Y, then X, then Z) and scale.
//
// Parameters:
//   - t: translation
//   - rotDeg: rotation angles in degrees around X, Y and Z
//   - s: per-axis scale
//
// Returns:
//   - mgl32.Mat4: T * Ry * Rx * Rz * S
func TRS(t, rotDeg, s mgl32.Vec3) mgl32.Mat4 {
	r := mgl32.HomogRotate3DY(mgl32.DegToRad(rotDeg.Y())).
		Mul4(mgl32.HomogRotate3DX(mgl32.DegToRad(rotDeg.X()))).
		Mul4(mgl32.HomogRotate3DZ(mgl32.DegToRad(rotDeg.Z())))
	return mgl32.Translate3D(t.X(), t.Y(), t.Z()).Mul4(r).Mul4(mgl32.Scale3D(s.X(), s.Y(), s.Z()))
}

// NormalMatrix returns the inverse transpose of the upper 3x3 of a world transform.
// A singular matrix yields the identity so degenerate instances shade without NaNs.
//
// Parameters:
//   - world: affine world transform
//
// Returns:
//   - mgl32.Mat3: the normal correction matrix
func NormalMatrix(world mgl32.Mat4) mgl32.Mat3 {
	upper := world.Mat3()
	if math32.Abs(upper.Det()) < 1e-12 {
		return mgl32.Ident3()
	}
	return upper.Inv().Transpose()
}

// TransformPoint applies an affine transform to a point.
func TransformPoint(m mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

// TransformDirection applies the linear part of an affine transform to a direction.
func TransformDirection(m mgl32.Mat4, d mgl32.Vec3) mgl32.Vec3 {
	return m.Mul4x1(d.Vec4(0)).Vec3()
}

// Mat3Std430 expands a 3x3 matrix to three vec4-aligned columns as WGSL mat3x3<f32> expects in storage buffers.
//
// Parameters:
//   - m: the matrix to pad
//
// Returns:
//   - [12]float32: column-major data with one padding float per column
func Mat3Std430(m mgl32.Mat3) [12]float32 {
	return [12]float32{
		m[0], m[1], m[2], 0,
		m[3], m[4], m[5], 0,
		m[6], m[7], m[8], 0,
	}
}

// Mat4ApproxEqual reports whether every element of a and b differs by at most eps.
func Mat4ApproxEqual(a, b mgl32.Mat4, eps float32) bool {
	for i := range a {
		if math32.Abs(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}
