package armature

import (
	"github.com/go-gl/mathgl/mgl32"
)

// MatrixToDualQuat converts a column-major rigid transform into a dual quaternion.
// The real part is the rotation, the dual part is 0.5 * t * r where t = (0, tx, ty, tz).
func MatrixToDualQuat(bone *Bone) Bone {
	if bone.Kind != BoneMatrix {
		panic("armature: dual quaternion conversion requires a matrix bone")
	}
	m := mgl32.Mat4(bone.Values)
	r := mgl32.Mat4ToQuat(m).Normalize()
	t := mgl32.Quat{W: 0, V: mgl32.Vec3{m[12], m[13], m[14]}}
	d := t.Mul(r).Scale(0.5)

	return NewDualQuatBone([8]float32{
		r.W, r.V[0], r.V[1], r.V[2],
		d.W, d.V[0], d.V[1], d.V[2],
	})
}

// DualQuatToMatrix converts a dual quaternion bone back into a column-major rigid transform.
// Matrix bones are returned as is.
func DualQuatToMatrix(bone *Bone) [16]float32 {
	switch bone.Kind {
	case BoneMatrix:
		return bone.Values
	case BoneDualQuat:
		v := bone.Values
		r := mgl32.Quat{W: v[0], V: mgl32.Vec3{v[1], v[2], v[3]}}
		d := mgl32.Quat{W: v[4], V: mgl32.Vec3{v[5], v[6], v[7]}}
		t := d.Mul(r.Conjugate()).Scale(2)
		m := r.Normalize().Mat4()
		m[12], m[13], m[14] = t.V[0], t.V[1], t.V[2]
		return m
	}
	panic("armature: unknown bone kind")
}
