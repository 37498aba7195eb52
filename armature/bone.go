package armature

import (
	"encoding/json"
	"fmt"

	"github.com/binzume/blendconv/geom"
)

type BoneKind uint8

const (
	// BoneMatrix holds a 4x4 transform. Row-major as exported, column-major after TransposeActions.
	BoneMatrix BoneKind = iota
	// BoneDualQuat holds [rw, rx, ry, rz, dw, dx, dy, dz].
	BoneDualQuat
)

func (k BoneKind) String() string {
	switch k {
	case BoneMatrix:
		return "Matrix"
	case BoneDualQuat:
		return "DualQuat"
	}
	return fmt.Sprintf("BoneKind(%d)", k)
}

// Bone is either a matrix or a dual quaternion.
type Bone struct {
	Kind   BoneKind
	Values [16]float32
}

func NewMatrixBone(m [16]float32) Bone {
	return Bone{Kind: BoneMatrix, Values: m}
}

func NewDualQuatBone(dq [8]float32) Bone {
	b := Bone{Kind: BoneDualQuat}
	copy(b.Values[:], dq[:])
	return b
}

// Multiply overwrites b with rhs * b. Nothing happens unless both bones are matrices.
func (b *Bone) Multiply(rhs *Bone) {
	switch b.Kind {
	case BoneMatrix:
		switch rhs.Kind {
		case BoneMatrix:
			lhs := geom.Matrix4(b.Values)
			r := geom.Matrix4(rhs.Values)
			b.Values = *r.Mul(&lhs)
		case BoneDualQuat:
		}
	case BoneDualQuat:
	}
}

// Transpose converts a row-major matrix into a column-major one.
// Dual quaternions can't be transposed; doing so is a pass ordering bug and panics.
func (b *Bone) Transpose() {
	switch b.Kind {
	case BoneMatrix:
		m := geom.Matrix4(b.Values)
		b.Values = *m.Transposed()
	case BoneDualQuat:
		panic("armature: cannot transpose dual quaternion bone")
	default:
		panic(fmt.Sprintf("armature: unknown bone kind %v", b.Kind))
	}
}

// Slice returns the backing storage: 16 floats for a matrix, 8 for a dual quaternion.
// Callers must not modify it.
func (b *Bone) Slice() []float32 {
	switch b.Kind {
	case BoneMatrix:
		return b.Values[:]
	case BoneDualQuat:
		return b.Values[:8]
	}
	panic(fmt.Sprintf("armature: unknown bone kind %v", b.Kind))
}

func (b Bone) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string][]float32{b.Kind.String(): b.Slice()})
}

func (b *Bone) UnmarshalJSON(data []byte) error {
	var v map[string][]float32
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if len(v) != 1 {
		return fmt.Errorf("bone must have exactly one of Matrix or DualQuat")
	}
	if m, ok := v["Matrix"]; ok {
		if len(m) != 16 {
			return fmt.Errorf("matrix bone has %d values, expected 16", len(m))
		}
		*b = Bone{Kind: BoneMatrix}
		copy(b.Values[:], m)
		return nil
	}
	if dq, ok := v["DualQuat"]; ok {
		if len(dq) != 8 {
			return fmt.Errorf("dual quaternion bone has %d values, expected 8", len(dq))
		}
		*b = Bone{Kind: BoneDualQuat}
		copy(b.Values[:], dq)
		return nil
	}
	return fmt.Errorf("unknown bone variant")
}
