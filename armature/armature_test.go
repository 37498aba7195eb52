package armature

import (
	"math"
	"reflect"
	"strings"
	"testing"
)

var identity = [16]float32{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}

func newTestArmature(pose [16]float32, inverseBindPose [16]float32) *Armature {
	return &Armature{
		Name:             "Bird",
		JointIndex:       map[string]uint8{"Wing": 0},
		InverseBindPoses: []Bone{NewMatrixBone(inverseBindPose)},
		Actions: map[string][]Keyframe{
			"Fly": {{FrameTimeSecs: 1.0, Bones: []Bone{NewMatrixBone(pose)}}},
		},
	}
}

func TestApplyInverseBindPoses(t *testing.T) {
	a := newTestArmature(
		[16]float32{1, 6, 2, 1, 7, 1, 2, 5, 0, 4, 1, 0, 0, 0, 0, 1},
		[16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 5, 1},
	)
	a.ApplyInverseBindPoses()

	expected := NewMatrixBone([16]float32{1, 6, 7, 1, 7, 1, 27, 5, 0, 4, 1, 0, 0, 0, 5, 1})
	if got := a.Actions["Fly"][0].Bones[0]; got != expected {
		t.Error("bind pose: ", got.Slice())
	}
}

func TestApplyIdentityInverseBindPose(t *testing.T) {
	pose := [16]float32{1, 6, 2, 1, 7, 1, 2, 5, 0, 4, 1, 0, 3, 2, 1, 1}
	a := newTestArmature(pose, identity)
	a.ApplyInverseBindPoses()
	if got := a.Actions["Fly"][0].Bones[0]; got != NewMatrixBone(pose) {
		t.Error("identity changed pose: ", got.Slice())
	}
}

func TestTransposeActions(t *testing.T) {
	a := newTestArmature([16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 5, 1}, identity)
	a.TransposeActions()

	expected := NewMatrixBone([16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 5, 0, 0, 0, 1})
	if got := a.Actions["Fly"][0].Bones[0]; got != expected {
		t.Error("transpose: ", got.Slice())
	}
	if !reflect.DeepEqual(a.InverseBindPoses[0], NewMatrixBone(identity)) {
		t.Error("inverse bind pose must not be touched")
	}
}

func TestActionsToDualQuats(t *testing.T) {
	a := newTestArmature(identity, identity)
	a.ActionsToDualQuats()

	bone := a.Actions["Fly"][0].Bones[0]
	if bone.Kind != BoneDualQuat {
		t.Fatal("kind: ", bone.Kind)
	}
	expected := []float32{1, 0, 0, 0, 0, 0, 0, 0}
	if !reflect.DeepEqual(bone.Slice(), expected) {
		t.Error("identity dual quat: ", bone.Slice())
	}
}

func TestMatrixToDualQuat(t *testing.T) {
	const eps = 0.00001
	// 90 degrees around Z, then translate (1, 2, 3). column-major.
	m := NewMatrixBone([16]float32{
		0, 1, 0, 0,
		-1, 0, 0, 0,
		0, 0, 1, 0,
		1, 2, 3, 1,
	})
	dqb := MatrixToDualQuat(&m)
	dq := dqb.Slice()

	s := float32(math.Sqrt(0.5))
	real := []float32{s, 0, 0, s}
	for i, v := range real {
		if math.Abs(float64(dq[i]-v)) > eps {
			t.Fatal("rotation: ", dq[:4])
		}
	}

	// translation = 2 * dual * conjugate(real)
	rw, rx, ry, rz := dq[0], -dq[1], -dq[2], -dq[3]
	dw, dx, dy, dz := dq[4], dq[5], dq[6], dq[7]
	tw := 2 * (dw*rw - dx*rx - dy*ry - dz*rz)
	tx := 2 * (dw*rx + dx*rw + dy*rz - dz*ry)
	ty := 2 * (dw*ry - dx*rz + dy*rw + dz*rx)
	tz := 2 * (dw*rz + dx*ry - dy*rx + dz*rw)
	for i, v := range []float32{tw - 0, tx - 1, ty - 2, tz - 3} {
		if math.Abs(float64(v)) > eps {
			t.Error("translation component ", i, ": ", tw, tx, ty, tz)
		}
	}
}

func TestPassOrderingViolations(t *testing.T) {
	expectPanic := func(name string, f func()) {
		defer func() {
			if recover() == nil {
				t.Error(name, ": expected panic")
			}
		}()
		f()
	}

	a := newTestArmature(identity, identity)
	a.ActionsToDualQuats()
	expectPanic("transpose", a.TransposeActions)
	expectPanic("bind pose", a.ApplyInverseBindPoses)
	expectPanic("dual quat", a.ActionsToDualQuats)
}

func TestBoneMultiplyIgnoresDualQuat(t *testing.T) {
	m := NewMatrixBone(identity)
	dq := NewDualQuatBone([8]float32{1, 0, 0, 0, 0, 1, 0, 0})
	m.Multiply(&dq)
	if m != NewMatrixBone(identity) {
		t.Error("matrix changed: ", m.Slice())
	}
	orig := dq
	dq.Multiply(&m)
	if dq != orig {
		t.Error("dual quat changed: ", dq.Slice())
	}
}

func TestParse(t *testing.T) {
	src := `{
		"joint_index": {"Root": 0, "Tip": 1},
		"inverse_bind_poses": [
			{"Matrix": [1,0,0,0, 0,1,0,0, 0,0,1,0, 0,0,0,1]},
			{"Matrix": [1,0,0,0, 0,1,0,0, 0,0,1,0, 0,0,0,1]}
		],
		"actions": {
			"Wave": [
				{"frame_time_secs": 0.0, "bones": [
					{"Matrix": [1,0,0,0, 0,1,0,0, 0,0,1,0, 0,0,0,1]},
					{"Matrix": [1,0,0,0, 0,1,0,0, 0,0,1,0, 0,0,0,1]}
				]}
			]
		}
	}`
	a, err := Parse(strings.NewReader(src), "Hand")
	if err != nil {
		t.Fatal(err)
	}
	if a.Name != "Hand" || a.JointCount() != 2 {
		t.Error("parse: ", a.Name, a.JointIndex)
	}
	if names := a.JointNames(); names[0] != "Root" || names[1] != "Tip" {
		t.Error("joint names: ", names)
	}
	if err := a.Validate(); err != nil {
		t.Error(err)
	}

	if _, err := Parse(strings.NewReader(`{"inverse_bind_poses": [{"Matrix": [1, 2]}]}`), "Bad"); err == nil {
		t.Error("short matrix should fail")
	}
}

func TestBoneJSON(t *testing.T) {
	b := NewDualQuatBone([8]float32{1, 0, 0, 0, 0, 0.5, 0, 0})
	data, err := b.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"DualQuat":[1,0,0,0,0,0.5,0,0]}` {
		t.Error("json: ", string(data))
	}
	var b2 Bone
	if err := b2.UnmarshalJSON(data); err != nil || b2 != b {
		t.Error("unmarshal: ", err, b2)
	}
}

func TestValidate(t *testing.T) {
	a := newTestArmature(identity, identity)
	a.InverseBindPoses = append(a.InverseBindPoses, NewMatrixBone(identity))
	err := a.Validate()
	if verr, ok := err.(*ValidationError); !ok || verr.Invariant != "inverse bind pose count" || verr.Entity != "Bird" {
		t.Error("inverse bind pose count: ", err)
	}

	a = newTestArmature(identity, identity)
	a.Actions["Fly"] = append(a.Actions["Fly"], Keyframe{FrameTimeSecs: 2})
	if verr, ok := a.Validate().(*ValidationError); !ok || verr.Invariant != "keyframe bone count" {
		t.Error("keyframe bone count: ", verr)
	}

	a = newTestArmature(identity, identity)
	a.JointIndex["Other"] = 0
	a.InverseBindPoses = append(a.InverseBindPoses, NewMatrixBone(identity))
	if verr, ok := a.Validate().(*ValidationError); !ok || verr.Invariant != "joint index" {
		t.Error("joint index: ", verr)
	}
}

func TestClone(t *testing.T) {
	a := newTestArmature(identity, identity)
	c := a.Clone()
	c.TransposeActions()
	c.ActionsToDualQuats()
	if a.Actions["Fly"][0].Bones[0].Kind != BoneMatrix {
		t.Error("clone shares keyframes with source")
	}
	if !reflect.DeepEqual(c.JointIndex, a.JointIndex) {
		t.Error("joint index: ", c.JointIndex)
	}
}

func TestDualQuatToMatrix(t *testing.T) {
	const eps = 0.00001
	m := NewMatrixBone([16]float32{
		0, 1, 0, 0,
		-1, 0, 0, 0,
		0, 0, 1, 0,
		1, 2, 3, 1,
	})
	dq := MatrixToDualQuat(&m)
	back := DualQuatToMatrix(&dq)
	for i := range back {
		if math.Abs(float64(back[i]-m.Values[i])) > eps {
			t.Fatal("round trip: ", back)
		}
	}
	if DualQuatToMatrix(&m) != m.Values {
		t.Error("matrix bone must be returned unchanged")
	}
}
