// Package armature holds skeletons exported from Blender and normalizes their
// actions into inverse-bind-pose relative, column-major dual quaternions.
package armature

import (
	"encoding/json"
	"io"
	"sort"

	"github.com/tiendc/go-deepcopy"
)

// Armature is a named skeleton with its animations.
type Armature struct {
	Name string `json:"-"`

	// JointIndex maps a joint name to its index in InverseBindPoses and in every Keyframe.
	JointIndex       map[string]uint8      `json:"joint_index"`
	InverseBindPoses []Bone                `json:"inverse_bind_poses"`
	Actions          map[string][]Keyframe `json:"actions"`
}

// Keyframe is the pose of every joint at one point in time.
type Keyframe struct {
	FrameTimeSecs float32 `json:"frame_time_secs"`
	Bones         []Bone  `json:"bones"`
}

func Parse(r io.Reader, name string) (*Armature, error) {
	a := &Armature{Name: name}
	if err := json.NewDecoder(r).Decode(a); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Armature) JointCount() int {
	return len(a.JointIndex)
}

// JointNames returns joint names ordered by joint index.
func (a *Armature) JointNames() []string {
	names := make([]string, len(a.JointIndex))
	for name, i := range a.JointIndex {
		if int(i) < len(names) {
			names[i] = name
		}
	}
	return names
}

func (a *Armature) ActionNames() []string {
	var names []string
	for name := range a.Actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (a *Armature) Clone() *Armature {
	dst := &Armature{}
	if err := deepcopy.Copy(dst, a); err != nil {
		panic(err)
	}
	return dst
}

func (a *Armature) eachPoseBone(f func(joint int, bone *Bone)) {
	for _, name := range a.ActionNames() {
		keyframes := a.Actions[name]
		for k := range keyframes {
			bones := keyframes[k].Bones
			for i := range bones {
				f(i, &bones[i])
			}
		}
	}
}

// ApplyInverseBindPoses multiplies every pose bone by its joint's inverse bind pose,
// so that poses become offsets from the rest pose.
func (a *Armature) ApplyInverseBindPoses() {
	a.eachPoseBone(func(joint int, bone *Bone) {
		if bone.Kind != BoneMatrix {
			panic("armature: inverse bind pose applied to a dual quaternion pose")
		}
		bone.Multiply(&a.InverseBindPoses[joint])
	})
}

// TransposeActions converts every pose bone from Blender's row-major layout to column-major.
func (a *Armature) TransposeActions() {
	a.eachPoseBone(func(_ int, bone *Bone) {
		bone.Transpose()
	})
}

// ActionsToDualQuats replaces every pose matrix with its dual quaternion.
func (a *Armature) ActionsToDualQuats() {
	a.eachPoseBone(func(_ int, bone *Bone) {
		*bone = MatrixToDualQuat(bone)
	})
}

// PoseKind reports the variant of the pose bones.
// ok is false when there are no pose bones or the variants are mixed.
func (a *Armature) PoseKind() (kind BoneKind, ok bool) {
	first := true
	ok = true
	a.eachPoseBone(func(_ int, bone *Bone) {
		if first {
			kind, first = bone.Kind, false
		} else if bone.Kind != kind {
			ok = false
		}
	})
	return kind, ok && !first
}
