package armature

import (
	"fmt"
	"log"
)

type ValidationError struct {
	Entity    string
	Invariant string
	Detail    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("armature %q: %s: %s", e.Entity, e.Invariant, e.Detail)
}

func (a *Armature) invalid(invariant, format string, args ...interface{}) error {
	return &ValidationError{Entity: a.Name, Invariant: invariant, Detail: fmt.Sprintf(format, args...)}
}

// Validate checks the structural invariants that the normalization passes rely on.
func (a *Armature) Validate() error {
	joints := len(a.JointIndex)
	if len(a.InverseBindPoses) != joints {
		return a.invalid("inverse bind pose count", "%d inverse bind poses for %d joints", len(a.InverseBindPoses), joints)
	}
	used := make([]string, joints)
	for name, i := range a.JointIndex {
		if int(i) >= joints {
			return a.invalid("joint index", "joint %q has index %d, expected < %d", name, i, joints)
		}
		if used[i] != "" {
			return a.invalid("joint index", "joints %q and %q share index %d", used[i], name, i)
		}
		used[i] = name
	}
	for i := range a.InverseBindPoses {
		if a.InverseBindPoses[i].Kind != BoneMatrix {
			return a.invalid("inverse bind pose kind", "inverse bind pose %d is %v", i, a.InverseBindPoses[i].Kind)
		}
	}

	var kind BoneKind
	first := true
	for _, name := range a.ActionNames() {
		keyframes := a.Actions[name]
		for k, keyframe := range keyframes {
			if len(keyframe.Bones) != joints {
				return a.invalid("keyframe bone count", "action %q keyframe %d has %d bones for %d joints", name, k, len(keyframe.Bones), joints)
			}
			for j := range keyframe.Bones {
				if first {
					kind, first = keyframe.Bones[j].Kind, false
				} else if keyframe.Bones[j].Kind != kind {
					return a.invalid("bone kind", "action %q keyframe %d mixes %v and %v bones", name, k, kind, keyframe.Bones[j].Kind)
				}
			}
			if k > 0 && keyframe.FrameTimeSecs < keyframes[k-1].FrameTimeSecs {
				log.Printf("armature %q: action %q keyframe %d goes back in time", a.Name, name, k)
			}
		}
	}
	return nil
}
