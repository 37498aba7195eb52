package geom

import (
	"testing"
)

func TestVector3(t *testing.T) {
	zero := NewVector3(0, 0, 0)
	if zero.Len() != 0 || zero.Dot(zero) != 0 {
		t.Error("len != 0")
	}

	if *zero.Normalize() != *NewVector3(1, 0, 0) {
		t.Error("Normalize shoud returns unit vector.", zero.Normalize())
	}

	if *NewVector3(1, 0, 0).Add(NewVector3(0, 1, 0)) != *NewVector3(1, 1, 0) {
		t.Error("Vector.Add()")
	}

	a, b := NewVector3(1, 5, -2), NewVector3(3, -1, 0)
	if *a.Min(b) != *NewVector3(1, -1, -2) || *a.Max(b) != *NewVector3(3, 5, 0) {
		t.Error("Min/Max: ", a.Min(b), a.Max(b))
	}
}
