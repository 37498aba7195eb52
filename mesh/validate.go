package mesh

import (
	"fmt"
)

type ValidationError struct {
	Entity    string
	Invariant string
	Detail    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("mesh %q: %s: %s", e.Entity, e.Invariant, e.Detail)
}

func (m *Mesh) invalid(invariant, format string, args ...interface{}) error {
	return &ValidationError{Entity: m.Name, Invariant: invariant, Detail: fmt.Sprintf(format, args...)}
}

func (m *Mesh) checkIndices(invariant string, indices []uint32, count int) error {
	if indices == nil {
		return nil
	}
	if len(indices) != len(m.VertexPositionIndices) {
		return m.invalid(invariant, "%d indices for %d face corners", len(indices), len(m.VertexPositionIndices))
	}
	for c, i := range indices {
		if int(i) >= count {
			return m.invalid(invariant, "corner %d refers to %d of %d", c, i, count)
		}
	}
	return nil
}

// Validate checks the invariants the normalization passes rely on.
func (m *Mesh) Validate() error {
	if len(m.VertexPositions)%3 != 0 {
		return m.invalid("vertex position count", "%d floats is not a multiple of 3", len(m.VertexPositions))
	}
	if len(m.VertexNormals)%3 != 0 {
		return m.invalid("vertex normal count", "%d floats is not a multiple of 3", len(m.VertexNormals))
	}
	if len(m.VertexUVs)%2 != 0 {
		return m.invalid("vertex uv count", "%d floats is not a multiple of 2", len(m.VertexUVs))
	}
	vertices := m.VertexCount()

	corners := 0
	for f, n := range m.NumVerticesInEachFace {
		if n < 3 {
			return m.invalid("face size", "face %d has %d corners", f, n)
		}
		corners += int(n)
	}
	if corners != len(m.VertexPositionIndices) {
		return m.invalid("face corner count", "faces have %d corners but there are %d position indices", corners, len(m.VertexPositionIndices))
	}
	if err := m.checkIndices("vertex position indices", m.VertexPositionIndices, vertices); err != nil {
		return err
	}

	if m.VertexNormalIndices != nil {
		if err := m.checkIndices("vertex normal indices", m.VertexNormalIndices, len(m.VertexNormals)/3); err != nil {
			return err
		}
	} else if len(m.VertexNormals) > 0 && len(m.VertexNormals) != len(m.VertexPositions) {
		return m.invalid("vertex normal count", "%d normals for %d vertices", len(m.VertexNormals)/3, vertices)
	}
	if m.VertexUVIndices != nil {
		if err := m.checkIndices("vertex uv indices", m.VertexUVIndices, len(m.VertexUVs)/2); err != nil {
			return err
		}
	} else if len(m.VertexUVs) > 0 && len(m.VertexUVs)/2 != vertices {
		return m.invalid("vertex uv count", "%d uvs for %d vertices", len(m.VertexUVs)/2, vertices)
	}

	b := m.BoneInfluencesPerVertex
	if b == nil {
		if len(m.VertexGroupIndices) > 0 || len(m.VertexGroupWeights) > 0 {
			return m.invalid("bone influences per vertex", "vertex groups without influence counts")
		}
		return nil
	}
	if len(m.VertexGroupIndices) != len(m.VertexGroupWeights) {
		return m.invalid("vertex group weight count", "%d group indices but %d weights", len(m.VertexGroupIndices), len(m.VertexGroupWeights))
	}
	if b.Layout == NonUniform && len(b.Counts) != vertices {
		return m.invalid("bone influences per vertex", "%d influence counts for %d vertices", len(b.Counts), vertices)
	}
	if total := b.Total(vertices); total != len(m.VertexGroupIndices) {
		return m.invalid("vertex group count", "influence counts add up to %d but there are %d groups", total, len(m.VertexGroupIndices))
	}
	return nil
}
