package mesh

import (
	"github.com/binzume/blendconv/geom"
)

// Triangulate splits every face with more than three corners into triangles.
// It works before or after CombineVertexIndices since all index streams are split alike.
func (m *Mesh) Triangulate() {
	if m.IsTriangulated() {
		return
	}

	streams := [][]uint32{m.VertexPositionIndices}
	if m.VertexNormalIndices != nil {
		streams = append(streams, m.VertexNormalIndices)
	}
	if m.VertexUVIndices != nil {
		streams = append(streams, m.VertexUVIndices)
	}
	out := make([][]uint32, len(streams))

	var faces []uint8
	offset := 0
	for _, n := range m.NumVerticesInEachFace {
		corners := int(n)
		var tris [][3]int
		if corners == 3 {
			tris = [][3]int{{0, 1, 2}}
		} else {
			poly := make([]*geom.Vector3, corners)
			for i := range poly {
				p := m.VertexPositionIndices[offset+i]
				poly[i] = geom.NewVector3FromSlice(m.VertexPositions[p*3:])
			}
			tris = geom.Triangulate(poly)
		}
		for _, tri := range tris {
			for s, stream := range streams {
				out[s] = append(out[s], stream[offset+tri[0]], stream[offset+tri[1]], stream[offset+tri[2]])
			}
			faces = append(faces, 3)
		}
		offset += corners
	}

	m.VertexPositionIndices = out[0]
	s := 1
	if m.VertexNormalIndices != nil {
		m.VertexNormalIndices = out[s]
		s++
	}
	if m.VertexUVIndices != nil {
		m.VertexUVIndices = out[s]
	}
	m.NumVerticesInEachFace = faces
}
