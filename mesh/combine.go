package mesh

// noIndex marks an attribute that is absent or indexed by the position.
const noIndex = ^uint32(0)

type cornerKey struct {
	position uint32
	normal   uint32
	uv       uint32
}

// CombineVertexIndices turns the per-attribute index streams into one index shared by
// every attribute. Each distinct (position, normal, uv) corner becomes one output vertex,
// in order of first appearance. Bone influences follow the position.
func (m *Mesh) CombineVertexIndices() {
	if m.IsSingleIndexed() {
		return
	}

	var influenceOffsets []int
	if b := m.BoneInfluencesPerVertex; b != nil && b.Layout == NonUniform {
		influenceOffsets = make([]int, len(b.Counts)+1)
		for i, c := range b.Counts {
			influenceOffsets[i+1] = influenceOffsets[i] + int(c)
		}
	}

	hasNormals := len(m.VertexNormals) > 0
	hasUVs := len(m.VertexUVs) > 0

	corners := len(m.VertexPositionIndices)
	seen := make(map[cornerKey]uint32, corners)
	indices := make([]uint32, 0, corners)
	positions := make([]float32, 0, corners*3)
	var normals, uvs, groupWeights []float32
	var groupIndices, influenceCounts []uint8

	for c, pos := range m.VertexPositionIndices {
		key := cornerKey{position: pos, normal: noIndex, uv: noIndex}
		if m.VertexNormalIndices != nil {
			key.normal = m.VertexNormalIndices[c]
		}
		if m.VertexUVIndices != nil {
			key.uv = m.VertexUVIndices[c]
		}
		if index, ok := seen[key]; ok {
			indices = append(indices, index)
			continue
		}
		index := uint32(len(positions) / 3)
		seen[key] = index
		indices = append(indices, index)

		positions = append(positions, m.VertexPositions[pos*3:pos*3+3]...)
		if hasNormals {
			n := pos
			if key.normal != noIndex {
				n = key.normal
			}
			normals = append(normals, m.VertexNormals[n*3:n*3+3]...)
		}
		if hasUVs {
			uv := pos
			if key.uv != noIndex {
				uv = key.uv
			}
			uvs = append(uvs, m.VertexUVs[uv*2:uv*2+2]...)
		}
		if b := m.BoneInfluencesPerVertex; b != nil {
			var start, end int
			switch b.Layout {
			case NonUniform:
				start, end = influenceOffsets[pos], influenceOffsets[pos+1]
				influenceCounts = append(influenceCounts, b.Counts[pos])
			case Uniform:
				start = int(pos) * int(b.Count)
				end = start + int(b.Count)
			}
			groupIndices = append(groupIndices, m.VertexGroupIndices[start:end]...)
			groupWeights = append(groupWeights, m.VertexGroupWeights[start:end]...)
		}
	}

	m.VertexPositionIndices = indices
	m.VertexPositions = positions
	m.VertexNormals = normals
	m.VertexNormalIndices = nil
	m.VertexUVs = uvs
	m.VertexUVIndices = nil
	if b := m.BoneInfluencesPerVertex; b != nil {
		m.VertexGroupIndices = groupIndices
		m.VertexGroupWeights = groupWeights
		if b.Layout == NonUniform {
			b.Counts = influenceCounts
		}
	}
}
