package mesh

import (
	"encoding/json"
	"fmt"
	"sort"
)

type InfluenceLayout uint8

const (
	// NonUniform: Counts holds the number of influences of each vertex.
	NonUniform InfluenceLayout = iota
	// Uniform: every vertex has Count influences.
	Uniform
)

// BoneInfluencesPerVertex describes how VertexGroupIndices and VertexGroupWeights are split
// between vertices. Blender exports it NonUniform; SetBoneInfluencesPerVertex makes it Uniform.
type BoneInfluencesPerVertex struct {
	Layout InfluenceLayout
	Counts []uint8
	Count  uint8
}

func NewNonUniformInfluences(counts []uint8) *BoneInfluencesPerVertex {
	return &BoneInfluencesPerVertex{Layout: NonUniform, Counts: counts}
}

func NewUniformInfluences(count uint8) *BoneInfluencesPerVertex {
	return &BoneInfluencesPerVertex{Layout: Uniform, Count: count}
}

// Total returns the number of influences over vertexCount vertices.
func (b *BoneInfluencesPerVertex) Total(vertexCount int) int {
	switch b.Layout {
	case NonUniform:
		total := 0
		for _, c := range b.Counts {
			total += int(c)
		}
		return total
	case Uniform:
		return vertexCount * int(b.Count)
	}
	panic(fmt.Sprintf("mesh: unknown influence layout %d", b.Layout))
}

func (b BoneInfluencesPerVertex) MarshalJSON() ([]byte, error) {
	switch b.Layout {
	case NonUniform:
		counts := make([]int, len(b.Counts))
		for i, c := range b.Counts {
			counts[i] = int(c)
		}
		return json.Marshal(map[string][]int{"NonUniform": counts})
	case Uniform:
		return json.Marshal(map[string]uint8{"Uniform": b.Count})
	}
	return nil, fmt.Errorf("unknown influence layout %d", b.Layout)
}

func (b *BoneInfluencesPerVertex) UnmarshalJSON(data []byte) error {
	var v map[string]json.RawMessage
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if raw, ok := v["NonUniform"]; ok {
		var ints []int
		if err := json.Unmarshal(raw, &ints); err != nil {
			return err
		}
		counts, err := toU8(ints)
		if err != nil {
			return fmt.Errorf("NonUniform: %w", err)
		}
		*b = BoneInfluencesPerVertex{Layout: NonUniform, Counts: counts}
		return nil
	}
	if raw, ok := v["Uniform"]; ok {
		var count uint8
		if err := json.Unmarshal(raw, &count); err != nil {
			return err
		}
		*b = BoneInfluencesPerVertex{Layout: Uniform, Count: count}
		return nil
	}
	return fmt.Errorf("bone influences must be NonUniform or Uniform")
}

type influence struct {
	joint  uint8
	weight float32
}

// SetBoneInfluencesPerVertex gives every vertex exactly count influences.
// Influences are ordered by descending weight. Missing ones are padded with joint 0 and
// weight 0, extra ones with the lowest weights are dropped. Kept weights are not renormalized.
func (m *Mesh) SetBoneInfluencesPerVertex(count uint8) {
	b := m.BoneInfluencesPerVertex
	if b == nil {
		return
	}
	vertices := m.VertexCount()
	switch b.Layout {
	case NonUniform:
		vertices = len(b.Counts)
	case Uniform:
		if b.Count > 0 {
			vertices = len(m.VertexGroupIndices) / int(b.Count)
		}
	}

	indices := make([]uint8, 0, vertices*int(count))
	weights := make([]float32, 0, vertices*int(count))
	buf := make([]influence, 0, 8)
	offset := 0
	for v := 0; v < vertices; v++ {
		n := int(b.Count)
		if b.Layout == NonUniform {
			n = int(b.Counts[v])
		}
		buf = buf[:0]
		for i := offset; i < offset+n; i++ {
			buf = append(buf, influence{joint: m.VertexGroupIndices[i], weight: m.VertexGroupWeights[i]})
		}
		offset += n

		sort.SliceStable(buf, func(i, j int) bool { return buf[i].weight > buf[j].weight })
		for i := 0; i < int(count); i++ {
			if i < len(buf) {
				indices = append(indices, buf[i].joint)
				weights = append(weights, buf[i].weight)
			} else {
				indices = append(indices, 0)
				weights = append(weights, 0)
			}
		}
	}

	m.VertexGroupIndices = indices
	m.VertexGroupWeights = weights
	m.BoneInfluencesPerVertex = NewUniformInfluences(count)
}
