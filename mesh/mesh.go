// Package mesh converts Blender's multi-indexed mesh export into a single-indexed,
// triangulated, y-up mesh with a fixed number of bone influences per vertex.
package mesh

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/binzume/blendconv/geom"
	"github.com/tiendc/go-deepcopy"
)

// Mesh is a mesh as exported from Blender.
//
// Each face corner has one entry in VertexPositionIndices and, when present,
// VertexNormalIndices and VertexUVIndices. An attribute with nil indices is
// indexed by the position index, which is the state after CombineVertexIndices.
// Vertex groups (bone influences) always follow the position.
type Mesh struct {
	Name string `json:"-"`

	VertexPositions       []float32 `json:"vertex_positions"`
	VertexPositionIndices []uint32  `json:"vertex_position_indices"`
	NumVerticesInEachFace U8Array   `json:"num_vertices_in_each_face"`

	VertexNormals       []float32 `json:"vertex_normals,omitempty"`
	VertexNormalIndices []uint32  `json:"vertex_normal_indices,omitempty"`

	VertexUVs       []float32 `json:"vertex_uvs,omitempty"`
	VertexUVIndices []uint32  `json:"vertex_uv_indices,omitempty"`

	ArmatureName            string                   `json:"armature_name,omitempty"`
	VertexGroupIndices      U8Array                  `json:"vertex_group_indices,omitempty"`
	VertexGroupWeights      []float32                `json:"vertex_group_weights,omitempty"`
	BoneInfluencesPerVertex *BoneInfluencesPerVertex `json:"bone_influences_per_vertex,omitempty"`

	Materials   map[string]*PrincipledBSDF `json:"materials,omitempty"`
	BoundingBox *BoundingBox               `json:"bounding_box,omitempty"`
}

// U8Array is encoded as a JSON array of numbers rather than base64.
type U8Array []uint8

func (a U8Array) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("null"), nil
	}
	v := make([]int, len(a))
	for i, n := range a {
		v[i] = int(n)
	}
	return json.Marshal(v)
}

func (a *U8Array) UnmarshalJSON(data []byte) error {
	var v []int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v == nil {
		*a = nil
		return nil
	}
	u, err := toU8(v)
	if err != nil {
		return err
	}
	*a = u
	return nil
}

func toU8(v []int) ([]uint8, error) {
	u := make([]uint8, len(v))
	for i, n := range v {
		if n < 0 || n > 255 {
			return nil, fmt.Errorf("value %d at %d is out of u8 range", n, i)
		}
		u[i] = uint8(n)
	}
	return u, nil
}

type BoundingBox struct {
	Min [3]float32 `json:"min_corner"`
	Max [3]float32 `json:"max_corner"`
}

func Parse(r io.Reader, name string) (*Mesh, error) {
	m := &Mesh{Name: name}
	if err := json.NewDecoder(r).Decode(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Mesh) VertexCount() int {
	return len(m.VertexPositions) / 3
}

func (m *Mesh) FaceCount() int {
	return len(m.NumVerticesInEachFace)
}

// IsSingleIndexed reports whether VertexPositionIndices addresses every attribute.
func (m *Mesh) IsSingleIndexed() bool {
	return m.VertexNormalIndices == nil && m.VertexUVIndices == nil
}

func (m *Mesh) IsTriangulated() bool {
	for _, n := range m.NumVerticesInEachFace {
		if n != 3 {
			return false
		}
	}
	return true
}

func (m *Mesh) HasBoneInfluences() bool {
	return m.BoneInfluencesPerVertex != nil
}

// YUp converts positions and normals from Blender's z-up to y-up.
func (m *Mesh) YUp() {
	yUp(m.VertexPositions)
	yUp(m.VertexNormals)
	if m.BoundingBox != nil {
		m.ComputeBoundingBox()
	}
}

func yUp(v []float32) {
	for i := 0; i+2 < len(v); i += 3 {
		v[i+1], v[i+2] = v[i+2], -v[i+1]
	}
}

func (m *Mesh) ComputeBoundingBox() {
	if len(m.VertexPositions) < 3 {
		m.BoundingBox = &BoundingBox{}
		return
	}
	min := geom.NewVector3FromSlice(m.VertexPositions)
	max := geom.NewVector3FromSlice(m.VertexPositions)
	for i := 3; i+2 < len(m.VertexPositions); i += 3 {
		v := geom.NewVector3FromSlice(m.VertexPositions[i:])
		min, max = min.Min(v), max.Max(v)
	}
	m.BoundingBox = &BoundingBox{}
	min.ToArray(m.BoundingBox.Min[:])
	max.ToArray(m.BoundingBox.Max[:])
}

func (m *Mesh) Clone() *Mesh {
	dst := &Mesh{}
	if err := deepcopy.Copy(dst, m); err != nil {
		panic(err)
	}
	return dst
}
