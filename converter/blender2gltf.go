package converter

import (
	"log"
	"sort"

	"github.com/binzume/blendconv/armature"
	"github.com/binzume/blendconv/geom"
	"github.com/binzume/blendconv/mesh"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

const unlitMaterialExt = "KHR_materials_unlit"

// JointsPerVertex is the number of influences written to JOINTS_0 / WEIGHTS_0.
const JointsPerVertex = 4

type BlenderToGLTFOption struct {
	// YUp must match the pipeline option the meshes were normalized with.
	// The pipeline leaves armatures z-up; the converter rotates them.
	YUp              bool
	ForceUnlit       bool
	ExportAnimations bool

	TextureDir             string
	TextureReCompress      bool
	TextureBytesThreshold  int64 // 0: unlimited
	TextureResolutionLimit int   // 0: unlimited
	TextureScale           float32
}

func DefaultBlenderToGLTFOption() *BlenderToGLTFOption {
	return &BlenderToGLTFOption{YUp: true, ExportAnimations: true, TextureScale: 1.0}
}

type blenderToGltf struct {
	*BlenderToGLTFOption
	*gltf.Document
	textures  *textureCache
	materials map[string]uint32
	skins     map[string]uint32
	basis     *geom.Matrix4
}

func NewBlenderToGLTFConverter(options *BlenderToGLTFOption) *blenderToGltf {
	if options == nil {
		options = DefaultBlenderToGLTFOption()
	}
	if options.TextureScale == 0 {
		options.TextureScale = 1.0
	}
	basis := geom.NewMatrix4()
	if options.YUp {
		basis = yUpBasis()
	}
	return &blenderToGltf{
		BlenderToGLTFOption: options,
		Document:            gltf.NewDocument(),
		textures:            newTextureCache(options.TextureDir),
		materials:           map[string]uint32{},
		skins:               map[string]uint32{},
		basis:               basis,
	}
}

// yUpBasis maps (x, y, z) to (x, z, -y).
func yUpBasis() *geom.Matrix4 {
	return &geom.Matrix4{
		1, 0, 0, 0,
		0, 0, -1, 0,
		0, 1, 0, 0,
		0, 0, 0, 1,
	}
}

func toColumns(m *geom.Matrix4) [4][4]float32 {
	return [4][4]float32{
		{m[0], m[1], m[2], m[3]},
		{m[4], m[5], m[6], m[7]},
		{m[8], m[9], m[10], m[11]},
		{m[12], m[13], m[14], m[15]},
	}
}

// decompose splits a rigid column-major transform into glTF translation and rotation (x, y, z, w).
func decompose(m *geom.Matrix4) ([3]float32, [4]float32) {
	q := mgl32.Mat4ToQuat(mgl32.Mat4(*m)).Normalize()
	return [3]float32{m[12], m[13], m[14]}, [4]float32{q.V[0], q.V[1], q.V[2], q.W}
}

func (c *blenderToGltf) addMatrices(mat [][4][4]float32) uint32 {
	a := make([][4]float32, len(mat)*4)
	for i, m := range mat {
		a[i*4+0] = m[0]
		a[i*4+1] = m[1]
		a[i*4+2] = m[2]
		a[i*4+3] = m[3]
	}
	acc := modeler.WriteTangent(c.Document, a)
	c.Accessors[acc].Type = gltf.AccessorMat4
	c.Accessors[acc].Count /= 4
	c.BufferViews[*c.Accessors[acc].BufferView].ByteStride *= 4
	return acc
}

// bindPoses returns the column-major inverse bind matrices and bind matrices of every joint,
// both expressed in the output basis.
func (c *blenderToGltf) bindPoses(name string, a *armature.Armature) ([]*geom.Matrix4, []*geom.Matrix4, error) {
	invBasis := c.basis.Transposed()
	inverses := make([]*geom.Matrix4, len(a.InverseBindPoses))
	binds := make([]*geom.Matrix4, len(a.InverseBindPoses))
	for i := range a.InverseBindPoses {
		b := &a.InverseBindPoses[i]
		if b.Kind != armature.BoneMatrix {
			return nil, nil, errors.Errorf("armature %q: inverse bind pose %d is not a matrix", name, i)
		}
		m := geom.Matrix4(b.Values)
		inverses[i] = m.Transposed().Mul(invBasis)
		binds[i] = inverses[i].Inverse()
	}
	return inverses, binds, nil
}

func (c *blenderToGltf) addArmature(name string, a *armature.Armature) error {
	if err := a.Validate(); err != nil {
		return err
	}
	inverses, binds, err := c.bindPoses(name, a)
	if err != nil {
		return err
	}

	jointNames := a.JointNames()
	joints := make([]uint32, len(jointNames))
	invmats := make([][4][4]float32, len(jointNames))
	for i, jointName := range jointNames {
		t, r := decompose(binds[i])
		joints[i] = uint32(len(c.Nodes))
		invmats[i] = toColumns(inverses[i])
		c.Nodes = append(c.Nodes, &gltf.Node{Name: jointName, Translation: t, Rotation: r})
		c.Scenes[0].Nodes = append(c.Scenes[0].Nodes, joints[i])
	}

	c.Skins = append(c.Skins, &gltf.Skin{
		Name:                name,
		Joints:              joints,
		InverseBindMatrices: gltf.Index(c.addMatrices(invmats)),
	})
	c.skins[name] = uint32(len(c.Skins) - 1)

	if c.ExportAnimations {
		for _, action := range a.ActionNames() {
			c.addAction(a, action, joints, binds)
		}
	}
	return nil
}

// addAction writes one glTF animation. Poses are skinning transforms relative to the bind pose,
// so the animated joint transform is basis * pose * basis^-1 * bind.
func (c *blenderToGltf) addAction(a *armature.Armature, name string, joints []uint32, binds []*geom.Matrix4) {
	keyframes := a.Actions[name]
	if len(keyframes) == 0 {
		return
	}
	invBasis := c.basis.Transposed()
	var keys []float32
	for _, k := range keyframes {
		keys = append(keys, k.FrameTimeSecs)
	}
	keysAcc := modeler.WriteAccessor(c.Document, gltf.TargetArrayBuffer, keys)

	anim := &gltf.Animation{Name: name}
	for j, node := range joints {
		translations := make([][3]float32, len(keyframes))
		rotations := make([][4]float32, len(keyframes))
		for k := range keyframes {
			pose := geom.Matrix4(armature.DualQuatToMatrix(&keyframes[k].Bones[j]))
			translations[k], rotations[k] = decompose(c.basis.Mul(&pose).Mul(invBasis).Mul(binds[j]))
		}

		anim.Samplers = append(anim.Samplers, &gltf.AnimationSampler{
			Input:         gltf.Index(keysAcc),
			Output:        gltf.Index(modeler.WritePosition(c.Document, translations)),
			Interpolation: gltf.InterpolationLinear,
		})
		anim.Channels = append(anim.Channels, &gltf.Channel{
			Sampler: gltf.Index(uint32(len(anim.Samplers) - 1)),
			Target:  gltf.ChannelTarget{Node: gltf.Index(node), Path: gltf.TRSTranslation},
		})

		anim.Samplers = append(anim.Samplers, &gltf.AnimationSampler{
			Input:         gltf.Index(keysAcc),
			Output:        gltf.Index(modeler.WriteTangent(c.Document, rotations)),
			Interpolation: gltf.InterpolationLinear,
		})
		anim.Channels = append(anim.Channels, &gltf.Channel{
			Sampler: gltf.Index(uint32(len(anim.Samplers) - 1)),
			Target:  gltf.ChannelTarget{Node: gltf.Index(node), Path: gltf.TRSRotation},
		})
	}
	c.Document.Animations = append(c.Document.Animations, anim)
}

func (c *blenderToGltf) convertMaterial(name string, mat *mesh.PrincipledBSDF) *gltf.Material {
	baseColor := mat.BaseColor.Color([4]float32{1, 1, 1, 1})
	rf := mat.Roughness.Scalar(0.5)
	mf := mat.Metallic.Scalar(0)
	mm := &gltf.Material{
		Name: name,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &baseColor,
			RoughnessFactor: &rf,
			MetallicFactor:  &mf,
		},
	}

	if mat.BaseColor.IsTexture() {
		if tex, err := c.addTexture(mat.BaseColor.ImageTexture); err == nil {
			mm.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{Index: *tex}
		} else {
			log.Print("Texture read error:", err)
		}
	}
	if mat.Roughness.IsTexture() || mat.Metallic.IsTexture() {
		log.Printf("material %q: roughness/metallic textures are not packed, using factors", name)
	}
	if mat.NormalMap != "" {
		if tex, err := c.addTexture(mat.NormalMap); err == nil {
			mm.NormalTexture = &gltf.NormalTexture{Index: tex}
		} else {
			log.Print("Texture read error:", err)
		}
	}

	if baseColor[3] < 0.99 || (mat.BaseColor.IsTexture() && c.hasAlpha(mat.BaseColor.ImageTexture)) {
		mm.AlphaMode = gltf.AlphaBlend
	}
	if c.ForceUnlit {
		mm.Extensions = map[string]interface{}{unlitMaterialExt: map[string]string{}}
	}
	return mm
}

// addMaterials adds the mesh's materials once per name and returns the index of the first one by name.
func (c *blenderToGltf) addMaterials(m *mesh.Mesh) *uint32 {
	var names []string
	for name := range m.Materials {
		names = append(names, name)
	}
	sort.Strings(names)

	var first *uint32
	for _, name := range names {
		idx, ok := c.materials[name]
		if !ok {
			c.Materials = append(c.Materials, c.convertMaterial(name, m.Materials[name]))
			idx = uint32(len(c.Materials) - 1)
			c.materials[name] = idx
		}
		if first == nil {
			first = gltf.Index(idx)
		}
	}
	return first
}

// prepareMesh returns a triangulated, single-indexed copy of src with JointsPerVertex influences.
func prepareMesh(src *mesh.Mesh) *mesh.Mesh {
	m := src.Clone()
	if !m.IsTriangulated() {
		m.Triangulate()
	}
	if !m.IsSingleIndexed() {
		m.CombineVertexIndices()
	}
	b := m.BoneInfluencesPerVertex
	if b != nil && (b.Layout != mesh.Uniform || b.Count != JointsPerVertex) {
		m.SetBoneInfluencesPerVertex(JointsPerVertex)
	}
	return m
}

func (c *blenderToGltf) convertMesh(name string, src *mesh.Mesh) (*gltf.Mesh, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	m := prepareMesh(src)
	vertices := m.VertexCount()

	positions := make([][3]float32, vertices)
	for i := range positions {
		copy(positions[i][:], m.VertexPositions[i*3:])
	}
	attributes := map[string]uint32{
		"POSITION": modeler.WritePosition(c.Document, positions),
	}

	if len(m.VertexNormals) == vertices*3 && vertices > 0 {
		normals := make([][3]float32, vertices)
		for i := range normals {
			n := geom.NewVector3FromSlice(m.VertexNormals[i*3:]).Normalize()
			n.ToArray(normals[i][:])
		}
		attributes["NORMAL"] = modeler.WriteNormal(c.Document, normals)
	}

	if len(m.VertexUVs) == vertices*2 && vertices > 0 {
		uvs := make([][2]float32, vertices)
		for i := range uvs {
			uvs[i] = [2]float32{m.VertexUVs[i*2], 1 - m.VertexUVs[i*2+1]}
		}
		attributes["TEXCOORD_0"] = modeler.WriteTextureCoord(c.Document, uvs)
	}

	if m.HasBoneInfluences() && len(m.VertexGroupIndices) == vertices*JointsPerVertex {
		joints := make([][4]uint8, vertices)
		weights := make([][4]float32, vertices)
		for v := 0; v < vertices; v++ {
			var sum float32
			for i := 0; i < JointsPerVertex; i++ {
				joints[v][i] = m.VertexGroupIndices[v*JointsPerVertex+i]
				weights[v][i] = m.VertexGroupWeights[v*JointsPerVertex+i]
				sum += weights[v][i]
			}
			// glTF requires normalized weights.
			if sum > 0 {
				for i := range weights[v] {
					weights[v][i] /= sum
				}
			}
		}
		attributes["JOINTS_0"] = modeler.WriteJoints(c.Document, joints)
		attributes["WEIGHTS_0"] = modeler.WriteWeights(c.Document, weights)
	}

	return &gltf.Mesh{
		Name: name,
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(modeler.WriteIndices(c.Document, m.VertexPositionIndices)),
			Attributes: attributes,
			Material:   c.addMaterials(m),
		}},
	}, nil
}

// Convert builds a glTF document with one node per mesh and one skin per armature.
// Meshes should already be normalized; any that are not yet triangulated or single-indexed
// are normalized on a copy.
func (c *blenderToGltf) Convert(meshes map[string]*mesh.Mesh, armatures map[string]*armature.Armature) (*gltf.Document, error) {
	for _, name := range sortedKeys(armatures) {
		if err := c.addArmature(name, armatures[name]); err != nil {
			return nil, errors.Wrapf(err, "convert armature %q", name)
		}
	}

	for _, name := range sortedKeys(meshes) {
		m := meshes[name]
		gm, err := c.convertMesh(name, m)
		if err != nil {
			return nil, errors.Wrapf(err, "convert mesh %q", name)
		}
		c.Meshes = append(c.Meshes, gm)
		node := &gltf.Node{Name: name, Mesh: gltf.Index(uint32(len(c.Meshes) - 1))}
		if m.ArmatureName != "" {
			if skin, ok := c.skins[m.ArmatureName]; ok && m.HasBoneInfluences() {
				node.Skin = gltf.Index(skin)
			} else if !ok {
				log.Printf("mesh %q: armature %q not found", name, m.ArmatureName)
			}
		}
		c.Nodes = append(c.Nodes, node)
		c.Scenes[0].Nodes = append(c.Scenes[0].Nodes, uint32(len(c.Nodes)-1))
	}

	useUnlit := false
	for _, mm := range c.Materials {
		if mm.Extensions[unlitMaterialExt] != nil {
			useUnlit = true
		}
	}
	if useUnlit {
		c.ExtensionsUsed = append(c.ExtensionsUsed, unlitMaterialExt)
	}

	if len(c.Document.Textures) > 0 {
		c.Document.Samplers = []*gltf.Sampler{{}}
	}

	return c.Document, nil
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
