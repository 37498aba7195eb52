package gltfutil

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	gltfbinary "github.com/qmuntal/gltf/binary"
	"github.com/qmuntal/gltf/modeler"
)

func Load(path string) (*gltf.Document, error) {
	return gltf.Open(path)
}

// Save writes doc as a single GLB file.
func Save(doc *gltf.Document, path string) error {
	return errors.Wrapf(gltf.SaveBinary(doc, path), "save %s", path)
}

// Write encodes doc as GLB.
func Write(w io.Writer, doc *gltf.Document) error {
	e := gltf.NewEncoder(w)
	e.AsBinary = true
	return e.Encode(doc)
}

func readMatrix(data []byte) [16]float32 {
	var mat [16]float32
	for i := 0; i < 16; i++ {
		d := binary.LittleEndian.Uint32(data[i*4 : i*4+4])
		mat[i] = math.Float32frombits(d)
	}
	return mat
}

func writeMatrix(data []byte, mat [16]float32) {
	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint32(data[i*4:i*4+4], math.Float32bits(mat[i]))
	}
}

func scaleVec3Accessor(doc *gltf.Document, a uint32, scale float32) error {
	acr := doc.Accessors[a]
	if acr.BufferView == nil {
		return nil
	}
	if acr.Sparse != nil {
		return errors.Errorf("accessor %d: sparse accessors are not supported", a)
	}
	pos, err := modeler.ReadPosition(doc, acr, [][3]float32{})
	if err != nil {
		return errors.Wrapf(err, "accessor %d", a)
	}

	acr.Min = []float32{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	acr.Max = []float32{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	for i := range pos {
		for t := range pos[i] {
			pos[i][t] *= scale
			acr.Min[t] = float32(math.Min(float64(acr.Min[t]), float64(pos[i][t])))
			acr.Max[t] = float32(math.Max(float64(acr.Max[t]), float64(pos[i][t])))
		}
	}
	bufferView := doc.BufferViews[*acr.BufferView]
	buffer := doc.Buffers[bufferView.Buffer]
	return gltfbinary.Write(buffer.Data[bufferView.ByteOffset+acr.ByteOffset:], bufferView.ByteStride, pos)
}

// Scale uniformly scales a document with flat (unparented) joints: mesh positions,
// node translations, the translation part of inverse bind matrices and translation keyframes.
func Scale(doc *gltf.Document, scale float32) error {
	if scale == 1 || scale == 0 {
		return nil
	}

	accs := map[uint32]struct{}{}
	for _, m := range doc.Meshes {
		for _, p := range m.Primitives {
			if a, ok := p.Attributes["POSITION"]; ok {
				accs[a] = struct{}{}
			}
		}
	}
	for _, anim := range doc.Animations {
		for _, ch := range anim.Channels {
			if ch.Target.Path == gltf.TRSTranslation && ch.Sampler != nil {
				if out := anim.Samplers[*ch.Sampler].Output; out != nil {
					accs[*out] = struct{}{}
				}
			}
		}
	}
	for a := range accs {
		if err := scaleVec3Accessor(doc, a, scale); err != nil {
			return err
		}
	}

	for _, node := range doc.Nodes {
		for i := range node.Translation {
			node.Translation[i] *= scale
		}
	}

	for _, skin := range doc.Skins {
		if skin.InverseBindMatrices == nil {
			continue
		}
		accessor := doc.Accessors[*skin.InverseBindMatrices]
		if accessor.BufferView == nil {
			continue
		}
		bufferView := doc.BufferViews[*accessor.BufferView]
		data := doc.Buffers[bufferView.Buffer].Data
		if len(data) == 0 {
			continue
		}
		for i := range skin.Joints {
			offset := bufferView.ByteOffset + accessor.ByteOffset + uint32(i)*64
			mat := readMatrix(data[offset : offset+64])
			mat[12] *= scale
			mat[13] *= scale
			mat[14] *= scale
			writeMatrix(data[offset:offset+64], mat)
		}
	}
	return nil
}
