package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/binzume/blendconv/armature"
	"github.com/binzume/blendconv/bundle"
	"github.com/binzume/blendconv/mesh"
	"github.com/binzume/blendconv/pipeline"
)

func newTestServer(t *testing.T) *httptest.Server {
	inv := [16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
	armatures := map[string]*armature.Armature{
		"Rig": {
			Name:             "Rig",
			JointIndex:       map[string]uint8{"Root": 0},
			InverseBindPoses: []armature.Bone{armature.NewMatrixBone(inv)},
			Actions: map[string][]armature.Keyframe{
				"Idle": {{FrameTimeSecs: 0, Bones: []armature.Bone{armature.NewMatrixBone(inv)}}},
			},
		},
	}
	meshes := map[string]*mesh.Mesh{
		"Plane": {
			Name:                    "Plane",
			VertexPositions:         []float32{0, 0, 0, 1, 0, 0, 1, 1, 0},
			VertexPositionIndices:   []uint32{0, 1, 2},
			NumVerticesInEachFace:   mesh.U8Array{3},
			ArmatureName:            "Rig",
			VertexGroupIndices:      mesh.U8Array{0, 0, 0},
			VertexGroupWeights:      []float32{1, 1, 1},
			BoneInfluencesPerVertex: mesh.NewUniformInfluences(1),
		},
	}
	opts := pipeline.DefaultOptions()
	opts.KeepSource = true
	normalizedMeshes, normalizedArmatures, err := pipeline.NormalizeAll(meshes, armatures, opts)
	if err != nil {
		t.Fatal(err)
	}
	s := NewServer(normalizedMeshes, normalizedArmatures, nil)
	s.SourceMeshes, s.SourceArmatures = meshes, armatures
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	res, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(res.Body); err != nil {
		t.Fatal(err)
	}
	return res, buf.Bytes()
}

func TestJSON(t *testing.T) {
	ts := newTestServer(t)

	res, body := get(t, ts.URL+"/json/mesh")
	var names []string
	if err := json.Unmarshal(body, &names); err != nil || res.StatusCode != 200 {
		t.Fatal(res.StatusCode, err)
	}
	if len(names) != 1 || names[0] != "Plane" {
		t.Error("names: ", names)
	}

	_, body = get(t, ts.URL+"/json/mesh/Plane")
	m, err := mesh.Parse(bytes.NewReader(body), "Plane")
	if err != nil {
		t.Fatal(err)
	}
	if m.VertexCount() != 3 || m.BoneInfluencesPerVertex.Count != 4 {
		t.Error("mesh: ", m.VertexCount(), m.BoneInfluencesPerVertex)
	}

	_, body = get(t, ts.URL+"/json/armature/Rig")
	a, err := armature.Parse(bytes.NewReader(body), "Rig")
	if err != nil {
		t.Fatal(err)
	}
	if kind, ok := a.PoseKind(); !ok || kind != armature.BoneDualQuat {
		t.Error("pose kind: ", kind, ok)
	}

	res, _ = get(t, ts.URL+"/json/armature/Nope")
	if res.StatusCode != http.StatusNotFound {
		t.Error("status: ", res.StatusCode)
	}
}

func TestBundle(t *testing.T) {
	ts := newTestServer(t)

	_, body := get(t, ts.URL+"/dist/meshes.bytes")
	meshes, err := bundle.ReadMeshes(bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if meshes["Plane"] == nil || meshes["Plane"].Name != "Plane" {
		t.Error("meshes: ", meshes)
	}

	_, body = get(t, ts.URL+"/dist/armatures.bytes")
	armatures, err := bundle.ReadArmatures(bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if armatures["Rig"] == nil || armatures["Rig"].JointCount() != 1 {
		t.Error("armatures: ", armatures)
	}
}

func TestGLB(t *testing.T) {
	ts := newTestServer(t)

	res, body := get(t, ts.URL+"/glb/Plane")
	if res.StatusCode != 200 {
		t.Fatal("status: ", res.StatusCode, string(body))
	}
	if res.Header.Get("Content-Type") != "model/gltf-binary" {
		t.Error("content type: ", res.Header.Get("Content-Type"))
	}
	if !bytes.HasPrefix(body, []byte("glTF")) {
		t.Error("not a GLB")
	}

	res, _ = get(t, ts.URL+"/glb/Nope")
	if res.StatusCode != http.StatusNotFound {
		t.Error("status: ", res.StatusCode)
	}
}

func TestJSONSource(t *testing.T) {
	ts := newTestServer(t)

	_, body := get(t, ts.URL+"/json/mesh/Plane?source=1")
	m, err := mesh.Parse(bytes.NewReader(body), "Plane")
	if err != nil {
		t.Fatal(err)
	}
	if m.BoneInfluencesPerVertex.Count != 1 {
		t.Error("source mesh: ", m.BoneInfluencesPerVertex)
	}

	_, body = get(t, ts.URL+"/json/armature/Rig?source=1")
	a, err := armature.Parse(bytes.NewReader(body), "Rig")
	if err != nil {
		t.Fatal(err)
	}
	if kind, ok := a.PoseKind(); !ok || kind != armature.BoneMatrix {
		t.Error("source pose kind: ", kind, ok)
	}
}
