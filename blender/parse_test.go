package blender

import (
	"strings"
	"testing"
)

const meshJSON = `{"vertex_positions": [0,0,0, 1,0,0, 0,1,0], "vertex_position_indices": [0,1,2], "num_vertices_in_each_face": [3]}`

const armatureJSON = `{
  "joint_index": {"Cafe\u0301": 0},
  "inverse_bind_poses": [{"Matrix": [1,0,0,0, 0,1,0,0, 0,0,1,0, 0,0,0,1]}],
  "actions": {"Idle": [{"frame_time_secs": 0, "bones": [{"Matrix": [1,0,0,0, 0,1,0,0, 0,0,1,0, 0,0,0,1]}]}]}
}`

func TestParseExport(t *testing.T) {
	src := strings.Join([]string{
		"Blender 2.80 (sub 75)",
		"Read blend: /models/bird.blend",
		"START_MESH_JSON /models/bird.blend Body",
		meshJSON,
		"END_MESH_JSON /models/bird.blend Body",
		"START_ARMATURE_JSON /models/bird.blend Rig",
		armatureJSON,
		"END_ARMATURE_JSON /models/bird.blend Rig",
		"START_MESH_JSON /models/my tree.blend Leaf",
		meshJSON,
		"END_MESH_JSON /models/my tree.blend Leaf",
		"Blender quit",
	}, "\n")

	result, err := ParseExport(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	body := result.Meshes["/models/bird.blend"]["Body"]
	if body == nil || body.Name != "Body" || body.VertexCount() != 3 {
		t.Error("mesh: ", result.Meshes)
	}
	if result.Meshes["/models/my tree.blend"]["Leaf"] == nil {
		t.Error("file with space: ", result.Meshes)
	}
	rig := result.Armatures["/models/bird.blend"]["Rig"]
	if rig == nil {
		t.Fatal("armature: ", result.Armatures)
	}
	if _, ok := rig.JointIndex["Caf\u00e9"]; !ok {
		t.Error("joint name is not NFC: ", rig.JointIndex)
	}

	meshes, armatures, err := result.Flatten()
	if err != nil {
		t.Fatal(err)
	}
	if len(meshes) != 2 || len(armatures) != 1 {
		t.Error("flatten: ", meshes, armatures)
	}
}

func TestParseExportErrors(t *testing.T) {
	unterminated := "START_MESH_JSON a.blend Cube\n" + meshJSON + "\n"
	if _, err := ParseExport(strings.NewReader(unterminated)); err == nil {
		t.Error("unterminated block")
	}

	mismatched := "START_MESH_JSON a.blend Cube\n" + meshJSON + "\nEND_MESH_JSON a.blend Sphere\n"
	if _, err := ParseExport(strings.NewReader(mismatched)); err == nil {
		t.Error("mismatched block")
	}

	broken := "START_ARMATURE_JSON a.blend Rig\n{\"joint_index\": \nEND_ARMATURE_JSON a.blend Rig\n"
	if _, err := ParseExport(strings.NewReader(broken)); err == nil {
		t.Error("broken json")
	}

	dup := "START_MESH_JSON a.blend Cube\n" + meshJSON + "\nEND_MESH_JSON a.blend Cube\n" +
		"START_MESH_JSON b.blend Cube\n" + meshJSON + "\nEND_MESH_JSON b.blend Cube\n"
	result, err := ParseExport(strings.NewReader(dup))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := result.Flatten(); err == nil {
		t.Error("duplicate names across files")
	}
}

func TestParseSentinel(t *testing.T) {
	s, ok := parseSentinel("END_ARMATURE_JSON /tmp/x.blend Armature.001")
	if !ok || s.start || s.kind != KindArmature || s.file != "/tmp/x.blend" || s.name != "Armature.001" {
		t.Error("sentinel: ", s)
	}
	s, ok = parseSentinel("START_MESH_JSON /models/my tree.BLEND Left Wing")
	if !ok || !s.start || s.file != "/models/my tree.BLEND" || s.name != "Left Wing" {
		t.Error("name with space: ", s)
	}
	s, ok = parseSentinel("START_MESH_JSON stream.txt Left Wing")
	if !ok || s.file != "stream.txt Left" || s.name != "Wing" {
		t.Error("not a .blend file: ", s)
	}
	if _, ok := parseSentinel("START_MESH_JSON"); ok {
		t.Error("sentinel without file")
	}
	if _, ok := parseSentinel("Saved session recovery"); ok {
		t.Error("not a sentinel")
	}
}

func TestParseExportNameWithSpace(t *testing.T) {
	src := "START_MESH_JSON /models/bird.blend Left Wing\n" + meshJSON + "\nEND_MESH_JSON /models/bird.blend Left Wing\n"
	result, err := ParseExport(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	if m := result.Meshes["/models/bird.blend"]["Left Wing"]; m == nil || m.Name != "Left Wing" {
		t.Error("meshes: ", result.Meshes)
	}
}

func TestParseExportNFCCollision(t *testing.T) {
	collision := `{
  "joint_index": {"Caf\u00e9": 0, "Cafe\u0301": 1},
  "inverse_bind_poses": [
    {"Matrix": [1,0,0,0, 0,1,0,0, 0,0,1,0, 0,0,0,1]},
    {"Matrix": [1,0,0,0, 0,1,0,0, 0,0,1,0, 0,0,0,1]}
  ],
  "actions": {}
}`
	src := "START_ARMATURE_JSON a.blend Rig\n" + collision + "\nEND_ARMATURE_JSON a.blend Rig\n"
	_, err := ParseExport(strings.NewReader(src))
	if err == nil {
		t.Fatal("collision accepted")
	}
	if !strings.Contains(err.Error(), "Caf\u00e9") || !strings.Contains(err.Error(), "Cafe\u0301") {
		t.Error("error does not name the joints: ", err)
	}
}
