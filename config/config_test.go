package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	p, err := Parse(strings.NewReader("y_up: false\n"))
	if err != nil {
		t.Fatal(err)
	}
	if p.YUp {
		t.Error("y_up not applied")
	}
	if p.BoneInfluencesPerVertex != 4 || !p.Triangulate || !p.DualQuats {
		t.Error("defaults lost: ", p)
	}
	if p.GLTF.TextureScale != 1 || !p.GLTF.Animations {
		t.Error("gltf defaults lost: ", p.GLTF)
	}

	opts := p.PipelineOptions()
	if opts.YUp || opts.BoneInfluencesPerVertex != 4 {
		t.Error("pipeline options: ", opts)
	}
	if p.GLTFOptions().YUp {
		t.Error("gltf options must follow y_up")
	}
}

func TestLoad(t *testing.T) {
	yaml := `
bone_influences_per_vertex: 2
workers: 3
gltf:
  texture_dir: textures
  texture_scale: 0.5
  texture_resolution_limit: 1024
  force_unlit: true
  materials:
    "*":
      alpha_mode: blend
`
	path := filepath.Join(t.TempDir(), DefaultFileName)
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	p, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if p.BoneInfluencesPerVertex != 2 || p.Workers != 3 {
		t.Error("preset: ", p)
	}
	g := p.GLTFOptions()
	if g.TextureDir != "textures" || g.TextureScale != 0.5 || g.TextureResolutionLimit != 1024 || !g.ForceUnlit {
		t.Error("gltf options: ", g)
	}
	if p.GLTF.MaterialSettings["*"] == nil || p.GLTF.MaterialSettings["*"].AlphaMode != "blend" {
		t.Error("material settings: ", p.GLTF.MaterialSettings)
	}
}

func TestParseInvalid(t *testing.T) {
	for _, src := range []string{"bone_influences_per_vertex: 0", "gltf: {texture_scale: -1}", "y_up: [1"} {
		if _, err := Parse(strings.NewReader(src)); err == nil {
			t.Error("expected error: ", src)
		}
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
