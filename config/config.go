// Package config loads conversion presets (blendconv.yaml).
package config

import (
	"bytes"
	"io"
	"io/ioutil"

	"github.com/binzume/blendconv/converter"
	"github.com/binzume/blendconv/pipeline"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const DefaultFileName = "blendconv.yaml"

type Preset struct {
	BoneInfluencesPerVertex uint8 `yaml:"bone_influences_per_vertex"`
	YUp                     bool  `yaml:"y_up"`
	Triangulate             bool  `yaml:"triangulate"`
	DualQuats               bool  `yaml:"dual_quats"`
	// Workers is the number of entities normalized concurrently. 0: one per entity.
	Workers int `yaml:"workers"`

	GLTF GLTF `yaml:"gltf"`
}

type GLTF struct {
	TextureDir             string  `yaml:"texture_dir"`
	TextureScale           float32 `yaml:"texture_scale"`
	TextureResolutionLimit int     `yaml:"texture_resolution_limit"`
	TextureBytesThreshold  int64   `yaml:"texture_bytes_threshold"`
	TextureReCompress      bool    `yaml:"texture_recompress"`
	ForceUnlit             bool    `yaml:"force_unlit"`
	Animations             bool    `yaml:"animations"`
	Scale                  float32 `yaml:"scale"`

	MaterialSettings map[string]*converter.MaterialSetting `yaml:"materials"`
}

func Default() *Preset {
	return &Preset{
		BoneInfluencesPerVertex: 4,
		YUp:                     true,
		Triangulate:             true,
		DualQuats:               true,
		GLTF: GLTF{
			TextureScale: 1.0,
			Animations:   true,
			Scale:        1.0,
		},
	}
}

// Parse reads a preset. Keys missing from r keep their default values.
func Parse(r io.Reader) (*Preset, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	p := Default()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, errors.Wrap(err, "parse preset")
	}
	if p.BoneInfluencesPerVertex == 0 {
		return nil, errors.New("bone_influences_per_vertex must be at least 1")
	}
	if p.GLTF.TextureScale <= 0 {
		return nil, errors.Errorf("invalid texture_scale %v", p.GLTF.TextureScale)
	}
	return p, nil
}

func Load(path string) (*Preset, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return p, nil
}

func (p *Preset) PipelineOptions() *pipeline.Options {
	return &pipeline.Options{
		Triangulate:             p.Triangulate,
		YUp:                     p.YUp,
		BoneInfluencesPerVertex: p.BoneInfluencesPerVertex,
		DualQuats:               p.DualQuats,
		Workers:                 p.Workers,
	}
}

func (p *Preset) GLTFOptions() *converter.BlenderToGLTFOption {
	return &converter.BlenderToGLTFOption{
		YUp:                    p.YUp,
		ForceUnlit:             p.GLTF.ForceUnlit,
		ExportAnimations:       p.GLTF.Animations,
		TextureDir:             p.GLTF.TextureDir,
		TextureReCompress:      p.GLTF.TextureReCompress,
		TextureBytesThreshold:  p.GLTF.TextureBytesThreshold,
		TextureResolutionLimit: p.GLTF.TextureResolutionLimit,
		TextureScale:           p.GLTF.TextureScale,
	}
}

func (p *Preset) String() string {
	data, _ := yaml.Marshal(p)
	return string(data)
}
