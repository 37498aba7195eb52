package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/binzume/blendconv/armature"
	"github.com/binzume/blendconv/blender"
	"github.com/binzume/blendconv/bundle"
	"github.com/binzume/blendconv/config"
	"github.com/binzume/blendconv/mesh"
	"github.com/binzume/blendconv/pipeline"
	"github.com/pkg/errors"
)

const blenderExeEnv = "BLENDCONV_BLENDER_EXE"

func blenderConfig() *blender.Config {
	return &blender.Config{Executable: os.Getenv(blenderExeEnv)}
}

func loadPreset(path string) (*config.Preset, error) {
	if path == "" {
		if _, err := os.Stat(config.DefaultFileName); err != nil {
			return config.Default(), nil
		}
		path = config.DefaultFileName
	}
	log.Print("preset: ", path)
	return config.Load(path)
}

type entities struct {
	meshes     map[string]*mesh.Mesh
	armatures  map[string]*armature.Armature
	normalized bool
}

func (e *entities) merge(meshes map[string]*mesh.Mesh, armatures map[string]*armature.Armature) error {
	for name, m := range meshes {
		if _, ok := e.meshes[name]; ok {
			return errors.Errorf("duplicate mesh %q", name)
		}
		e.meshes[name] = m
	}
	for name, a := range armatures {
		if _, ok := e.armatures[name]; ok {
			return errors.Errorf("duplicate armature %q", name)
		}
		e.armatures[name] = a
	}
	return nil
}

// loadInputs reads .blend files through Blender, saved export streams (any other file)
// and bundle directories. Bundles are already normalized, so mixing them with other inputs is an error.
func loadInputs(ctx context.Context, inputs []string) (*entities, error) {
	e := &entities{meshes: map[string]*mesh.Mesh{}, armatures: map[string]*armature.Armature{}}
	var blends []string
	bundles := 0
	for _, input := range inputs {
		if st, err := os.Stat(input); err != nil {
			return nil, err
		} else if st.IsDir() {
			meshes, armatures, err := bundle.Load(input)
			if err != nil {
				return nil, err
			}
			if err := e.merge(meshes, armatures); err != nil {
				return nil, err
			}
			bundles++
			continue
		}

		if strings.ToLower(filepath.Ext(input)) == ".blend" {
			blends = append(blends, input)
			continue
		}
		r, err := os.Open(input)
		if err != nil {
			return nil, err
		}
		res, err := blender.ParseExport(r)
		r.Close()
		if err != nil {
			return nil, errors.Wrap(err, input)
		}
		meshes, armatures, err := res.Flatten()
		if err != nil {
			return nil, err
		}
		if err := e.merge(meshes, armatures); err != nil {
			return nil, err
		}
	}

	if len(blends) > 0 {
		res, err := blenderConfig().ExportAndParse(ctx, blends)
		if err != nil {
			return nil, err
		}
		meshes, armatures, err := res.Flatten()
		if err != nil {
			return nil, err
		}
		if err := e.merge(meshes, armatures); err != nil {
			return nil, err
		}
	}

	if bundles > 0 && bundles != len(inputs) {
		return nil, errors.New("bundle directories can't be mixed with other inputs")
	}
	e.normalized = bundles > 0
	log.Printf("loaded %d meshes, %d armatures", len(e.meshes), len(e.armatures))
	return e, nil
}

// normalize returns the normalized entities. With keepSource, e is left as loaded
// and the result holds normalized clones.
func (e *entities) normalize(preset *config.Preset, keepSource bool) (*entities, error) {
	if e.normalized {
		return e, nil
	}
	opts := preset.PipelineOptions()
	opts.KeepSource = keepSource
	meshes, armatures, err := pipeline.NormalizeAll(e.meshes, e.armatures, opts)
	if err != nil {
		return nil, err
	}
	if !keepSource {
		e.normalized = true
		return e, nil
	}
	return &entities{meshes: meshes, armatures: armatures, normalized: true}, nil
}
