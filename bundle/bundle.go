// Package bundle stores normalized meshes and armatures in the binary files the
// renderer downloads (meshes.bytes and armatures.bytes).
package bundle

import (
	"encoding/gob"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/binzume/blendconv/armature"
	"github.com/binzume/blendconv/mesh"
)

const (
	MeshesFile    = "meshes.bytes"
	ArmaturesFile = "armatures.bytes"
)

func WriteMeshes(w io.Writer, meshes map[string]*mesh.Mesh) error {
	return gob.NewEncoder(w).Encode(meshes)
}

func ReadMeshes(r io.Reader) (map[string]*mesh.Mesh, error) {
	var meshes map[string]*mesh.Mesh
	if err := gob.NewDecoder(r).Decode(&meshes); err != nil {
		return nil, err
	}
	for name, m := range meshes {
		m.Name = name
	}
	return meshes, nil
}

func WriteArmatures(w io.Writer, armatures map[string]*armature.Armature) error {
	return gob.NewEncoder(w).Encode(armatures)
}

func ReadArmatures(r io.Reader) (map[string]*armature.Armature, error) {
	var armatures map[string]*armature.Armature
	if err := gob.NewDecoder(r).Decode(&armatures); err != nil {
		return nil, err
	}
	for name, a := range armatures {
		a.Name = name
	}
	return armatures, nil
}

// Save writes both bundle files into dir.
func Save(dir string, meshes map[string]*mesh.Mesh, armatures map[string]*armature.Armature) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, MeshesFile), func(w io.Writer) error { return WriteMeshes(w, meshes) }); err != nil {
		return err
	}
	return writeFile(filepath.Join(dir, ArmaturesFile), func(w io.Writer) error { return WriteArmatures(w, armatures) })
}

func writeFile(path string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return f.Close()
}

// Load reads the bundle files in dir. A missing file gives an empty map.
func Load(dir string) (map[string]*mesh.Mesh, map[string]*armature.Armature, error) {
	meshes := map[string]*mesh.Mesh{}
	armatures := map[string]*armature.Armature{}

	if f, err := os.Open(filepath.Join(dir, MeshesFile)); err == nil {
		defer f.Close()
		if meshes, err = ReadMeshes(f); err != nil {
			return nil, nil, errors.Wrap(err, MeshesFile)
		}
	} else if !os.IsNotExist(err) {
		return nil, nil, err
	}

	if f, err := os.Open(filepath.Join(dir, ArmaturesFile)); err == nil {
		defer f.Close()
		if armatures, err = ReadArmatures(f); err != nil {
			return nil, nil, errors.Wrap(err, ArmaturesFile)
		}
	} else if !os.IsNotExist(err) {
		return nil, nil, err
	}
	return meshes, armatures, nil
}
