// Package web serves normalized meshes and armatures to a rendering harness.
package web

import (
	"io"
	"log"
	"net/http"
	"os"
	"sort"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"

	"github.com/binzume/blendconv/armature"
	"github.com/binzume/blendconv/bundle"
	"github.com/binzume/blendconv/config"
	"github.com/binzume/blendconv/converter"
	"github.com/binzume/blendconv/gltfutil"
	"github.com/binzume/blendconv/mesh"
)

// Server holds normalized entities. They must not be modified after the server starts.
type Server struct {
	Meshes    map[string]*mesh.Mesh
	Armatures map[string]*armature.Armature
	Preset    *config.Preset
	// SourceMeshes and SourceArmatures hold the entities as exported, served with ?source=1.
	SourceMeshes    map[string]*mesh.Mesh
	SourceArmatures map[string]*armature.Armature
	// StaticDir is served at / when set.
	StaticDir string
}

func NewServer(meshes map[string]*mesh.Mesh, armatures map[string]*armature.Armature, preset *config.Preset) *Server {
	if preset == nil {
		preset = config.Default()
	}
	return &Server{Meshes: meshes, Armatures: armatures, Preset: preset}
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/dist/"+bundle.MeshesFile, s.handleMeshesBundle).Methods("GET")
	r.HandleFunc("/dist/"+bundle.ArmaturesFile, s.handleArmaturesBundle).Methods("GET")
	r.HandleFunc("/json/mesh", s.handleMeshList).Methods("GET")
	r.HandleFunc("/json/mesh/{name}", s.handleMesh).Methods("GET")
	r.HandleFunc("/json/armature", s.handleArmatureList).Methods("GET")
	r.HandleFunc("/json/armature/{name}", s.handleArmature).Methods("GET")
	r.HandleFunc("/glb/{name}", s.handleGLB).Methods("GET")

	if s.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(s.StaticDir)))
	}

	return handlers.LoggingHandler(os.Stdout, handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(r))
}

func (s *Server) ListenAndServe(addr string) error {
	log.Printf("[web] Starting server %v", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func sortedNames[T any](m map[string]T) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Server) handleMeshesBundle(w http.ResponseWriter, r *http.Request) {
	writeStream(w, bundle.MeshesFile, "application/octet-stream", func(out io.Writer) error {
		return bundle.WriteMeshes(out, s.Meshes)
	})
}

func (s *Server) handleArmaturesBundle(w http.ResponseWriter, r *http.Request) {
	writeStream(w, bundle.ArmaturesFile, "application/octet-stream", func(out io.Writer) error {
		return bundle.WriteArmatures(out, s.Armatures)
	})
}

func (s *Server) handleMeshList(w http.ResponseWriter, r *http.Request) {
	writeJson(w, sortedNames(s.Meshes))
}

func (s *Server) handleArmatureList(w http.ResponseWriter, r *http.Request) {
	writeJson(w, sortedNames(s.Armatures))
}

func (s *Server) handleMesh(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	meshes := s.Meshes
	if r.URL.Query().Get("source") != "" {
		meshes = s.SourceMeshes
	}
	m, ok := meshes[name]
	if !ok {
		writeError(w, http.StatusNotFound, errors.Errorf("mesh %q not found", name))
		return
	}
	writeJson(w, m)
}

func (s *Server) handleArmature(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	armatures := s.Armatures
	if r.URL.Query().Get("source") != "" {
		armatures = s.SourceArmatures
	}
	a, ok := armatures[name]
	if !ok {
		writeError(w, http.StatusNotFound, errors.Errorf("armature %q not found", name))
		return
	}
	writeJson(w, a)
}

// ConvertMesh converts one mesh and its armature, if any, into a glTF document.
func ConvertMesh(name string, m *mesh.Mesh, armatures map[string]*armature.Armature, preset *config.Preset) (*gltf.Document, error) {
	var rig map[string]*armature.Armature
	if a, ok := armatures[m.ArmatureName]; ok && m.ArmatureName != "" {
		rig = map[string]*armature.Armature{m.ArmatureName: a}
	}
	doc, err := converter.NewBlenderToGLTFConverter(preset.GLTFOptions()).Convert(map[string]*mesh.Mesh{name: m}, rig)
	if err != nil {
		return nil, err
	}
	converter.ApplyMaterialSettings(doc, preset.GLTF.MaterialSettings)
	if err := gltfutil.Scale(doc, preset.GLTF.Scale); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Server) handleGLB(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	m, ok := s.Meshes[name]
	if !ok {
		writeError(w, http.StatusNotFound, errors.Errorf("mesh %q not found", name))
		return
	}
	doc, err := ConvertMesh(name, m, s.Armatures, s.Preset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errors.Wrapf(err, "convert %q", name))
		return
	}
	writeStream(w, name+".glb", "model/gltf-binary", func(out io.Writer) error {
		return gltfutil.Write(out, doc)
	})
}
