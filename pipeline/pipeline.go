// Package pipeline runs the normalization passes on meshes and armatures in the order
// they depend on, validating every entity before it is touched.
package pipeline

import (
	"sort"
	"sync"

	"github.com/binzume/blendconv/armature"
	"github.com/binzume/blendconv/mesh"
)

type Options struct {
	Triangulate bool
	YUp         bool
	// BoneInfluencesPerVertex is the fixed influence count. 0 keeps the exported counts.
	BoneInfluencesPerVertex uint8
	DualQuats               bool
	// Workers limits concurrent entities. 0 means one goroutine per entity.
	Workers int
	// KeepSource makes NormalizeAll work on clones and leave its inputs untouched.
	KeepSource bool
}

func DefaultOptions() *Options {
	return &Options{
		Triangulate:             true,
		YUp:                     true,
		BoneInfluencesPerVertex: 4,
		DualQuats:               true,
	}
}

// NormalizeMesh triangulates, single-indexes, converts to y-up and uniformizes bone influences.
// Nothing is modified when validation fails.
func NormalizeMesh(m *mesh.Mesh, opts *Options) error {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := m.Validate(); err != nil {
		return err
	}
	if opts.Triangulate {
		m.Triangulate()
	}
	m.CombineVertexIndices()
	if opts.YUp {
		m.YUp()
	}
	if opts.BoneInfluencesPerVertex > 0 {
		m.SetBoneInfluencesPerVertex(opts.BoneInfluencesPerVertex)
	}
	m.ComputeBoundingBox()
	return nil
}

// NormalizeArmature applies inverse bind poses, transposes to column-major and
// converts poses to dual quaternions. Nothing is modified when validation fails.
func NormalizeArmature(a *armature.Armature, opts *Options) error {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := a.Validate(); err != nil {
		return err
	}
	if kind, ok := a.PoseKind(); ok && kind != armature.BoneMatrix {
		return &armature.ValidationError{Entity: a.Name, Invariant: "bone kind", Detail: "poses are already " + kind.String()}
	}
	a.ApplyInverseBindPoses()
	a.TransposeActions()
	if opts.DualQuats {
		a.ActionsToDualQuats()
	}
	return nil
}

type job struct {
	name string
	run  func() error
}

// NormalizeAll normalizes every entity concurrently and returns the normalized maps.
// Entities share nothing, so the result is the same as normalizing them one by one.
// The inputs are normalized in place unless opts.KeepSource is set, in which case
// clones are normalized and returned. The first error in name order
// (meshes before armatures) is returned.
func NormalizeAll(meshes map[string]*mesh.Mesh, armatures map[string]*armature.Armature, opts *Options) (map[string]*mesh.Mesh, map[string]*armature.Armature, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.KeepSource {
		meshes, armatures = cloneAll(meshes, armatures)
	}

	var jobs []job
	for _, name := range sortedKeys(meshes) {
		m := meshes[name]
		jobs = append(jobs, job{name: name, run: func() error { return NormalizeMesh(m, opts) }})
	}
	for _, name := range sortedKeys(armatures) {
		a := armatures[name]
		jobs = append(jobs, job{name: name, run: func() error { return NormalizeArmature(a, opts) }})
	}

	workers := opts.Workers
	if workers <= 0 || workers > len(jobs) {
		workers = len(jobs)
	}
	errs := make([]error, len(jobs))
	queue := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range queue {
				errs[i] = jobs[i].run()
			}
		}()
	}
	for i := range jobs {
		queue <- i
	}
	close(queue)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, nil, err
		}
	}
	return meshes, armatures, nil
}

func cloneAll(meshes map[string]*mesh.Mesh, armatures map[string]*armature.Armature) (map[string]*mesh.Mesh, map[string]*armature.Armature) {
	var ms map[string]*mesh.Mesh
	if meshes != nil {
		ms = make(map[string]*mesh.Mesh, len(meshes))
		for name, m := range meshes {
			ms[name] = m.Clone()
		}
	}
	var as map[string]*armature.Armature
	if armatures != nil {
		as = make(map[string]*armature.Armature, len(armatures))
		for name, a := range armatures {
			as[name] = a.Clone()
		}
	}
	return ms, as
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
