package blender

import (
	"bufio"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/unicode/norm"

	"github.com/binzume/blendconv/armature"
	"github.com/binzume/blendconv/mesh"
)

const (
	KindMesh     = "MESH"
	KindArmature = "ARMATURE"
)

const blendExt = ".blend"

const maxLineSize = 256 * 1024 * 1024

// ExportResult holds parsed entities keyed by source file, then by entity name.
type ExportResult struct {
	Meshes    map[string]map[string]*mesh.Mesh
	Armatures map[string]map[string]*armature.Armature
}

type sentinel struct {
	start bool
	kind  string
	file  string
	name  string
}

// parseSentinel parses "START_MESH_JSON /path/to/file.blend Cube".
// The file name ends at the first ".blend " so both parts may contain spaces.
// Other file names end at the last space.
func parseSentinel(line string) (*sentinel, bool) {
	var s sentinel
	switch {
	case strings.HasPrefix(line, "START_"):
		s.start = true
		line = line[len("START_"):]
	case strings.HasPrefix(line, "END_"):
		line = line[len("END_"):]
	default:
		return nil, false
	}
	p := strings.Index(line, "_JSON ")
	if p < 0 {
		return nil, false
	}
	s.kind = line[:p]
	rest := strings.TrimSpace(line[p+len("_JSON "):])
	sp := blendFileEnd(rest)
	if sp < 0 {
		sp = strings.LastIndexByte(rest, ' ')
	}
	if sp < 0 {
		return nil, false
	}
	s.file = rest[:sp]
	s.name = norm.NFC.String(rest[sp+1:])
	return &s, true
}

func blendFileEnd(s string) int {
	for i := 0; i+len(blendExt) < len(s); i++ {
		if s[i+len(blendExt)] == ' ' && strings.EqualFold(s[i:i+len(blendExt)], blendExt) {
			return i + len(blendExt)
		}
	}
	return -1
}

// ParseExport reads exporter output. Lines outside of sentinel blocks are ignored.
func ParseExport(r io.Reader) (*ExportResult, error) {
	result := &ExportResult{
		Meshes:    map[string]map[string]*mesh.Mesh{},
		Armatures: map[string]map[string]*armature.Armature{},
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	var current *sentinel
	var body strings.Builder
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		s, ok := parseSentinel(line)
		if current == nil {
			if ok && s.start {
				current = s
				body.Reset()
			} else if ok {
				return nil, errors.Errorf("line %d: unexpected END_%s_JSON", lineNo, s.kind)
			}
			continue
		}
		if !ok {
			body.WriteString(line)
			body.WriteByte('\n')
			continue
		}
		if s.start || s.kind != current.kind || s.name != current.name || s.file != current.file {
			return nil, errors.Errorf("line %d: %s %q is not terminated", lineNo, strings.ToLower(current.kind), current.name)
		}
		if err := result.add(current, body.String()); err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNo)
		}
		current = nil
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read export output")
	}
	if current != nil {
		return nil, errors.Errorf("%s %q is not terminated", strings.ToLower(current.kind), current.name)
	}
	return result, nil
}

func (r *ExportResult) add(s *sentinel, body string) error {
	switch s.kind {
	case KindMesh:
		m, err := mesh.Parse(strings.NewReader(body), s.name)
		if err != nil {
			return errors.Wrapf(err, "mesh %q", s.name)
		}
		if r.Meshes[s.file] == nil {
			r.Meshes[s.file] = map[string]*mesh.Mesh{}
		}
		r.Meshes[s.file][s.name] = m
	case KindArmature:
		a, err := armature.Parse(strings.NewReader(body), s.name)
		if err != nil {
			return errors.Wrapf(err, "armature %q", s.name)
		}
		if err := normalizeArmatureNames(a); err != nil {
			return errors.Wrapf(err, "armature %q", s.name)
		}
		if r.Armatures[s.file] == nil {
			r.Armatures[s.file] = map[string]*armature.Armature{}
		}
		r.Armatures[s.file][s.name] = a
	default:
		return errors.Errorf("unknown export kind %q", s.kind)
	}
	return nil
}

// normalizeArmatureNames converts joint and action names to NFC.
// It fails without modifying a when two names become equal.
func normalizeArmatureNames(a *armature.Armature) error {
	joints := make(map[string]uint8, len(a.JointIndex))
	jointNames := make(map[string]string, len(a.JointIndex))
	for _, name := range sortedKeys(a.JointIndex) {
		n := norm.NFC.String(name)
		if prev, ok := jointNames[n]; ok {
			return errors.Errorf("joints %q and %q have the same NFC name %q", prev, name, n)
		}
		jointNames[n] = name
		joints[n] = a.JointIndex[name]
	}
	actions := make(map[string][]armature.Keyframe, len(a.Actions))
	actionNames := make(map[string]string, len(a.Actions))
	for _, name := range sortedKeys(a.Actions) {
		n := norm.NFC.String(name)
		if prev, ok := actionNames[n]; ok {
			return errors.Errorf("actions %q and %q have the same NFC name %q", prev, name, n)
		}
		actionNames[n] = name
		actions[n] = a.Actions[name]
	}
	a.JointIndex = joints
	a.Actions = actions
	return nil
}

// Flatten merges all files into maps keyed by entity name.
// The same name exported from two files is an error.
func (r *ExportResult) Flatten() (map[string]*mesh.Mesh, map[string]*armature.Armature, error) {
	meshes := map[string]*mesh.Mesh{}
	for _, file := range sortedKeys(r.Meshes) {
		for name, m := range r.Meshes[file] {
			if _, exists := meshes[name]; exists {
				return nil, nil, errors.Errorf("mesh %q exported from more than one file", name)
			}
			meshes[name] = m
		}
	}
	armatures := map[string]*armature.Armature{}
	for _, file := range sortedKeys(r.Armatures) {
		for name, a := range r.Armatures[file] {
			if _, exists := armatures[name]; exists {
				return nil, nil, errors.Errorf("armature %q exported from more than one file", name)
			}
			armatures[name] = a
		}
	}
	return meshes, armatures, nil
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
