package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/binzume/blendconv/bundle"
	"github.com/binzume/blendconv/converter"
	"github.com/binzume/blendconv/gltfutil"
	"github.com/binzume/blendconv/web"
	"github.com/davecgh/go-spew/spew"
)

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, args []string) error
}

const (
	installUsage = "addon.py..."
	exportUsage  = "[-o stream.txt] input.blend..."
	bundleUsage  = "[-preset blendconv.yaml] [-o dir] input..."
	glbUsage     = "[-preset blendconv.yaml] [-o out.glb] [-mesh name] input..."
	serveUsage   = "[-preset blendconv.yaml] [-addr :8080] [-static dir] input..."
	dumpUsage    = "[-preset blendconv.yaml] [-raw] input..."
)

var commands = []*command{
	{"install", installUsage, runInstall},
	{"export", exportUsage, runExport},
	{"bundle", bundleUsage, runBundle},
	{"glb", glbUsage, runGLB},
	{"serve", serveUsage, runServe},
	{"dump", dumpUsage, runDump},
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [-v] command [options] input...\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "input: .blend file, saved export stream, or bundle directory\n")
	fmt.Fprintf(os.Stderr, "%s selects the Blender executable.\n\n", blenderExeEnv)
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %s %s\n", c.name, c.usage)
	}
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	verbose := flag.Bool("v", false, "verbose log")
	flag.Parse()

	if *verbose {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	for _, c := range commands {
		if c.name == flag.Arg(0) {
			if err := c.run(ctx, flag.Args()[1:]); err != nil {
				log.Fatal(err)
			}
			return
		}
	}
	flag.Usage()
	os.Exit(2)
}

func newFlagSet(name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s %s %s\n", os.Args[0], name, usage)
		fs.PrintDefaults()
	}
	return fs
}

func requireInputs(fs *flag.FlagSet) []string {
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}
	return fs.Args()
}

func runInstall(ctx context.Context, args []string) error {
	fs := newFlagSet("install", installUsage)
	fs.Parse(args)
	for _, addon := range requireInputs(fs) {
		log.Print("install: ", addon)
		if err := blenderConfig().InstallAddon(ctx, addon); err != nil {
			return err
		}
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := newFlagSet("export", exportUsage)
	output := fs.String("o", "", "output file (default: stdout)")
	fs.Parse(args)
	inputs := requireInputs(fs)

	stream, err := blenderConfig().Export(ctx, inputs)
	if err != nil {
		return err
	}
	var w io.Writer = os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	_, err = io.WriteString(w, stream)
	return err
}

func runBundle(ctx context.Context, args []string) error {
	fs := newFlagSet("bundle", bundleUsage)
	presetFile := fs.String("preset", "", "preset file (default: ./blendconv.yaml if present)")
	output := fs.String("o", "dist", "output directory")
	fs.Parse(args)
	inputs := requireInputs(fs)

	preset, err := loadPreset(*presetFile)
	if err != nil {
		return err
	}
	src, err := loadInputs(ctx, inputs)
	if err != nil {
		return err
	}
	e, err := src.normalize(preset, false)
	if err != nil {
		return err
	}
	log.Print("out: ", filepath.Join(*output, bundle.MeshesFile), ", ", filepath.Join(*output, bundle.ArmaturesFile))
	return bundle.Save(*output, e.meshes, e.armatures)
}

func runGLB(ctx context.Context, args []string) error {
	fs := newFlagSet("glb", glbUsage)
	presetFile := fs.String("preset", "", "preset file (default: ./blendconv.yaml if present)")
	output := fs.String("o", "", "output file (default: <mesh>.glb per mesh)")
	meshName := fs.String("mesh", "", "convert only this mesh")
	fs.Parse(args)
	inputs := requireInputs(fs)

	preset, err := loadPreset(*presetFile)
	if err != nil {
		return err
	}
	if preset.GLTF.TextureDir == "" {
		preset.GLTF.TextureDir = filepath.Dir(inputs[0])
	}
	src, err := loadInputs(ctx, inputs)
	if err != nil {
		return err
	}
	e, err := src.normalize(preset, false)
	if err != nil {
		return err
	}

	if *output != "" && *meshName == "" {
		// all meshes in one file
		doc, err := converter.NewBlenderToGLTFConverter(preset.GLTFOptions()).Convert(e.meshes, e.armatures)
		if err != nil {
			return err
		}
		converter.ApplyMaterialSettings(doc, preset.GLTF.MaterialSettings)
		if err := gltfutil.Scale(doc, preset.GLTF.Scale); err != nil {
			return err
		}
		log.Print("out: ", *output)
		return gltfutil.Save(doc, *output)
	}

	var names []string
	for name := range e.meshes {
		if *meshName == "" || name == *meshName {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("mesh not found: %q", *meshName)
	}
	sort.Strings(names)
	for _, name := range names {
		doc, err := web.ConvertMesh(name, e.meshes[name], e.armatures, preset)
		if err != nil {
			return err
		}
		out := *output
		if out == "" {
			out = strings.ReplaceAll(name, string(filepath.Separator), "_") + ".glb"
		}
		log.Print("out: ", out)
		if err := gltfutil.Save(doc, out); err != nil {
			return err
		}
	}
	return nil
}

func runServe(ctx context.Context, args []string) error {
	fs := newFlagSet("serve", serveUsage)
	presetFile := fs.String("preset", "", "preset file (default: ./blendconv.yaml if present)")
	addr := fs.String("addr", ":8080", "listen address")
	static := fs.String("static", "", "static files directory")
	fs.Parse(args)
	inputs := requireInputs(fs)

	preset, err := loadPreset(*presetFile)
	if err != nil {
		return err
	}
	src, err := loadInputs(ctx, inputs)
	if err != nil {
		return err
	}
	e, err := src.normalize(preset, true)
	if err != nil {
		return err
	}
	s := web.NewServer(e.meshes, e.armatures, preset)
	s.SourceMeshes, s.SourceArmatures = src.meshes, src.armatures
	s.StaticDir = *static
	return s.ListenAndServe(*addr)
}

func runDump(ctx context.Context, args []string) error {
	fs := newFlagSet("dump", dumpUsage)
	presetFile := fs.String("preset", "", "preset file (default: ./blendconv.yaml if present)")
	raw := fs.Bool("raw", false, "dump the entities as loaded before the normalized ones")
	fs.Parse(args)
	inputs := requireInputs(fs)

	preset, err := loadPreset(*presetFile)
	if err != nil {
		return err
	}
	src, err := loadInputs(ctx, inputs)
	if err != nil {
		return err
	}
	e, err := src.normalize(preset, *raw)
	if err != nil {
		return err
	}

	cfg := spew.ConfigState{Indent: "  ", DisableCapacities: true, DisablePointerAddresses: true, SortKeys: true}
	cfg.Fdump(os.Stdout, preset)
	if *raw {
		cfg.Fdump(os.Stdout, src.meshes)
		cfg.Fdump(os.Stdout, src.armatures)
	}
	cfg.Fdump(os.Stdout, e.meshes)
	cfg.Fdump(os.Stdout, e.armatures)
	return nil
}
