package blender

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// The exporter addons print one START_<KIND>_JSON ... END_<KIND>_JSON block per object.
const exportScript = `
import bpy

for obj in bpy.context.scene.objects:
    bpy.context.view_layer.objects.active = obj
    if obj.type == 'MESH':
        bpy.ops.import_export.mesh2json()
    elif obj.type == 'ARMATURE':
        bpy.ops.import_export.armature2json()
`

// Export runs Blender once per .blend file and returns everything the exporters printed.
func (c *Config) Export(ctx context.Context, files []string) (string, error) {
	var out strings.Builder
	for _, f := range files {
		stdout, err := c.run(ctx, f, "--background", "--python-expr", exportScript)
		if err != nil {
			return "", errors.Wrapf(err, "failed to export %s", f)
		}
		out.WriteString(stdout)
	}
	return out.String(), nil
}

// ExportAndParse is Export followed by ParseExport.
func (c *Config) ExportAndParse(ctx context.Context, files []string) (*ExportResult, error) {
	stdout, err := c.Export(ctx, files)
	if err != nil {
		return nil, err
	}
	return ParseExport(strings.NewReader(stdout))
}
