package blender

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const installScript = `
import bpy

# Install the addon, enable it and save the user's preferences so that it
# is available whenever Blender is opened in the future
bpy.ops.preferences.addon_install(filepath=%s)
bpy.ops.preferences.addon_enable(module=%s)
bpy.ops.wm.save_userpref()
`

// InstallAddon installs and enables the addon at addonPath (e.g. blender-mesh-to-json.py).
func (c *Config) InstallAddon(ctx context.Context, addonPath string) error {
	abs, err := filepath.Abs(addonPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err != nil {
		return errors.Wrap(err, "addon not found")
	}
	module := strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
	script := fmt.Sprintf(installScript, strconv.Quote(abs), strconv.Quote(module))

	if _, err := c.run(ctx, "--background", "--python-expr", script); err != nil {
		return errors.Wrapf(err, "failed to install %s", module)
	}
	return nil
}
