package converter

import (
	"github.com/qmuntal/gltf"
)

// MaterialSetting overrides converted material properties. The "*" entry applies to every
// material without its own entry.
type MaterialSetting struct {
	ForceUnlit  bool   `yaml:"force_unlit" json:"forceUnlit"`
	AlphaMode   string `yaml:"alpha_mode" json:"alphaMode"` // "opaque", "blend" or "mask"
	DoubleSided bool   `yaml:"double_sided" json:"doubleSided"`
}

func isExtensionUsed(doc *gltf.Document, ext string) bool {
	for _, e := range doc.ExtensionsUsed {
		if e == ext {
			return true
		}
	}
	return false
}

func ApplyMaterialSettings(doc *gltf.Document, settings map[string]*MaterialSetting) {
	if len(settings) == 0 {
		return
	}
	for _, mat := range doc.Materials {
		setting := settings[mat.Name]
		if setting == nil {
			setting = settings["*"]
		}
		if setting == nil {
			continue
		}
		if setting.ForceUnlit {
			if !isExtensionUsed(doc, unlitMaterialExt) {
				doc.ExtensionsUsed = append(doc.ExtensionsUsed, unlitMaterialExt)
			}
			mat.Extensions = map[string]interface{}{unlitMaterialExt: map[string]string{}}
		}
		switch setting.AlphaMode {
		case "opaque":
			mat.AlphaMode = gltf.AlphaOpaque
		case "blend":
			mat.AlphaMode = gltf.AlphaBlend
		case "mask":
			mat.AlphaMode = gltf.AlphaMask
		}
		if setting.DoubleSided {
			mat.DoubleSided = true
		}
	}
}
