package converter

import (
	"testing"

	"github.com/qmuntal/gltf"
)

func TestApplyMaterialSettings(t *testing.T) {
	doc := gltf.NewDocument()
	doc.Materials = []*gltf.Material{{Name: "Body"}, {Name: "Hair"}, {Name: "Eye"}}

	ApplyMaterialSettings(doc, map[string]*MaterialSetting{
		"Hair": {AlphaMode: "mask", DoubleSided: true},
		"*":    {ForceUnlit: true},
	})

	if doc.Materials[1].AlphaMode != gltf.AlphaMask || !doc.Materials[1].DoubleSided {
		t.Error("hair: ", doc.Materials[1])
	}
	if doc.Materials[1].Extensions != nil {
		t.Error("hair should not be unlit")
	}
	if doc.Materials[0].Extensions[unlitMaterialExt] == nil || doc.Materials[2].Extensions[unlitMaterialExt] == nil {
		t.Error("wildcard not applied")
	}
	if len(doc.ExtensionsUsed) != 1 {
		t.Error("extensions: ", doc.ExtensionsUsed)
	}
}
