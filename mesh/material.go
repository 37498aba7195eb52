package mesh

import (
	"encoding/json"
	"fmt"
)

// PrincipledBSDF is the subset of Blender's Principled BSDF node that gets exported.
type PrincipledBSDF struct {
	BaseColor MaterialInput `json:"base_color"`
	Roughness MaterialInput `json:"roughness"`
	Metallic  MaterialInput `json:"metallic"`
	NormalMap string        `json:"normal_map,omitempty"`
}

// MaterialInput is either a uniform value (1 or 3 components) or an image texture file name.
type MaterialInput struct {
	Uniform      []float32
	ImageTexture string
}

func (in *MaterialInput) IsTexture() bool {
	return in.ImageTexture != ""
}

// Scalar returns the first uniform component, or def.
func (in *MaterialInput) Scalar(def float32) float32 {
	if len(in.Uniform) == 0 {
		return def
	}
	return in.Uniform[0]
}

// Color returns the uniform value as RGBA, or def.
func (in *MaterialInput) Color(def [4]float32) [4]float32 {
	switch len(in.Uniform) {
	case 1:
		return [4]float32{in.Uniform[0], in.Uniform[0], in.Uniform[0], 1}
	case 3:
		return [4]float32{in.Uniform[0], in.Uniform[1], in.Uniform[2], 1}
	case 4:
		return [4]float32{in.Uniform[0], in.Uniform[1], in.Uniform[2], in.Uniform[3]}
	}
	return def
}

func (in MaterialInput) MarshalJSON() ([]byte, error) {
	if in.IsTexture() {
		return json.Marshal(map[string]string{"ImageTexture": in.ImageTexture})
	}
	if len(in.Uniform) == 1 {
		return json.Marshal(map[string]float32{"Uniform": in.Uniform[0]})
	}
	return json.Marshal(map[string][]float32{"Uniform": in.Uniform})
}

func (in *MaterialInput) UnmarshalJSON(data []byte) error {
	var v map[string]json.RawMessage
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if raw, ok := v["ImageTexture"]; ok {
		*in = MaterialInput{}
		return json.Unmarshal(raw, &in.ImageTexture)
	}
	if raw, ok := v["Uniform"]; ok {
		var f float32
		if err := json.Unmarshal(raw, &f); err == nil {
			*in = MaterialInput{Uniform: []float32{f}}
			return nil
		}
		var a []float32
		if err := json.Unmarshal(raw, &a); err != nil {
			return err
		}
		*in = MaterialInput{Uniform: a}
		return nil
	}
	return fmt.Errorf("material input must be Uniform or ImageTexture")
}
