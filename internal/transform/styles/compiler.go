// Package styles evaluates stylesheet sources as HCL templates. Interpolations
// (${...}) and directives (%{...}) can call the string helpers in Functions and
// read the sprites_timestamp, sprites and svg variables.
package styles

import (
	"encoding/json"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Variable names visible to stylesheets.
const (
	VarTimestamp = "sprites_timestamp"
	VarSprites   = "sprites"
	VarSVG       = "svg"
)

// Globals are the computed values injected into every compilation.
type Globals struct {
	// Timestamp is milliseconds since the epoch at step start.
	Timestamp int64
	Sprites   any
	SVG       any
}

// Compiler evaluates one stylesheet source.
type Compiler struct{}

// Compile renders src. Errors carry the HCL diagnostics text.
func (Compiler) Compile(name string, src []byte, g Globals) ([]byte, error) {
	expr, diags := hclsyntax.ParseTemplate(src, name, hcl.Pos{Line: 1, Column: 1, Byte: 0})
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse %s: %s", name, diags.Error())
	}
	ctx, err := evalContext(g)
	if err != nil {
		return nil, err
	}
	val, diags := expr.Value(ctx)
	if diags.HasErrors() {
		return nil, fmt.Errorf("evaluate %s: %s", name, diags.Error())
	}
	// A template that is a single interpolation yields the raw value.
	str, err := convert.Convert(val, cty.String)
	if err != nil || str.IsNull() || !str.IsKnown() {
		return nil, fmt.Errorf("evaluate %s: template did not produce a string", name)
	}
	return []byte(str.AsString()), nil
}

func evalContext(g Globals) (*hcl.EvalContext, error) {
	sprites, err := toCty(g.Sprites)
	if err != nil {
		return nil, fmt.Errorf("sprites metadata: %w", err)
	}
	svg, err := toCty(g.SVG)
	if err != nil {
		return nil, fmt.Errorf("svg metadata: %w", err)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			VarTimestamp: cty.NumberIntVal(g.Timestamp),
			VarSprites:   sprites,
			VarSVG:       svg,
		},
		Functions: Functions(),
	}, nil
}

// toCty coerces a JSON-shaped Go value into its cty object representation.
func toCty(v any) (cty.Value, error) {
	if v == nil {
		return cty.EmptyObjectVal, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return cty.NilVal, err
	}
	if string(raw) == "null" {
		return cty.EmptyObjectVal, nil
	}
	ty, err := ctyjson.ImpliedType(raw)
	if err != nil {
		return cty.NilVal, err
	}
	return ctyjson.Unmarshal(raw, ty)
}
