package hcl

import (
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/vk/ecow/internal/model"
	"github.com/zclconf/go-cty/cty"
)

// Encode renders declarations as a manifest file that Load reads back into
// the same declarations. Empty kinds, dependency lists and input lists are
// omitted.
func Encode(decls []*model.Declaration) []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	for i, d := range decls {
		if i > 0 {
			body.AppendNewline()
		}
		ub := body.AppendNewBlock("unit", []string{d.Name}).Body()
		if d.Kind != "" {
			ub.SetAttributeValue("kind", cty.StringVal(d.Kind))
		}
		if len(d.Deps) > 0 {
			ub.SetAttributeValue("wsdep", stringList(d.Deps))
		}
		for _, p := range d.Parts {
			pb := ub.AppendNewBlock("part", []string{p.Name}).Body()
			if p.Kind != "" {
				pb.SetAttributeValue("kind", cty.StringVal(p.Kind))
			}
			if len(p.Inputs) > 0 {
				pb.SetAttributeValue("inputs", stringList(p.Inputs))
			}
		}
	}

	return hclwrite.Format(f.Bytes())
}

func stringList(items []string) cty.Value {
	vals := make([]cty.Value, len(items))
	for i, s := range items {
		vals[i] = cty.StringVal(s)
	}
	return cty.ListVal(vals)
}
