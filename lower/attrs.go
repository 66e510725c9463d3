package lower

import (
	"cirlower/cir"
	"cirlower/ir"
	"cirlower/llvm"
)

// moduleAttrs maps the source module attributes that have a target
// counterpart onto the name of that counterpart.
var moduleAttrs = map[string]string{
	cir.ModAttrTriple: llvm.ModAttrTargetTriple,
}

// ProjectModuleAttrs copies the module attributes of mod that have a target
// counterpart under their target name.  Values are copied verbatim.
func ProjectModuleAttrs(mod *ir.Module) {
	for src, dst := range moduleAttrs {
		if val, ok := mod.Attrs[src]; ok {
			mod.Attrs[dst] = val
		}
	}
}
