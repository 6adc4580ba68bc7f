package hcl

import (
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// newEvalContext builds the context manifest expressions are evaluated in.
func newEvalContext(env map[string]string) *hcl.EvalContext {
	envVals := make(map[string]cty.Value, len(env))
	for k, v := range env {
		envVals[k] = cty.StringVal(v)
	}
	envObj := cty.EmptyObjectVal
	if len(envVals) > 0 {
		envObj = cty.ObjectVal(envVals)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": envObj,
		},
		Functions: map[string]function.Function{
			"concat": stdlib.ConcatFunc,
			"format": stdlib.FormatFunc,
			"join":   stdlib.JoinFunc,
			"lower":  stdlib.LowerFunc,
			"upper":  stdlib.UpperFunc,
		},
	}
}

// processEnv returns the current process environment as a map.
func processEnv() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && hclsyntax.ValidIdentifier(k) {
			env[k] = v
		}
	}
	return env
}
