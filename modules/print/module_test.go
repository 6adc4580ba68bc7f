package print

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/ecow/internal/action"
	"github.com/vk/ecow/internal/model"
)

func TestOnBuildPrint(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	out := &bytes.Buffer{}
	m := &Module{Out: out}
	reg := action.NewRegistry()
	m.Register(reg)

	u := &model.Unit{
		Name: "jute",
		Parts: []model.Part{
			{Name: "view", Kind: Kind, Inputs: []string{"view/b.cpp", "view/a.cpp"}},
			{Name: "empty", Kind: Kind},
		},
	}

	// --- Act ---
	err := reg.Builder(nil).Build(context.Background(), u)

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, "jute/view\n      view/a.cpp\n      view/b.cpp\njute/empty\n      (no inputs)\n", out.String())
	require.Equal(t, []string{"view/b.cpp", "view/a.cpp"}, u.Parts[0].Inputs, "inputs must not be reordered in place")
	require.Equal(t, []string{Kind}, reg.Kinds())
}
