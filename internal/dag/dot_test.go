package dag

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/ecow/internal/testutil"
)

func TestExportDOT(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	g, err := Build(ctx, testutil.Registry(t, testutil.Diamond()...))
	require.NoError(t, err)

	// --- Act ---
	var buf bytes.Buffer
	err = g.ExportDOT(&buf, DOTWithGraphName("build"), DOTWithRankDir("TB"))

	// --- Assert ---
	require.NoError(t, err)
	want := `digraph "build" {
    rankdir=TB;
    "A";
    "B";
    "C";
    "D";
    "A" -> "B";
    "A" -> "C";
    "B" -> "D";
    "C" -> "D";
}
`
	assert.Equal(t, want, buf.String())
}

func TestExportDOT_LabelsAndQuoting(t *testing.T) {
	t.Parallel()

	ctx, _ := testutil.Context(t)
	g, err := Build(ctx, testutil.Registry(t, testutil.Unit(`we"ird`)))
	require.NoError(t, err)

	var buf bytes.Buffer
	err = g.ExportDOT(&buf, DOTWithLabel(func(NodeID) string { return "stale" }))

	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"we\"ird" [label="we\"ird\nstale"];`)
	assert.Contains(t, buf.String(), "rankdir=LR;")
}

func TestExportDOT_NilWriter(t *testing.T) {
	t.Parallel()

	ctx, _ := testutil.Context(t)
	g, err := Build(ctx, testutil.Registry(t))
	require.NoError(t, err)

	assert.ErrorIs(t, g.ExportDOT(nil), ErrNilWriter)
}
