package mappings

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"layered-remap/internal/types"
)

func sampleTable(t *testing.T) *Table {
	t.Helper()
	tree, err := ReadTiny(strings.NewReader(sampleTinyV2), "mappings.tiny")
	require.NoError(t, err)
	table, err := TableFromTree(tree)
	require.NoError(t, err)
	return table
}

func TestMapperMapsClassesAndMembers(t *testing.T) {
	mapper, err := sampleTable(t).Mapper("official", "named")
	require.NoError(t, err)

	name, ok := mapper.MapClass("a")
	assert.True(t, ok)
	assert.Equal(t, "net/minecraft/Block", name)

	field, ok := mapper.MapField("a", "b", "I")
	assert.True(t, ok)
	assert.Equal(t, "hardness", field)

	method, ok := mapper.MapMethod("a", "c", "(La;)V")
	assert.True(t, ok)
	assert.Equal(t, "copyFrom", method)
}

func TestMapperTranslatesDescriptorsIntoSourceNamespace(t *testing.T) {
	mapper, err := sampleTable(t).Mapper("intermediary", "named")
	require.NoError(t, err)

	method, ok := mapper.MapMethod("net/minecraft/class_1", "method_1", "(Lnet/minecraft/class_1;)V")
	assert.True(t, ok)
	assert.Equal(t, "copyFrom", method)
}

func TestMapperAbsentSymbolsMapToThemselves(t *testing.T) {
	mapper, err := sampleTable(t).Mapper("official", "named")
	require.NoError(t, err)

	name, ok := mapper.MapClass("java/lang/String")
	assert.False(t, ok)
	assert.Equal(t, "java/lang/String", name)

	method, ok := mapper.MapMethod("a", "zz", "()V")
	assert.False(t, ok)
	assert.Equal(t, "zz", method)

	assert.Equal(t, "(Ljava/lang/String;)Lnet/minecraft/Block;", MapDescriptor(mapper, "(Ljava/lang/String;)La;"))
}

func TestMapperInnerClassFallback(t *testing.T) {
	mapper, err := sampleTable(t).Mapper("official", "named")
	require.NoError(t, err)

	name, ok := mapper.MapClass("a$1")
	assert.True(t, ok)
	assert.Equal(t, "net/minecraft/Block$1", name)
}

func TestMapperUnknownNamespace(t *testing.T) {
	_, err := sampleTable(t).Mapper("official", "srg")
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.ErrorKindConfiguration))
}

func TestMapperIsSharedPerNamespacePair(t *testing.T) {
	table := sampleTable(t)
	first, err := table.Mapper("official", "named")
	require.NoError(t, err)
	second, err := table.Mapper("official", "named")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

// ---------------------------------------------------------------------------
// Stack and overlays
// ---------------------------------------------------------------------------

func TestStackFirstProviderWins(t *testing.T) {
	base, err := sampleTable(t).Mapper("official", "named")
	require.NoError(t, err)

	overlayTree := NewTree("named", "official")
	overlayTree.Class("net/minecraft/BlockOverride", "a")
	overlayTree.Class("com/example/Mixin", "mixin/a")
	overlay, err := BuildOverlay([]*Tree{overlayTree}, "official", "named")
	require.NoError(t, err)

	stack := Stack{overlay, base}
	name, _ := stack.MapClass("a")
	assert.Equal(t, "net/minecraft/BlockOverride", name)
	name, _ = stack.MapClass("mixin/a")
	assert.Equal(t, "com/example/Mixin", name)
	field, _ := stack.MapField("a", "b", "I")
	assert.Equal(t, "hardness", field)
}

func TestStackKeepsListedInnerClassOverOverlayOuter(t *testing.T) {
	baseTree := NewTree("official", "named")
	baseTree.Class("a", "A")
	baseTree.Class("a$b", "X$Y")
	baseTable, err := TableFromTree(baseTree)
	require.NoError(t, err)
	base, err := baseTable.Mapper("official", "named")
	require.NoError(t, err)

	overlayTree := NewTree("official", "named")
	overlayTree.Class("a", "O")
	overlay, err := BuildOverlay([]*Tree{overlayTree}, "official", "named")
	require.NoError(t, err)

	stack := Stack{overlay, base}
	tests := map[string]string{
		"a":     "O",
		"a$b":   "X$Y",
		"a$c":   "O$c",
		"a$b$d": "X$Y$d",
	}
	for input, want := range tests {
		got, ok := stack.MapClass(input)
		assert.True(t, ok, input)
		assert.Equal(t, want, got, input)
	}
	_, ok := stack.MapClass("z$1")
	assert.False(t, ok)
}

func TestBuildOverlayRejectsMissingNamespace(t *testing.T) {
	_, err := BuildOverlay([]*Tree{NewTree("official", "intermediary")}, "official", "named")
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.ErrorKindConfiguration))
}
