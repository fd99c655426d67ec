package mappings

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"layered-remap/internal/types"
)

const sampleTinyV2 = "tiny\t2\t0\tofficial\tintermediary\tnamed\n" +
	"c\ta\tnet/minecraft/class_1\tnet/minecraft/Block\n" +
	"\tc\tA block.\\nSecond line.\n" +
	"\tf\tI\tb\tfield_1\thardness\n" +
	"\tm\t(La;)V\tc\tmethod_1\tcopyFrom\n" +
	"\t\tc\tCopies state.\n" +
	"\t\tp\t1\t\t\tother\n" +
	"\t\t\tc\tthe source\n" +
	"\n"

// ---------------------------------------------------------------------------
// ReadTiny
// ---------------------------------------------------------------------------

func TestReadTinyV2(t *testing.T) {
	tree, err := ReadTiny(strings.NewReader(sampleTinyV2), "mappings.tiny")
	require.NoError(t, err)

	require.Equal(t, []string{"official", "intermediary", "named"}, tree.Namespaces)
	require.Len(t, tree.Classes, 1)
	class := tree.Classes[0]
	assert.Equal(t, []string{"a", "net/minecraft/class_1", "net/minecraft/Block"}, class.Names)
	assert.Equal(t, "A block.\nSecond line.", class.Comment)
	require.Len(t, class.Fields, 1)
	assert.Equal(t, "I", class.Fields[0].Desc)
	require.Len(t, class.Methods, 1)
	method := class.Methods[0]
	assert.Equal(t, "(La;)V", method.Desc)
	assert.Equal(t, "Copies state.", method.Comment)
	require.Len(t, method.Params, 1)
	assert.Equal(t, 1, method.Params[0].Index)
	assert.Equal(t, []string{"", "", "other"}, method.Params[0].Names)
	assert.Equal(t, "the source", method.Params[0].Comment)
}

func TestReadTinyV1(t *testing.T) {
	input := "v1\tofficial\tintermediary\n" +
		"# INTERMEDIARY-COUNTER class 2\n" +
		"CLASS\ta\tnet/minecraft/class_1\n" +
		"FIELD\ta\tI\tb\tfield_1\n" +
		"METHOD\ta\t()V\tc\tmethod_1\n"
	tree, err := ReadTiny(strings.NewReader(input), "v1.tiny")
	require.NoError(t, err)

	require.Len(t, tree.Classes, 1)
	class := tree.Classes[0]
	assert.Equal(t, []string{"a", "net/minecraft/class_1"}, class.Names)
	require.Len(t, class.Fields, 1)
	require.Len(t, class.Methods, 1)
	assert.Equal(t, []string{"c", "method_1"}, class.Methods[0].Names)
}

func TestReadTinyColumnMismatch(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
	}{
		{
			name:  "v2 class row",
			input: "tiny\t2\t0\tofficial\tnamed\nc\ta\n",
			line:  2,
		},
		{
			name:  "v2 method row",
			input: "tiny\t2\t0\tofficial\tnamed\nc\ta\tFoo\n\tm\t()V\tb\n",
			line:  3,
		},
		{
			name:  "v1 field row",
			input: "v1\tofficial\tnamed\nFIELD\ta\tI\tb\n",
			line:  2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTiny(strings.NewReader(tt.input), "broken.tiny")
			require.Error(t, err)
			var typed *types.Error
			require.ErrorAs(t, err, &typed)
			assert.Equal(t, types.ErrorKindFormat, typed.Kind)
			assert.Equal(t, tt.line, typed.Line)
			assert.Equal(t, "broken.tiny", typed.Path)
		})
	}
}

func TestReadTinyRejectsUnknownHeader(t *testing.T) {
	_, err := ReadTiny(strings.NewReader("tsrg2 left right\n"), "x")
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.ErrorKindFormat))
}

func TestReadTinyRejectsDuplicateNamespace(t *testing.T) {
	_, err := ReadTiny(strings.NewReader("tiny\t2\t0\tnamed\tnamed\n"), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declared twice")
}

func TestReadTinyEscapedNames(t *testing.T) {
	input := "tiny\t2\t0\tofficial\tnamed\n" +
		"\tescaped-names\n" +
		"c\ta\tweird\\tname\n"
	tree, err := ReadTiny(strings.NewReader(input), "x")
	require.NoError(t, err)
	assert.Equal(t, "weird\tname", tree.Classes[0].Names[1])
}

// ---------------------------------------------------------------------------
// WriteTiny
// ---------------------------------------------------------------------------

func TestWriteTinyRoundTripIsStable(t *testing.T) {
	tree, err := ReadTiny(strings.NewReader(sampleTinyV2), "mappings.tiny")
	require.NoError(t, err)
	table, err := TableFromTree(tree)
	require.NoError(t, err)

	var first bytes.Buffer
	require.NoError(t, WriteTiny(&first, table))

	reread, err := ReadTiny(bytes.NewReader(first.Bytes()), "again.tiny")
	require.NoError(t, err)
	again, err := TableFromTree(reread)
	require.NoError(t, err)

	var second bytes.Buffer
	require.NoError(t, WriteTiny(&second, again))
	if diff := cmp.Diff(first.String(), second.String()); diff != "" {
		t.Fatalf("tiny output changed after round trip (-first +second):\n%s", diff)
	}
	assert.Contains(t, first.String(), "\tc\tA block.\\nSecond line.\n")
}

func TestWriteTinySortsClasses(t *testing.T) {
	tree := NewTree("official", "named")
	tree.Class("b", "Second")
	tree.Class("a", "First")
	table, err := TableFromTree(tree)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteTiny(&buf, table))
	want := "tiny\t2\t0\tofficial\tnamed\n" +
		"c\ta\tFirst\n" +
		"c\tb\tSecond\n"
	assert.Equal(t, want, buf.String())
}
