package mappings

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"layered-remap/internal/types"
)

const sampleProGuard = `# {"id":"sourceFile","fileName":"Block.java"}
net.minecraft.world.level.block.Block -> cpn:
    float hardness -> a
    net.minecraft.world.level.block.Block parent -> b
    1:3:void <init>() -> <init>
    12:15:net.minecraft.world.level.block.Block copy(int,java.lang.String[]) -> c
    20:20:boolean isAir():100:100 -> d
net.minecraft.world.level.block.Block$Properties -> cpn$a:
    int lightLevel -> a
`

func TestReadProGuard(t *testing.T) {
	tree, err := ReadProGuard(strings.NewReader(sampleProGuard), "client.txt")
	require.NoError(t, err)

	require.Equal(t, []string{types.NamespaceOfficial, types.NamespaceNamed}, tree.Namespaces)
	require.Len(t, tree.Classes, 2)

	block := tree.Classes[0]
	assert.Equal(t, []string{"cpn", "net/minecraft/world/level/block/Block"}, block.Names)
	require.Len(t, block.Fields, 2)
	assert.Equal(t, "F", block.Fields[0].Desc)
	assert.Equal(t, "Lcpn;", block.Fields[1].Desc)

	require.Len(t, block.Methods, 2, "constructors are skipped")
	assert.Equal(t, []string{"c", "copy"}, block.Methods[0].Names)
	assert.Equal(t, "(I[Ljava/lang/String;)Lcpn;", block.Methods[0].Desc)
	assert.Equal(t, []string{"d", "isAir"}, block.Methods[1].Names)
	assert.Equal(t, "()Z", block.Methods[1].Desc)

	assert.Equal(t, []string{"cpn$a", "net/minecraft/world/level/block/Block$Properties"}, tree.Classes[1].Names)
}

func TestReadProGuardErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
	}{
		{name: "member before class", input: "    int a -> b\n", line: 1},
		{name: "class without colon", input: "a.B -> c\n", line: 1},
		{name: "member without arrow", input: "a.B -> c:\n    int a\n", line: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadProGuard(strings.NewReader(tt.input), "bad.txt")
			require.Error(t, err)
			var typed *types.Error
			require.ErrorAs(t, err, &typed)
			assert.Equal(t, types.ErrorKindFormat, typed.Kind)
			assert.Equal(t, tt.line, typed.Line)
		})
	}
}
