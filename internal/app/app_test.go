package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"layered-remap/internal/types"
)

const intermediaryTiny = "tiny\t2\t0\tofficial\tintermediary\n" +
	"c\ta\tnet/minecraft/class_1\n" +
	"\tf\tI\tb\tfield_1\n" +
	"\tm\t(La;)V\tc\tmethod_1\n"

const yarnTiny = "tiny\t2\t0\tintermediary\tnamed\n" +
	"c\tnet/minecraft/class_1\tnet/minecraft/block/Block\n" +
	"\tf\tI\tfield_1\thardness\n" +
	"\tm\t(Lnet/minecraft/class_1;)V\tmethod_1\tcopyFrom\n"

const projectYAML = `api_version: v1
game_version: 1.20.1
offline: true
layers:
  - kind: intermediary
    path: intermediary.tiny
  - kind: community
    path: yarn.tiny
remap:
  from: official
  to: named
`

// writeProject lays out a project whose layers are local files, so nothing
// is fetched from the network.
func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTestFile(t, dir, "intermediary.tiny", intermediaryTiny)
	writeTestFile(t, dir, "yarn.tiny", yarnTiny)
	return writeTestFile(t, dir, "layered-remap.yaml", projectYAML)
}

func writeTestFile(t *testing.T, dir string, name string, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func fixedClock() time.Time {
	return time.Date(2026, 2, 2, 12, 0, 0, 0, time.UTC)
}

func testService() Service {
	service := NewService()
	service.Clock = fixedClock
	return service
}

func requireKind(t *testing.T, err error, kind types.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	got, ok := types.KindOf(err)
	require.True(t, ok, "error %v carries no kind", err)
	require.Equal(t, kind, got)
}
