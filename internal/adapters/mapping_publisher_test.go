package adapters

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"layered-remap/internal/types"
)

func TestMappingPublisherWritesDirectoryRepository(t *testing.T) {
	repo := t.TempDir()
	coord := types.Coordinate{Group: "net.example", Artifact: "mappings", Version: "1_20_1_layered_hash_0123", Extension: "jar"}

	err := NewMappingPublisher(S3Options{}).Publish(context.Background(), repo, coord, []byte("jar"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(repo, "net", "example", "mappings", coord.Version, "mappings-"+coord.Version+".jar"))
	require.NoError(t, err)
	assert.Equal(t, "jar", string(data))
}

func TestMappingPublisherRejectsHTTP(t *testing.T) {
	coord := types.Coordinate{Group: "g", Artifact: "a", Version: "1"}
	err := NewMappingPublisher(S3Options{}).Publish(context.Background(), "https://maven.example.net", coord, nil)
	assert.True(t, types.IsKind(err, types.ErrorKindConfiguration))
}
