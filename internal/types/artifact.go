package types

import (
	"fmt"
	"strings"
	"time"
)

// Coordinate is a parsed group:artifact:version[:classifier][@extension]
// reference.
type Coordinate struct {
	Group      string
	Artifact   string
	Version    string
	Classifier string
	Extension  string
}

func ParseCoordinate(value string) (Coordinate, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return Coordinate{}, fmt.Errorf("coordinate is empty")
	}
	extension := "jar"
	if at := strings.LastIndex(trimmed, "@"); at >= 0 {
		extension = strings.TrimSpace(trimmed[at+1:])
		trimmed = trimmed[:at]
		if extension == "" {
			return Coordinate{}, fmt.Errorf("coordinate %q has empty extension", value)
		}
	}
	parts := strings.Split(trimmed, ":")
	if len(parts) < 3 || len(parts) > 4 {
		return Coordinate{}, fmt.Errorf("coordinate %q must be group:artifact:version[:classifier]", value)
	}
	for _, part := range parts[:3] {
		if strings.TrimSpace(part) == "" {
			return Coordinate{}, fmt.Errorf("coordinate %q has an empty segment", value)
		}
	}
	coord := Coordinate{
		Group:     strings.TrimSpace(parts[0]),
		Artifact:  strings.TrimSpace(parts[1]),
		Version:   strings.TrimSpace(parts[2]),
		Extension: extension,
	}
	if len(parts) == 4 {
		coord.Classifier = strings.TrimSpace(parts[3])
	}
	return coord, nil
}

func (c Coordinate) String() string {
	var builder strings.Builder
	builder.WriteString(c.Group)
	builder.WriteString(":")
	builder.WriteString(c.Artifact)
	builder.WriteString(":")
	builder.WriteString(c.Version)
	if c.Classifier != "" {
		builder.WriteString(":")
		builder.WriteString(c.Classifier)
	}
	if c.Extension != "" && c.Extension != "jar" {
		builder.WriteString("@")
		builder.WriteString(c.Extension)
	}
	return builder.String()
}

// FileName is the file name of the artifact in a maven layout.
func (c Coordinate) FileName() string {
	name := c.Artifact + "-" + c.Version
	if c.Classifier != "" {
		name += "-" + c.Classifier
	}
	ext := c.Extension
	if ext == "" {
		ext = "jar"
	}
	return name + "." + ext
}

// RepositoryPath is the path of the artifact relative to a repository root.
func (c Coordinate) RepositoryPath() string {
	return c.ArtifactDir() + "/" + c.Version + "/" + c.FileName()
}

// ArtifactDir is the directory holding every version of the artifact.
func (c Coordinate) ArtifactDir() string {
	return strings.ReplaceAll(c.Group, ".", "/") + "/" + c.Artifact
}

// ResolvedArtifact is a materialised ArtifactRef.
type ResolvedArtifact struct {
	Ref        ArtifactRef
	Coordinate Coordinate
	Path       string
	Digest     string
}

// DisplayName is the coordinate with its concrete version, or the file path.
func (a ResolvedArtifact) DisplayName() string {
	if a.Coordinate.Artifact != "" {
		return a.Coordinate.String()
	}
	return a.Path
}

// ArchiveEntry is one file of a jar. Stored entries are written without
// compression.
type ArchiveEntry struct {
	Name     string
	Data     []byte
	Modified time.Time
	Stored   bool
}
