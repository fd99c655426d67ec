package types

// LayerSummary describes one resolved layer of a unified table.
type LayerSummary struct {
	Index       int       `yaml:"index"`
	Kind        LayerKind `yaml:"kind"`
	Source      string    `yaml:"source"`
	Fingerprint string    `yaml:"fingerprint"`
	Label       string    `yaml:"label"`
}

type TableStats struct {
	Classes    int `yaml:"classes"`
	Fields     int `yaml:"fields"`
	Methods    int `yaml:"methods"`
	Parameters int `yaml:"parameters"`
	Comments   int `yaml:"comments"`
	Signatures int `yaml:"signatures"`
}

// ResolutionReport is the on-disk record of a resolution, written next to the
// serialised table.
type ResolutionReport struct {
	Version           string         `yaml:"version"`
	Label             string         `yaml:"label"`
	CoordinateVersion string         `yaml:"coordinate_version"`
	GameVersion       string         `yaml:"game_version,omitempty"`
	Namespaces        []string       `yaml:"namespaces"`
	Layers            []LayerSummary `yaml:"layers"`
	Stats             TableStats     `yaml:"stats"`
	Warnings          []string       `yaml:"warnings,omitempty"`
	CreatedAt         string         `yaml:"created_at,omitempty"`
}
