package types

// ProjectFile is the layered-remap.yaml project description.
type ProjectFile struct {
	APIVersion                 string        `yaml:"api_version"`
	GameVersion                string        `yaml:"game_version"`
	CacheDir                   string        `yaml:"cache_dir,omitempty"`
	Repositories               []string      `yaml:"repositories,omitempty"`
	Offline                    bool          `yaml:"offline,omitempty"`
	AcknowledgeOfficialLicense bool          `yaml:"acknowledge_official_license,omitempty"`
	Namespaces                 []string      `yaml:"namespaces,omitempty"`
	Layers                     []LayerConfig `yaml:"layers"`
	Remap                      RemapDefaults `yaml:"remap,omitempty"`
}

// LayerConfig is the serialised form of a LayerSpec.
type LayerConfig struct {
	Kind         LayerKind `yaml:"kind"`
	Artifact     string    `yaml:"artifact,omitempty"`
	Path         string    `yaml:"path,omitempty"`
	GameVersion  string    `yaml:"game_version,omitempty"`
	RemovePrefix *bool     `yaml:"remove_prefix,omitempty"`
	Namespace    string    `yaml:"namespace,omitempty"`
}

type RemapDefaults struct {
	From      string   `yaml:"from,omitempty"`
	To        string   `yaml:"to,omitempty"`
	Classpath []string `yaml:"classpath,omitempty"`
	Overlays  []string `yaml:"overlays,omitempty"`
}
