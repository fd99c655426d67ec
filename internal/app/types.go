package app

import "layered-remap/internal/types"

// Settings are the environment level options that complement a project
// file: where artifacts are cached and fetched from.
type Settings struct {
	CacheDir         string
	Repositories     []string
	Offline          bool
	ManifestURL      string
	HTTPTimeoutSec   int
	HTTPRetries      int
	HTTPRetryDelayMs int
	RepoUser         string
	RepoPassword     string
	S3Endpoint       string
	S3Region         string
	S3AccessKey      string
	S3SecretKey      string
	S3UseSSL         bool
	MemoryTables     int
}

type ValidateRequest struct {
	ProjectPath string
}

type ValidateResult struct {
	GameVersion string
	Namespaces  []string
	Layers      []string
}

type ResolveRequest struct {
	ProjectPath string
	OutputDir   string
	Settings    Settings
	// SkipJar disables the packaged mapping jar output.
	SkipJar         bool
	PublishRepo     string
	PublishGroup    string
	PublishArtifact string
}

type ResolveResult struct {
	Version           string
	Label             string
	CoordinateVersion string
	OutputDir         string
	CacheHit          bool
	Stats             types.TableStats
	Warnings          []string
	Published         string
}

type RemapRequest struct {
	ProjectPath string
	Settings    Settings
	Jobs        []types.RemapJob
	Parallelism int
}

type RemapResult struct {
	Version string
	Results []types.RemapResult
	Hints   []string
}

type InspectRequest struct {
	Path string
}

type InspectResult struct {
	Report     *types.ResolutionReport
	Namespaces []string
	Stats      types.TableStats
	// Classes and Resources are set when the inspected jar carries no
	// mappings.
	Classes   int
	Resources int
}

type PruneRequest struct {
	// ProjectPath locates the cache when Settings.CacheDir is empty.
	ProjectPath string
	Settings    Settings
	KeepLast    int
	KeepDays    int
	Protect     []string
	DryRun      bool
}

type PruneResult struct {
	KeepCount   int
	DeleteCount int
	Deleted     []string
	DryRun      bool
}
