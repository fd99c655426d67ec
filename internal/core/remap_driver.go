package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"layered-remap/internal/mappings"
	"layered-remap/internal/ports"
	"layered-remap/internal/types"
)

// OverlayEntry is where an artifact carries mappings that apply only while
// that artifact is remapped.
const OverlayEntry = "META-INF/layered-remap/overlay.tiny"

const versionedClassPrefix = "META-INF/versions/"

type RemapDriver struct {
	Archives ports.ArchivePort
	Rewriter ports.RewriterPort
}

func NewRemapDriver(archives ports.ArchivePort, rewriter ports.RewriterPort) RemapDriver {
	return RemapDriver{Archives: archives, Rewriter: rewriter}
}

// Remap rewrites job.Input from job.From to job.To names into job.Output.
// The previous output is kept as a sibling backup until the new one is in
// place; a failed rewrite never leaves a partial file at job.Output.
func (d RemapDriver) Remap(ctx context.Context, job types.RemapJob, table *mappings.Table) (types.RemapResult, error) {
	start := time.Now()
	if d.Archives == nil || d.Rewriter == nil {
		return types.RemapResult{}, types.ConfigurationError("remap driver requires archive and rewriter ports")
	}
	if table == nil {
		return types.RemapResult{}, types.ConfigurationError("remap requires a resolved mapping table")
	}
	if err := validateJob(job, table); err != nil {
		return types.RemapResult{}, err
	}
	if err := requireExists(job.Input); err != nil {
		return types.RemapResult{}, err
	}
	for _, entry := range job.Classpath {
		if err := requireExists(entry); err != nil {
			return types.RemapResult{}, err
		}
	}
	assert.NotEmpty(ctx, job.Output, "remap output must be set")

	base, err := table.Mapper(job.From, job.To)
	if err != nil {
		return types.RemapResult{}, err
	}
	provider, overlayEntries, err := d.jobProvider(ctx, job, base)
	if err != nil {
		return types.RemapResult{}, err
	}

	inPlace := samePath(job.Input, job.Output)
	stage, err := stageOutput(job.Output)
	if err != nil {
		return types.RemapResult{}, err
	}
	source := job.Input
	if inPlace {
		source = stage.backup
	}

	result, err := d.rewrite(ctx, job, source, stage.staging, provider)
	if err != nil {
		stage.discard()
		log.Ctx(ctx).Error().Err(err).Str("output", job.Output).Msg("remap failed, staged output discarded")
		var typed *types.Error
		if errors.As(err, &typed) {
			return types.RemapResult{}, err
		}
		return types.RemapResult{}, types.RewriteError(job.Input, "failed to rewrite artifact", err)
	}
	if err := stage.promote(); err != nil {
		return types.RemapResult{}, err
	}
	if err := stage.verify(); err != nil {
		return types.RemapResult{}, err
	}

	result.Output = job.Output
	result.OverlayEntries = overlayEntries
	result.Duration = time.Since(start)
	log.Ctx(ctx).Info().
		Str("input", job.Input).
		Str("output", job.Output).
		Int("classes", result.ClassesRemapped).
		Int("resources", result.ResourcesCopied).
		Dur("duration", result.Duration).
		Msg("artifact remapped")
	return result, nil
}

// RemapAll runs independent jobs concurrently against one table. Outputs
// must be pairwise distinct and no job may write another job's input. The
// first failure cancels the remaining jobs; results keep the job order.
func (d RemapDriver) RemapAll(ctx context.Context, jobs []types.RemapJob, table *mappings.Table, parallelism int) ([]types.RemapResult, error) {
	if err := checkDisjoint(jobs); err != nil {
		return nil, err
	}
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	results := make([]types.RemapResult, len(jobs))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(parallelism)
	for i, job := range jobs {
		group.Go(func() error {
			result, err := d.Remap(groupCtx, job, table)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func checkDisjoint(jobs []types.RemapJob) error {
	outputs := map[string]int{}
	for i, job := range jobs {
		key := absClean(job.Output)
		if prev, ok := outputs[key]; ok {
			return types.ConfigurationError(fmt.Sprintf("remap jobs %d and %d write the same output %s", prev, i, job.Output))
		}
		outputs[key] = i
	}
	for i, job := range jobs {
		if owner, ok := outputs[absClean(job.Input)]; ok && owner != i {
			return types.ConfigurationError(fmt.Sprintf("remap job %d reads %s which job %d writes", i, job.Input, owner))
		}
	}
	return nil
}

func absClean(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

func validateJob(job types.RemapJob, table *mappings.Table) error {
	if strings.TrimSpace(job.Input) == "" {
		return types.ConfigurationError("remap input must be set")
	}
	if strings.TrimSpace(job.Output) == "" {
		return types.ConfigurationError("remap output must be set")
	}
	if table.NamespaceIndex(job.From) < 0 {
		return types.ConfigurationError(fmt.Sprintf("source namespace %q is not in the table %v", job.From, table.Namespaces()))
	}
	if table.NamespaceIndex(job.To) < 0 {
		return types.ConfigurationError(fmt.Sprintf("target namespace %q is not in the table %v", job.To, table.Namespaces()))
	}
	return nil
}

func requireExists(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.MissingArtifactError(path, nil)
		}
		return types.MissingArtifactError(path, err)
	}
	return nil
}

func samePath(a, b string) bool {
	return absClean(a) == absClean(b)
}

// jobProvider layers the overlay embedded in the input and the job's
// overlay files over base. The shared table is never modified.
func (d RemapDriver) jobProvider(ctx context.Context, job types.RemapJob, base *mappings.Mapper) (mappings.SymbolProvider, int, error) {
	var trees []*mappings.Tree
	data, ok, err := d.Archives.ReadEntry(job.Input, OverlayEntry)
	if err != nil {
		return nil, 0, types.RewriteError(job.Input, "failed to read embedded overlay", err)
	}
	if ok && len(bytes.TrimSpace(data)) > 0 {
		tree, err := mappings.ReadTiny(bytes.NewReader(data), job.Input+"!/"+OverlayEntry)
		if err != nil {
			return nil, 0, err
		}
		trees = append(trees, tree)
	}
	for _, path := range job.Overlays {
		file, err := os.Open(path)
		if err != nil {
			return nil, 0, types.MissingArtifactError(path, err)
		}
		tree, err := mappings.ReadTiny(file, path)
		file.Close()
		if err != nil {
			return nil, 0, err
		}
		trees = append(trees, tree)
	}
	if len(trees) == 0 {
		return base, 0, nil
	}
	overlay, err := mappings.BuildOverlay(trees, job.From, job.To)
	if err != nil {
		return nil, 0, err
	}
	log.Ctx(ctx).Debug().Int("overlays", len(trees)).Int("entries", overlay.Size()).Msg("job overlay applied")
	return mappings.Stack{overlay, base}, overlay.Size(), nil
}

// rewrite registers the classpath and the input with a rewrite session and
// streams the input into staging.
func (d RemapDriver) rewrite(ctx context.Context, job types.RemapJob, source string, staging string, provider mappings.SymbolProvider) (types.RemapResult, error) {
	session := d.Rewriter.NewSession(provider)
	register := func(entry types.ArchiveEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !isClassEntry(entry.Name) {
			return nil
		}
		return session.Register(entry.Data)
	}
	for _, path := range job.Classpath {
		if err := d.Archives.Walk(path, register); err != nil {
			return types.RemapResult{}, fmt.Errorf("register classpath %s: %w", path, err)
		}
	}
	if err := d.Archives.Walk(source, register); err != nil {
		return types.RemapResult{}, fmt.Errorf("register input: %w", err)
	}

	writer, err := d.Archives.Create(staging)
	if err != nil {
		return types.RemapResult{}, err
	}
	var result types.RemapResult
	err = d.Archives.Walk(source, func(entry types.ArchiveEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !isClassEntry(entry.Name) {
			result.ResourcesCopied++
			return writer.Put(entry)
		}
		name, data, err := session.Rewrite(entry.Data)
		if err != nil {
			return fmt.Errorf("%s: %w", entry.Name, err)
		}
		result.ClassesRemapped++
		return writer.Put(types.ArchiveEntry{
			Name:     versionedPrefix(entry.Name) + name + ".class",
			Data:     data,
			Modified: entry.Modified,
			Stored:   entry.Stored,
		})
	})
	if err != nil {
		_ = writer.Abort()
		return types.RemapResult{}, err
	}
	if err := writer.Close(); err != nil {
		_ = writer.Abort()
		return types.RemapResult{}, err
	}
	return result, nil
}

func isClassEntry(name string) bool {
	return strings.HasSuffix(name, ".class") && !strings.HasSuffix(name, "module-info.class")
}

// versionedPrefix keeps the META-INF/versions/<n>/ prefix of multi-release
// class entries.
func versionedPrefix(name string) string {
	if !strings.HasPrefix(name, versionedClassPrefix) {
		return ""
	}
	rest := strings.TrimPrefix(name, versionedClassPrefix)
	slash := strings.IndexByte(rest, '/')
	if slash < 0 {
		return ""
	}
	return versionedClassPrefix + rest[:slash+1]
}
