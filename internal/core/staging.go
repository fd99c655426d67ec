package core

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"layered-remap/internal/types"
)

const (
	backupSuffix  = ".pre-remap"
	stagingSuffix = ".remap-staging"
)

// stagedOutput owns the sibling paths used while an output is rewritten.
// Exactly one of promote or discard must be called.
type stagedOutput struct {
	output    string
	backup    string
	staging   string
	hadBackup bool
	done      bool
}

func siblingPath(output string, suffix string) string {
	ext := filepath.Ext(output)
	return strings.TrimSuffix(output, ext) + suffix + ext
}

// stageOutput moves an existing output aside with a rename and reserves a
// staging path for the new one.
func stageOutput(output string) (*stagedOutput, error) {
	stage := &stagedOutput{
		output:  output,
		backup:  siblingPath(output, backupSuffix),
		staging: siblingPath(output, stagingSuffix),
	}
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return nil, types.IntegrityError(output, "failed to create output directory", err)
	}
	if err := removeIfExists(stage.staging); err != nil {
		return nil, types.IntegrityError(stage.staging, "failed to clear stale staging file", err)
	}
	if _, err := os.Stat(output); err == nil {
		if err := removeIfExists(stage.backup); err != nil {
			return nil, types.IntegrityError(stage.backup, "failed to clear stale backup", err)
		}
		if err := os.Rename(output, stage.backup); err != nil {
			return nil, types.IntegrityError(output, "failed to move previous output aside", err)
		}
		stage.hadBackup = true
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, types.IntegrityError(output, "failed to inspect previous output", err)
	}
	return stage, nil
}

// promote moves the staging file into place and drops the backup.
func (s *stagedOutput) promote() error {
	if s.done {
		return nil
	}
	s.done = true
	if err := os.Rename(s.staging, s.output); err != nil {
		_ = removeIfExists(s.staging)
		return types.IntegrityError(s.output, "failed to promote staged output", err)
	}
	if s.hadBackup {
		if err := os.Remove(s.backup); err != nil {
			return types.IntegrityError(s.backup, "failed to remove pre-remap backup", err)
		}
	}
	return nil
}

// discard removes the staging file. The backup is left for recovery.
func (s *stagedOutput) discard() {
	if s.done {
		return
	}
	s.done = true
	_ = removeIfExists(s.staging)
}

// verify checks the post-condition of a promoted output.
func (s *stagedOutput) verify() error {
	if _, err := os.Stat(s.backup); err == nil {
		return types.IntegrityError(s.backup, "pre-remap backup still exists after promotion", nil)
	}
	if _, err := os.Stat(s.staging); err == nil {
		return types.IntegrityError(s.staging, "staging file still exists after promotion", nil)
	}
	info, err := os.Stat(s.output)
	if err != nil {
		return types.IntegrityError(s.output, "remapped output is missing", err)
	}
	if info.Size() == 0 {
		return types.IntegrityError(s.output, "remapped output is empty", nil)
	}
	return nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
