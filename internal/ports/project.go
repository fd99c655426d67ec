package ports

import "layered-remap/internal/types"

type ProjectPort interface {
	Load(path string) (types.ProjectFile, error)
}
