package ports

import "layered-remap/internal/mappings"

type RewriterPort interface {
	NewSession(provider mappings.SymbolProvider) RewriteSession
}

// RewriteSession rewrites the classes of one job. Every class of the input
// and the classpath is registered before the first Rewrite call.
type RewriteSession interface {
	Register(data []byte) error
	Rewrite(data []byte) (string, []byte, error)
}
