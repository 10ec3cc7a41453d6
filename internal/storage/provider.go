// Package storage defines the vault file-system abstraction.
package storage

// Provider is the interface for vault file operations. Every path is
// relative to the vault root.
type Provider interface {
	// Root returns the absolute vault directory.
	Root() string
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path. It reports false when the file
	// already held exactly content and was left alone.
	Write(path string, content []byte) (bool, error)
	// CopyFile copies the file at the absolute path src to path, skipping
	// the copy when the destination is already identical.
	CopyFile(src, path string) (bool, error)
	// MkdirAll creates dir and any missing parents.
	MkdirAll(dir string) error
}
