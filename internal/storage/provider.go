// Package storage defines the workspace file-system abstraction.
package storage

import "time"

// FileInfo is lightweight metadata for a Markdown file found by List.
type FileInfo struct {
	Path    string
	ModTime time.Time
}

// Provider is the interface for workspace file operations. All paths are
// relative to the workspace root.
type Provider interface {
	// List returns metadata for every .md file under dir, in walk order.
	// A missing directory yields an empty result, not an error.
	List(dir string) ([]FileInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Exists reports whether a regular file exists at path.
	Exists(path string) bool
}
