package octiron

import (
	"path/filepath"
	"strings"

	"github.com/c360studio/octiron/vocabulary/octa"
)

// SrcPathToIRI converts a path relative to the documentation root to the
// file's local IRI.
func SrcPathToIRI(srcPath string) string {
	return octa.Local + strings.TrimPrefix(filepath.ToSlash(srcPath), "/")
}

// IRIToURL converts a local IRI to a site-relative URL: index pages map to
// their directory and the .md suffix of other pages is dropped.
//
//	local:posts/index.md => posts/
//	local:posts/first.md => posts/first
func IRIToURL(iri string) string {
	path := strings.TrimPrefix(iri, octa.Local)
	switch {
	case path == "index.md":
		return ""
	case strings.HasSuffix(path, "/index.md"):
		return strings.TrimSuffix(path, "index.md")
	default:
		return strings.TrimSuffix(path, ".md")
	}
}

// FileIRI returns the local IRI of a file below the root.
func (o *Octiron) FileIRI(path string) (string, error) {
	rel, err := o.rel(path)
	if err != nil {
		return "", err
	}
	return SrcPathToIRI(rel), nil
}

// DirIRI returns the local IRI of a directory: local: for the root and
// local:<path>/ below it. Directories outside the root map to local:.
func (o *Octiron) DirIRI(dir string) string {
	rel, err := o.rel(dir)
	if err != nil || rel == "." {
		return octa.Local
	}
	return SrcPathToIRI(rel) + "/"
}

// SrcPath returns the file path of a local IRI.
func (o *Octiron) SrcPath(iri string) string {
	return filepath.Join(o.root, filepath.FromSlash(strings.TrimPrefix(iri, octa.Local)))
}

func (o *Octiron) rel(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Rel(o.root, abs)
}

func isWithin(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
