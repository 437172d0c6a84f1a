// Package tree maps request paths onto the served directory tree, and produces
// directory listings and search results from it. All filesystem access goes
// through a vfs.FileSystem, and every resolved path is confined to the root.
package tree

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/mandelsoft/vfs/pkg/vfs"
)

// Kind is the type of a filesystem entry.
type Kind int

const (
	KindMissing Kind = iota
	KindFile
	KindDirectory
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "File"
	case KindDirectory:
		return "Dir"
	default:
		return "Missing"
	}
}

// Entry is the outcome of resolving a request path.
type Entry struct {
	// AbsPath is the path on the underlying filesystem.
	AbsPath string
	// DisplayPath is the path relative to the root, with a leading '/'.
	DisplayPath string
	Kind        Kind
	// Size is only set for files.
	Size    int64
	ModTime time.Time
	// Traversal is set on missing entries whose path tried to leave the root.
	Traversal bool
}

// Name returns the last element of the display path.
func (e *Entry) Name() string {
	return path.Base(e.DisplayPath)
}

// IsRoot returns true if the entry is the root directory.
func (e *Entry) IsRoot() bool {
	return e.DisplayPath == "/"
}

// ListingEntry is a single row of a directory listing or search result.
type ListingEntry struct {
	// Name is the display name, ".." for the parent directory.
	Name string
	// Link is the root-relative URL path of the entry, escaped for use in an
	// href. Directory links end with '/'.
	Link    string
	Kind    Kind
	Size    int64
	ModTime time.Time
}

// Root is the served directory tree. It's safe for concurrent use.
type Root struct {
	fs  vfs.FileSystem
	dir string
}

// NewRoot returns a Root serving dir on fsys. dir must be an existing directory.
func NewRoot(fsys vfs.FileSystem, dir string) (*Root, error) {
	if !path.IsAbs(dir) {
		return nil, fmt.Errorf("served root '%s' is not an absolute path", dir)
	}
	dir = path.Clean(dir)
	fi, err := fsys.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed reading served root: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("served root '%s' is not a directory", dir)
	}

	return &Root{fs: fsys, dir: dir}, nil
}

// Dir returns the root directory path on the underlying filesystem.
func (r *Root) Dir() string {
	return r.dir
}

// FS returns the underlying filesystem.
func (r *Root) FS() vfs.FileSystem {
	return r.fs
}

// Open opens a resolved file for reading.
//
//nolint:wrapcheck // Wrapped by caller.
func (r *Root) Open(e *Entry) (vfs.File, error) {
	return r.fs.Open(e.AbsPath)
}

// Resolve maps a raw, escaped request path to an entry under the root.
// Paths that fail to decode, escape the root, or don't exist resolve to an
// entry of KindMissing. An error is only returned for unexpected filesystem
// failures.
func (r *Root) Resolve(reqPath string) (*Entry, error) {
	missing := &Entry{DisplayPath: reqPath, Kind: KindMissing}

	decoded, err := url.PathUnescape(strings.TrimPrefix(reqPath, "/"))
	if err != nil || strings.ContainsRune(decoded, 0) {
		return missing, nil
	}

	rel, ok := cleanRelative(decoded)
	if !ok {
		missing.Traversal = true
		return missing, nil
	}

	e, err := r.stat(rel)
	if err != nil {
		return nil, err
	}
	// Like the OS, refuse to treat a file as a directory.
	if e.Kind == KindFile && strings.HasSuffix(decoded, "/") {
		return missing, nil
	}

	return e, nil
}

// stat builds the entry for the cleaned, root-relative path rel.
func (r *Root) stat(rel string) (*Entry, error) {
	e := &Entry{
		AbsPath:     r.join(rel),
		DisplayPath: "/" + rel,
	}
	if rel == "" {
		e.DisplayPath = "/"
	}

	fi, err := r.fs.Stat(e.AbsPath)
	if err != nil {
		if vfs.IsErrNotExist(err) || errors.Is(err, fs.ErrNotExist) || isNotDir(err) {
			e.Kind = KindMissing
			return e, nil
		}
		return nil, fmt.Errorf("failed reading '%s': %w", e.DisplayPath, err)
	}

	e.ModTime = fi.ModTime()
	switch {
	case fi.IsDir():
		e.Kind = KindDirectory
	case fi.Mode().IsRegular():
		e.Kind = KindFile
		e.Size = fi.Size()
	default:
		// Pipes, sockets and devices can't be served.
		e.Kind = KindMissing
	}

	return e, nil
}

func (r *Root) join(rel string) string {
	if rel == "" {
		return r.dir
	}
	return path.Join(r.dir, rel)
}

// cleanRelative normalizes p into a path relative to the root, without
// leading or trailing slashes. It returns false if p escapes the root.
func cleanRelative(p string) (string, bool) {
	if strings.Contains(p, `\`) {
		// Avoid ambiguity with Windows path separators.
		return "", false
	}
	p = strings.TrimLeft(p, "/")
	if p == "" {
		return "", true
	}

	clean := path.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", false
	}
	if clean == "." {
		return "", true
	}

	return clean, true
}

// escapeLink escapes each element of a root-relative display path for use as
// a URL path.
func escapeLink(displayPath string, isDir bool) string {
	parts := strings.Split(strings.Trim(displayPath, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	link := "/" + strings.Join(parts, "/")
	if isDir && link != "/" {
		link += "/"
	}

	return link
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func isNotDir(err error) bool {
	return errors.Is(err, syscall.ENOTDIR) || strings.Contains(err.Error(), "not a directory")
}
