package tree

import (
	"fmt"
	"os"
	"path"
	"sort"
)

// IndexFile is the name of the file served in place of a directory listing.
const IndexFile = "index.html"

// List returns the visible, immediate children of dir sorted by name, preceded
// by a ".." entry for the parent directory unless dir is the root.
func (r *Root) List(dir *Entry) ([]ListingEntry, error) {
	if dir.Kind != KindDirectory {
		return nil, fmt.Errorf("'%s' is not a directory", dir.DisplayPath)
	}

	children, err := r.readDir(dir.AbsPath)
	if err != nil {
		return nil, fmt.Errorf("failed listing '%s': %w", dir.DisplayPath, err)
	}

	entries := make([]ListingEntry, 0, len(children)+1)
	if !dir.IsRoot() {
		parent, err := r.stat(relOf(path.Dir(dir.DisplayPath)))
		if err != nil {
			return nil, err
		}
		entries = append(entries, ListingEntry{
			Name:    "..",
			Link:    escapeLink(parent.DisplayPath, true),
			Kind:    KindDirectory,
			ModTime: parent.ModTime,
		})
	}

	for _, fi := range children {
		if isHidden(fi.Name()) {
			continue
		}
		le, ok := r.listingEntry(path.Join(dir.DisplayPath, fi.Name()), fi.Name(), fi)
		if !ok {
			continue
		}
		entries = append(entries, le)
	}

	return entries, nil
}

// Index returns the index file of dir, if there is one.
func (r *Root) Index(dir *Entry) (*Entry, bool, error) {
	if dir.Kind != KindDirectory {
		return nil, false, nil
	}

	e, err := r.stat(relOf(path.Join(dir.DisplayPath, IndexFile)))
	if err != nil {
		return nil, false, err
	}
	if e.Kind != KindFile {
		return nil, false, nil
	}

	return e, true, nil
}

// readDir returns the entries of the directory at absPath, sorted by name.
func (r *Root) readDir(absPath string) ([]os.FileInfo, error) {
	f, err := r.fs.Open(absPath)
	if err != nil {
		return nil, err //nolint:wrapcheck // Wrapped by caller.
	}
	defer f.Close()

	children, err := f.Readdir(-1)
	if err != nil {
		return nil, err //nolint:wrapcheck // Wrapped by caller.
	}
	sort.Slice(children, func(i, j int) bool {
		return children[i].Name() < children[j].Name()
	})

	return children, nil
}

// listingEntry converts a directory child into a listing entry. Symbolic links
// are described by their target; it returns false for broken links and for
// entries that can't be served.
func (r *Root) listingEntry(displayPath, name string, fi os.FileInfo) (ListingEntry, bool) {
	if fi.Mode()&os.ModeSymlink != 0 {
		target, err := r.fs.Stat(r.join(relOf(displayPath)))
		if err != nil {
			return ListingEntry{}, false
		}
		fi = target
	}

	le := ListingEntry{Name: name, ModTime: fi.ModTime()}
	switch {
	case fi.IsDir():
		le.Kind = KindDirectory
	case fi.Mode().IsRegular():
		le.Kind = KindFile
		le.Size = fi.Size()
	default:
		return ListingEntry{}, false
	}
	le.Link = escapeLink(displayPath, le.Kind == KindDirectory)

	return le, true
}

// relOf converts a display path into a root-relative path.
func relOf(displayPath string) string {
	rel, _ := cleanRelative(displayPath)
	return rel
}
