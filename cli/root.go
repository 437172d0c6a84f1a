package cli

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	actx "go.hackfix.me/dirserve/app/context"
	"go.hackfix.me/dirserve/tree"
)

// absPath resolves p against the working directory.
func absPath(appCtx *actx.Context, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(appCtx.WorkDir, p)
}

// openRoot returns the served tree rooted at dir, or at the working directory
// if dir is empty.
func openRoot(appCtx *actx.Context, dir string) (*tree.Root, error) {
	if dir == "" {
		dir = appCtx.WorkDir
	}
	root, err := tree.NewRoot(appCtx.FS, filepath.ToSlash(absPath(appCtx, dir)))
	if err != nil {
		return nil, err //nolint:wrapcheck // Already descriptive.
	}

	return root, nil
}

// resolveDir resolves p, a path relative to the root, to a directory entry.
func resolveDir(root *tree.Root, p string) (*tree.Entry, error) {
	reqPath := (&url.URL{Path: "/" + strings.TrimPrefix(p, "/")}).EscapedPath()
	entry, err := root.Resolve(reqPath)
	if err != nil {
		return nil, err //nolint:wrapcheck // Already descriptive.
	}

	switch entry.Kind {
	case tree.KindMissing:
		return nil, fmt.Errorf("'%s' not found", p)
	case tree.KindFile:
		return nil, fmt.Errorf("'%s' is not a directory", p)
	}

	return entry, nil
}
