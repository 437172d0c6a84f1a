package cli

import (
	actx "go.hackfix.me/dirserve/app/context"
)

// Ls lists the contents of a directory under the served root.
type Ls struct {
	Path string `arg:"" optional:"" default:"/" help:"Directory path, relative to the served root."`
	Root string `help:"Served root directory. Default: the current working directory."`
}

// Run the ls command.
func (c *Ls) Run(appCtx *actx.Context) error {
	root, err := openRoot(appCtx, c.Root)
	if err != nil {
		return err
	}

	dir, err := resolveDir(root, c.Path)
	if err != nil {
		return err
	}

	entries, err := root.List(dir)
	if err != nil {
		return err //nolint:wrapcheck // Already descriptive.
	}

	return renderEntries(appCtx.Stdout, entries)
}
